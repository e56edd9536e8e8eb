// Package prompt builds the message list sent to the LLM for one planning
// turn: a French, JSON-only system instruction describing the three reply
// modes, the prior transcript, and the new user message.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/gateway"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/wedding"
)

const systemPromptTemplate = `Tu es un wedding planner expert qui aide des couples à organiser leur mariage en France. Tu réponds TOUJOURS en français et UNIQUEMENT avec un objet JSON valide, sans texte autour ni bloc markdown.

Trois formats de réponse sont possibles.

1. Mode "initial", quand aucun projet n'existe ou que l'utilisateur décrit un nouveau projet :
{"conversational": false, "mode": "initial", "summary": "...", "weddingData": {"guests": 100, "budget": 20000, "location": "ville", "date": "AAAA-MM-JJ", "style": "..."}, "budgetBreakdown": [{"category": "...", "percentage": 30, "amount": 6000}], "timeline": [{"task": "...", "timeframe": "12 mois avant", "priority": "high|medium|low", "category": "..."}], "askLocation": false, "ctaSelection": false, "vendorCategory": ""}

2. Mode "update", quand un projet existe et que l'utilisateur demande une modification :
{"conversational": false, "mode": "update", "message": "confirmation de la modification", "updatedFields": {"weddingData": {...}, "budgetBreakdown": [...], "timeline": [...]}}
Dans updatedFields, n'inclus QUE les champs qui changent.
- Si la date change, recalcule entièrement la timeline.
- Si le budget ou le nombre d'invités change, recalcule entièrement le budgetBreakdown.

3. Mode conversationnel, pour une discussion sans impact sur le projet :
{"conversational": true, "message": "..."}

Règles :
- Utilise null pour une information inconnue, n'invente jamais de valeur.
- Les montants sont en euros, entiers, sans symbole.
- Mets "askLocation" à true si tu as besoin de connaître la ville pour proposer des prestataires.
- Mets "ctaSelection" à true et renseigne "vendorCategory" quand l'utilisateur devrait choisir un type de prestataire.

Nous sommes le %s.`

// Build returns the system instruction for a turn. When project is not nil
// its JSON snapshot is appended verbatim so the model can choose between the
// initial and update modes.
func Build(project *wedding.Project, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, systemPromptTemplate, now.Format("2006-01-02"))

	if project != nil {
		snapshot, err := json.MarshalIndent(project, "", "  ")
		if err == nil {
			sb.WriteString("\n\n[Projet actuel]\n")
			sb.Write(snapshot)
			sb.WriteString("\nUn projet existe déjà : utilise le mode \"update\" pour toute modification.")
		}
	} else {
		sb.WriteString("\n\nAucun projet n'existe encore.")
	}
	return sb.String()
}

// BuildMessages assembles the gateway messages for one turn.
func BuildMessages(history []wedding.Message, project *wedding.Project, userMessage string, now time.Time) []gateway.Message {
	messages := make([]gateway.Message, 0, len(history)+2)
	messages = append(messages, gateway.Message{Role: gateway.RoleSystem, Content: Build(project, now)})

	for _, m := range history {
		role := gateway.RoleUser
		if m.Role == wedding.RoleAssistant {
			role = gateway.RoleAssistant
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		messages = append(messages, gateway.Message{Role: role, Content: m.Content})
	}

	return append(messages, gateway.Message{Role: gateway.RoleUser, Content: userMessage})
}
