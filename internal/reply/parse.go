// Package reply turns raw LLM output into a wedding.Reply. Parsing never
// fails: anything that does not match the three-mode contract degrades to a
// conversational reply.
package reply

import (
	"encoding/json"
	"strings"

	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/wedding"
)

// DefaultMessage is shown when the model sent a well-formed object that
// carries nothing usable for the user.
const DefaultMessage = "Je n'ai pas bien compris, pouvez-vous reformuler votre demande ?"

// envelope mirrors wedding.Reply with an optional conversational flag so an
// omitted flag can be told apart from false.
type envelope struct {
	Conversational  *bool                  `json:"conversational"`
	Mode            string                 `json:"mode"`
	Message         string                 `json:"message"`
	Summary         string                 `json:"summary"`
	WeddingData     *wedding.WeddingData   `json:"weddingData"`
	BudgetBreakdown []wedding.BudgetItem   `json:"budgetBreakdown"`
	Timeline        []wedding.TimelineTask `json:"timeline"`
	UpdatedFields   *wedding.UpdatedFields `json:"updatedFields"`
	AskLocation     bool                   `json:"askLocation"`
	CTASelection    bool                   `json:"ctaSelection"`
	VendorCategory  string                 `json:"vendorCategory"`
}

// Parse decodes raw model output. ok is false when the output did not match
// the contract and the conversational fallback was returned instead. Text
// that is not a single JSON value falls back to the raw text; an object that
// decodes but breaks the contract falls back to its message, or to
// DefaultMessage when it has none.
func Parse(raw string) (r wedding.Reply, ok bool) {
	body := StripFences(raw)
	if body == "" {
		return wedding.ConversationalReply(raw), false
	}

	dec := json.NewDecoder(strings.NewReader(body))
	var env envelope
	if err := dec.Decode(&env); err != nil {
		return wedding.ConversationalReply(raw), false
	}
	// Trailing content after the object means the model mixed prose and JSON.
	if dec.More() {
		return wedding.ConversationalReply(raw), false
	}

	r, ok = env.resolve()
	if !ok {
		if msg := strings.TrimSpace(env.Message); msg != "" {
			return wedding.ConversationalReply(msg), false
		}
		return wedding.ConversationalReply(DefaultMessage), false
	}
	return r, true
}

func (e envelope) resolve() (wedding.Reply, bool) {
	r := wedding.Reply{
		Message:        strings.TrimSpace(e.Message),
		AskLocation:    e.AskLocation,
		CTASelection:   e.CTASelection,
		VendorCategory: strings.TrimSpace(e.VendorCategory),
	}

	if e.Conversational != nil && *e.Conversational {
		if r.Message == "" {
			return wedding.Reply{}, false
		}
		r.Conversational = true
		return r, true
	}

	switch wedding.Mode(strings.ToLower(strings.TrimSpace(e.Mode))) {
	case wedding.ModeUpdate:
		// Changes may come in updatedFields, at the top level, or both.
		if e.UpdatedFields == nil && !e.hasProjectFields() {
			return wedding.Reply{}, false
		}
		r.Mode = wedding.ModeUpdate
		e.copyProjectFields(&r)
		r.UpdatedFields = e.UpdatedFields
		return r, true

	case wedding.ModeInitial:
		if !e.hasProjectFields() {
			return wedding.Reply{}, false
		}
		r.Mode = wedding.ModeInitial
		e.copyProjectFields(&r)
		return r, true

	case "":
		// No tag: a project shape is an initial reply, bare text is chat.
		if e.hasProjectFields() {
			r.Mode = wedding.ModeInitial
			e.copyProjectFields(&r)
			return r, true
		}
		if e.Conversational == nil && r.Message != "" {
			r.Conversational = true
			return r, true
		}
	}
	return wedding.Reply{}, false
}

func (e envelope) hasProjectFields() bool {
	return strings.TrimSpace(e.Summary) != "" || e.WeddingData != nil ||
		len(e.BudgetBreakdown) > 0 || len(e.Timeline) > 0
}

func (e envelope) copyProjectFields(r *wedding.Reply) {
	r.Summary = strings.TrimSpace(e.Summary)
	r.WeddingData = e.WeddingData
	r.BudgetBreakdown = e.BudgetBreakdown
	r.Timeline = e.Timeline
}

// StripFences removes an optional markdown code fence (```json or ```)
// around the payload and trims surrounding whitespace.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the info string (e.g. "json") up to the first newline.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		info := strings.TrimSpace(s[:i])
		if info == "" || isInfoString(info) {
			s = s[i+1:]
		}
	} else if rest, found := strings.CutPrefix(s, "json"); found {
		s = rest
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func isInfoString(s string) bool {
	return !strings.ContainsAny(s, "{}[]\"")
}
