package prompt

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/gateway"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/wedding"
)

var now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func TestBuild_NoProject(t *testing.T) {
	got := Build(nil, now)

	for _, want := range []string{`"mode": "initial"`, `"mode": "update"`, `"conversational": true`, "français", "2025-03-01", "Aucun projet"} {
		if !strings.Contains(got, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
	if strings.Contains(got, "[Projet actuel]") {
		t.Error("no project snapshot expected")
	}
}

func TestBuild_EmbedsProjectVerbatim(t *testing.T) {
	p := &wedding.Project{
		Summary:     "Mariage à Lyon",
		WeddingData: wedding.WeddingData{Guests: wedding.IntPtr(80), Location: wedding.StringPtr("Lyon")},
	}
	got := Build(p, now)

	snapshot, _ := json.MarshalIndent(p, "", "  ")
	if !strings.Contains(got, string(snapshot)) {
		t.Errorf("prompt does not embed project snapshot:\n%s", got)
	}
}

func TestBuildMessages_Order(t *testing.T) {
	history := []wedding.Message{
		{Role: wedding.RoleUser, Content: "Bonjour"},
		{Role: wedding.RoleAssistant, Content: `{"conversational":true,"message":"Salut"}`},
		{Role: wedding.RoleAssistant, Content: "  "},
	}
	msgs := BuildMessages(history, nil, "80 invités à Lyon", now)

	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}
	wantRoles := []string{gateway.RoleSystem, gateway.RoleUser, gateway.RoleAssistant, gateway.RoleUser}
	for i, r := range wantRoles {
		if msgs[i].Role != r {
			t.Errorf("msgs[%d].Role = %q, want %q", i, msgs[i].Role, r)
		}
	}
	if msgs[3].Content != "80 invités à Lyon" {
		t.Errorf("last message = %q", msgs[3].Content)
	}
}
