package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/gateway"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/storage"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/vendors"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/wedding"
)

func newTestMCPDeps(t *testing.T) (MCPDeps, *storage.Store, *fakeResponder) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	for _, v := range []wedding.Vendor{{ID: "v1", Name: "Château", City: "Lyon"}, {ID: "v2", Name: "Fleurs", City: "Annecy"}} {
		if _, err := store.SaveVendor(context.Background(), v); err != nil {
			t.Fatalf("SaveVendor: %v", err)
		}
	}

	svc := &fakeResponder{resp: wedding.TurnResponse{Response: wedding.ConversationalReply("Bonjour !"), ConversationID: "conv-1", Vendors: []wedding.Vendor{}}}
	return MCPDeps{Store: store, Assistant: svc, Vendors: vendors.NewDirectory(store)}, store, svc
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestMCPTool_PlanTurn(t *testing.T) {
	deps, _, svc := newTestMCPDeps(t)
	handler := mcpPlanTurn(deps)

	result, err := handler(context.Background(), makeCallToolRequest("plan_wedding_turn", map[string]interface{}{
		"message":         "Bonjour",
		"current_project": `{"weddingData":{"guests":80}}`,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	if svc.got.SessionID == "" {
		t.Error("expected a generated session id")
	}
	if svc.got.CurrentProject == nil || *svc.got.CurrentProject.WeddingData.Guests != 80 {
		t.Errorf("current project = %+v", svc.got.CurrentProject)
	}

	var resp wedding.TurnResponse
	if err := json.Unmarshal([]byte(toolText(t, result)), &resp); err != nil {
		t.Fatalf("decoding tool result: %v", err)
	}
	if resp.ConversationID != "conv-1" || !resp.Response.Conversational {
		t.Errorf("response = %+v", resp)
	}
}

func TestMCPTool_PlanTurn_Errors(t *testing.T) {
	deps, _, svc := newTestMCPDeps(t)
	handler := mcpPlanTurn(deps)

	result, _ := handler(context.Background(), makeCallToolRequest("plan_wedding_turn", map[string]interface{}{}))
	if !result.IsError {
		t.Error("expected error for missing message")
	}

	result, _ = handler(context.Background(), makeCallToolRequest("plan_wedding_turn", map[string]interface{}{
		"message":         "Bonjour",
		"current_project": "{broken",
	}))
	if !result.IsError {
		t.Error("expected error for invalid project JSON")
	}

	svc.err = &gateway.StatusError{Status: 429}
	result, _ = handler(context.Background(), makeCallToolRequest("plan_wedding_turn", map[string]interface{}{"message": "Bonjour"}))
	if !result.IsError || !strings.Contains(toolText(t, result), ErrTypeRateLimited) {
		t.Errorf("expected RATE_LIMITED error, got %q", toolText(t, result))
	}
}

func TestMCPTool_FindVendors(t *testing.T) {
	deps, _, _ := newTestMCPDeps(t)
	handler := mcpFindVendors(deps)

	result, err := handler(context.Background(), makeCallToolRequest("find_vendors", map[string]interface{}{"city": "LYON", "limit": 5}))
	if err != nil || result.IsError {
		t.Fatalf("unexpected error: %v %s", err, toolText(t, result))
	}
	var found []wedding.Vendor
	if err := json.Unmarshal([]byte(toolText(t, result)), &found); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(found) != 1 || found[0].ID != "v1" {
		t.Errorf("vendors = %+v", found)
	}

	result, _ = handler(context.Background(), makeCallToolRequest("find_vendors", map[string]interface{}{"city": "Brest"}))
	if toolText(t, result) != "[]" {
		t.Errorf("expected empty list, got %s", toolText(t, result))
	}
}

func TestMCPTool_SaveProject(t *testing.T) {
	deps, store, _ := newTestMCPDeps(t)
	handler := mcpSaveProject(deps)

	result, _ := handler(context.Background(), makeCallToolRequest("save_project", map[string]interface{}{
		"user_id": "alice",
		"project": `{"summary":"vide"}`,
	}))
	if !result.IsError {
		t.Error("expected empty project error")
	}

	result, _ = handler(context.Background(), makeCallToolRequest("save_project", map[string]interface{}{
		"user_id": "alice",
		"project": `{"weddingData":{"guests":120}}`,
	}))
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}
	if !strings.Contains(toolText(t, result), "Mariage - 120 invités") {
		t.Errorf("result = %s", toolText(t, result))
	}

	list, err := store.ListProjects(context.Background(), "alice", 10, 0)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("got %d projects, want 1", len(list))
	}
}

func TestMCPResource_Recent(t *testing.T) {
	deps, store, _ := newTestMCPDeps(t)
	long := strings.Repeat("é", 250)
	if _, err := store.UpsertConversation(context.Background(), wedding.Conversation{
		SessionID: "s1",
		Messages: []wedding.Message{
			{Role: wedding.RoleUser, Content: long},
			{Role: wedding.RoleAssistant, Content: "ok"},
		},
	}); err != nil {
		t.Fatalf("UpsertConversation: %v", err)
	}

	contents, err := mcpResourceRecent(deps)(context.Background(), mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: "conversations://recent"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := contents[0].(mcp.TextResourceContents).Text

	var summaries []struct {
		SessionID   string `json:"session_id"`
		Messages    int    `json:"messages"`
		LastMessage string `json:"last_message"`
	}
	if err := json.Unmarshal([]byte(text), &summaries); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Messages != 2 {
		t.Fatalf("summaries = %+v", summaries)
	}
	if got := []rune(summaries[0].LastMessage); len(got) != 203 {
		t.Errorf("last message has %d runes, want 203 (truncated)", len(got))
	}
}

func TestNewMCPServer(t *testing.T) {
	deps, _, _ := newTestMCPDeps(t)
	if NewMCPServer(deps) == nil {
		t.Fatal("expected server")
	}
}
