package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/api"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/assistant"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/config"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/gateway"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/storage"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/wedding"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

// newTestServer answers "METHOD /path" keys with canned bodies. A key whose
// body starts with a status code ("429 {...}") replies with that status.
func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		resp, ok := responses[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		code := http.StatusOK
		if len(resp) > 4 && resp[3] == ' ' {
			switch resp[:3] {
			case "400":
				code = http.StatusBadRequest
			case "402":
				code = http.StatusPaymentRequired
			case "429":
				code = http.StatusTooManyRequests
			case "500":
				code = http.StatusInternalServerError
			case "502":
				code = http.StatusBadGateway
			}
			resp = resp[4:]
		}
		w.WriteHeader(code)
		w.Write([]byte(resp))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestSendTurn(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST " + api.TurnPath: `{"response":{"conversational":true,"message":"Bonjour !"},"conversationId":"c-1","vendors":[]}`,
	})

	resp, err := ts.client().SendTurn(ctx, wedding.TurnRequest{Message: "Salut", SessionID: "s-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ConversationID != "c-1" || resp.Response.Message != "Bonjour !" {
		t.Errorf("response = %+v", resp)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["message"] != "Salut" || body["sessionId"] != "s-1" {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["currentProject"]; ok {
		t.Error("currentProject should be omitted when nil")
	}
}

func TestSendTurn_ErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"rate limited", `429 {"error":{"message":"slow down","type":"RATE_LIMITED"}}`, gateway.ErrRateLimited},
		{"quota", `402 {"error":{"message":"no credits","type":"QUOTA_EXCEEDED"}}`, gateway.ErrQuotaExceeded},
		{"upstream", `502 {"error":{"message":"bad gateway","type":"UPSTREAM_ERROR"}}`, gateway.ErrUpstream},
		{"persistence", `500 {"error":{"message":"db down","type":"PERSISTENCE_ERROR"}}`, assistant.ErrPersistence},
		{"invalid", `400 {"error":{"message":"sessionId is required","type":"invalid_request_error"}}`, assistant.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, map[string]string{"POST " + api.TurnPath: tt.body})

			_, err := ts.client().SendTurn(ctx, wedding.TurnRequest{Message: "Salut", SessionID: "s-1"})
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestInsertProject(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /projects": `{"id":"p-42"}`,
	})

	id, err := ts.client().InsertProject(ctx, wedding.ProjectRecord{
		UserID:         "alice",
		Title:          "Mariage à Lyon",
		ConversationID: "c-1",
		Project:        wedding.Project{WeddingData: wedding.WeddingData{Guests: wedding.IntPtr(80)}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "p-42" {
		t.Errorf("id = %q, want p-42", id)
	}

	r := ts.requests[0]
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", r.Auth)
	}
	var body api.CreateProjectRequest
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body.UserID != "alice" || body.ConversationID != "c-1" || *body.Project.WeddingData.Guests != 80 {
		t.Errorf("body = %+v", body)
	}
}

func TestDecodeJSON_ErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance\n"))
	}))
	defer ts.Close()

	client := &apiClient{baseURL: ts.URL, token: "t", httpClient: ts.Client()}
	resp, err := client.get(ctx, "/projects")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var result any
	err = decodeJSON(resp, &result)
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
	if !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "maintenance") {
		t.Errorf("error = %q", err.Error())
	}
	if errors.Is(err, gateway.ErrUpstream) {
		t.Error("untyped errors should not map to a sentinel")
	}
}

func TestAPIClient_NotFound(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := ts.client().get(ctx, "/projects/missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var rec wedding.ProjectRecord
	if err := decodeJSON(resp, &rec); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("error = %v, want storage.ErrNotFound", err)
	}
}

func TestAPIClient_Unreachable(t *testing.T) {
	client := &apiClient{baseURL: "http://127.0.0.1:1", token: "t", httpClient: http.DefaultClient}
	_, err := client.get(ctx, "/health")
	if err == nil || !strings.Contains(err.Error(), "is vibewedding running") {
		t.Errorf("error = %v", err)
	}
}

func TestProjectsList_RequiresUser(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"projects", "list"})
	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "--user is required") {
		t.Errorf("error = %v", err)
	}
}

func TestVendorsAdd_Validation(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"vendors", "add"})
	if err := rootCmd.Execute(); err == nil || !strings.Contains(err.Error(), "--name is required") {
		t.Errorf("error = %v", err)
	}

	rootCmd.SetArgs([]string{"vendors", "add", "--name", "Fleurs", "--price", "-5"})
	if err := rootCmd.Execute(); err == nil || !strings.Contains(err.Error(), "must not be negative") {
		t.Errorf("error = %v", err)
	}
}

func TestVendorLine(t *testing.T) {
	color.NoColor = true

	got := vendorLine(wedding.Vendor{Name: "Château", Category: "lieu", City: "Lyon", PriceFrom: wedding.IntPtr(4500)})
	want := "Château (lieu) - Lyon - à partir de 4500 €"
	if got != want {
		t.Errorf("vendorLine = %q, want %q", got, want)
	}
	if got := vendorLine(wedding.Vendor{Name: "Traiteur"}); got != "Traiteur" {
		t.Errorf("vendorLine = %q", got)
	}
}

func TestRenderYAML_KeepsFieldOrder(t *testing.T) {
	p := wedding.Project{
		Summary:     "Mariage à Lyon",
		WeddingData: wedding.WeddingData{Guests: wedding.IntPtr(80), Location: wedding.StringPtr("Lyon")},
	}

	out, err := renderYAML(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "{") {
		t.Errorf("expected block style, got:\n%s", out)
	}
	if !strings.Contains(out, "guests: 80") || !strings.Contains(out, "location: Lyon") {
		t.Errorf("missing fields:\n%s", out)
	}
	if strings.Index(out, "guests:") > strings.Index(out, "location:") {
		t.Errorf("field order not preserved:\n%s", out)
	}
}

func TestWriteFormatted(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFormatted(&buf, "json", map[string]int{"a": 1}); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(buf.String(), `"a": 1`) {
		t.Errorf("json output = %q", buf.String())
	}

	if err := writeFormatted(&buf, "toml", nil); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestNoColorFlag(t *testing.T) {
	old := color.NoColor
	defer func() { color.NoColor = old }()

	configureColor(true)
	if result := colorize(successColor, "hello"); strings.Contains(result, "\033[") {
		t.Errorf("colorize with --no-color should not contain ANSI codes, got %q", result)
	}

	color.NoColor = false
	if result := colorize(successColor, "hello"); !strings.Contains(result, "\033[") {
		t.Errorf("colorize with colours enabled should contain ANSI codes, got %q", result)
	}
}

func TestConfigShowAll(t *testing.T) {
	cfg := config.Config{}
	cfg.Server.Port = 8787
	cfg.LLM.Model = "google/gemini-2.5-flash"

	found := false
	for _, k := range config.ShowAll(cfg) {
		if k.Key == "server.port" && k.Value == "8787" {
			found = true
		}
	}
	if !found {
		t.Error("expected to find server.port=8787 in ShowAll output")
	}
}

func TestCountLabel(t *testing.T) {
	tests := []struct {
		count, limit int
		want         string
	}{
		{5, 100, "5"},
		{0, 100, "0"},
		{100, 100, "100+"},
		{150, 100, "150+"},
	}
	for _, tt := range tests {
		if got := countLabel(tt.count, tt.limit); got != tt.want {
			t.Errorf("countLabel(%d, %d) = %q, want %q", tt.count, tt.limit, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Mariage à Lyon", 7); got != "Mariage..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("court", 10); got != "court" {
		t.Errorf("truncate = %q", got)
	}
}
