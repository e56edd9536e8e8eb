package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/oklog/ulid/v2"

	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/storage"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/vendors"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/wedding"
)

// VendorFinder looks vendors up by city. Implemented by vendors.Directory.
type VendorFinder interface {
	Find(ctx context.Context, city string, limit int) ([]wedding.Vendor, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store     *storage.Store
	Assistant TurnResponder
	Vendors   VendorFinder
}

// NewMCPServer creates an MCP server exposing the planning assistant.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"vibewedding",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("vibewedding: wedding planning assistant with budget, retroplanning and vendor lookup."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("plan_wedding_turn",
			mcp.WithDescription("Send one message to the wedding planning assistant and get its structured reply."),
			mcp.WithString("message", mcp.Description("User message, in French"), mcp.Required()),
			mcp.WithString("session_id", mcp.Description("Session id; a new one is generated when empty")),
			mcp.WithString("conversation_id", mcp.Description("Conversation to continue")),
			mcp.WithString("user_id", mcp.Description("Authenticated user id")),
			mcp.WithString("current_project", mcp.Description("Current wedding project as JSON")),
		),
		mcpPlanTurn(deps),
	)

	s.AddTool(
		mcp.NewTool("find_vendors",
			mcp.WithDescription("Find wedding vendors whose city contains the given text."),
			mcp.WithString("city", mcp.Description("City or fragment of a city name"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of vendors (default 6)")),
		),
		mcpFindVendors(deps),
	)

	s.AddTool(
		mcp.NewTool("save_project",
			mcp.WithDescription("Save a wedding project to a user's dashboard."),
			mcp.WithString("user_id", mcp.Description("Owner of the project"), mcp.Required()),
			mcp.WithString("project", mcp.Description("Wedding project as JSON"), mcp.Required()),
			mcp.WithString("conversation_id", mcp.Description("Conversation the project came from")),
		),
		mcpSaveProject(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"conversations://recent",
			"Recent Conversations",
			mcp.WithResourceDescription("Last 10 planning conversations (summaries only)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpPlanTurn(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil {
			return mcpError("message is required"), nil
		}

		turn := wedding.TurnRequest{
			Message:        message,
			SessionID:      req.GetString("session_id", ""),
			ConversationID: req.GetString("conversation_id", ""),
			UserID:         req.GetString("user_id", ""),
		}
		if turn.SessionID == "" {
			turn.SessionID = ulid.Make().String()
		}
		if raw := req.GetString("current_project", ""); raw != "" {
			var p wedding.Project
			if err := json.Unmarshal([]byte(raw), &p); err != nil {
				return mcpError(fmt.Sprintf("invalid current_project JSON: %v", err)), nil
			}
			turn.CurrentProject = &p
		}

		resp, err := deps.Assistant.Respond(ctx, turn)
		if err != nil {
			_, errType := classify(err)
			return mcpError(fmt.Sprintf("%s: %v", errType, err)), nil
		}

		b, err := json.Marshal(resp)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal response: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpFindVendors(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		city, err := req.RequireString("city")
		if err != nil {
			return mcpError("city is required"), nil
		}

		limit := req.GetInt("limit", vendors.DefaultLimit)
		if limit <= 0 {
			limit = vendors.DefaultLimit
		}
		if limit > 50 {
			limit = 50
		}

		found, err := deps.Vendors.Find(ctx, city, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("vendor lookup failed: %v", err)), nil
		}
		if len(found) == 0 {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(found)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal vendors: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSaveProject(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}
		raw, err := req.RequireString("project")
		if err != nil {
			return mcpError("project is required"), nil
		}

		var p wedding.Project
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return mcpError(fmt.Sprintf("invalid project JSON: %v", err)), nil
		}
		if !p.HasContent() {
			return mcpError("project is empty"), nil
		}

		id, err := deps.Store.InsertProject(ctx, wedding.ProjectRecord{
			UserID:         userID,
			Title:          p.Title(),
			ConversationID: req.GetString("conversation_id", ""),
			Project:        p,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to save project: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Saved project %s (%s)", id, p.Title())), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		convs, err := deps.Store.ListConversations(ctx, storage.ConversationFilter{Limit: 10})
		if err != nil {
			return nil, fmt.Errorf("failed to list conversations: %w", err)
		}

		type conversationSummary struct {
			ID          string `json:"id"`
			SessionID   string `json:"session_id"`
			UpdatedAt   string `json:"updated_at"`
			Messages    int    `json:"messages"`
			LastMessage string `json:"last_message,omitempty"`
		}

		summaries := make([]conversationSummary, len(convs))
		for i, c := range convs {
			var last string
			for j := len(c.Messages) - 1; j >= 0; j-- {
				if c.Messages[j].Role == wedding.RoleUser {
					last = c.Messages[j].Content
					break
				}
			}
			if utf8.RuneCountInString(last) > 200 {
				runes := []rune(last)
				last = string(runes[:200]) + "..."
			}
			summaries[i] = conversationSummary{
				ID:          c.ID,
				SessionID:   c.SessionID,
				UpdatedAt:   c.UpdatedAt.Format(time.RFC3339),
				Messages:    len(c.Messages),
				LastMessage: last,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal conversations: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
