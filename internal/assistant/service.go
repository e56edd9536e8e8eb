// Package assistant implements one AI planning turn: it loads the prior
// transcript, calls the LLM with a mode-aware prompt, degrades unparseable
// replies to plain chat, persists the exchange and looks up vendors for the
// wedding location.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/gateway"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/prompt"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/reply"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/storage"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/wedding"
)

var (
	// ErrInvalidRequest is returned when the turn lacks a message or session id.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrPersistence is returned when the conversation cannot be read or written.
	ErrPersistence = errors.New("persistence failure")
)

// Chatter is the LLM completion call. Implemented by gateway.Client.
type Chatter interface {
	Complete(ctx context.Context, req gateway.ChatRequest) (string, error)
}

// ConversationStore is the persistence the service needs.
// Implemented by storage.Store.
type ConversationStore interface {
	GetConversation(ctx context.Context, id string) (wedding.Conversation, error)
	UpsertConversation(ctx context.Context, c wedding.Conversation) (string, error)
}

// VendorLookup finds vendors by city. Implemented by vendors.Directory.
type VendorLookup interface {
	Find(ctx context.Context, city string, limit int) ([]wedding.Vendor, error)
}

// Config holds the model parameters of a Service.
type Config struct {
	Model       string
	Temperature float64
	VendorLimit int
}

// Service answers planning turns.
type Service struct {
	chat    Chatter
	store   ConversationStore
	vendors VendorLookup
	cfg     Config
	now     func() time.Time
}

// NewService creates a Service. vendors may be nil to disable lookups.
func NewService(chat Chatter, store ConversationStore, vendors VendorLookup, cfg Config) *Service {
	if cfg.Model == "" {
		cfg.Model = gateway.DefaultModel
	}
	if cfg.VendorLimit <= 0 {
		cfg.VendorLimit = 6
	}
	return &Service{chat: chat, store: store, vendors: vendors, cfg: cfg, now: time.Now}
}

// Respond runs one turn. Errors wrap ErrInvalidRequest, ErrPersistence or
// one of the gateway error kinds.
func (s *Service) Respond(ctx context.Context, req wedding.TurnRequest) (wedding.TurnResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return wedding.TurnResponse{}, fmt.Errorf("%w: message is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return wedding.TurnResponse{}, fmt.Errorf("%w: sessionId is required", ErrInvalidRequest)
	}

	conv, err := s.loadConversation(ctx, req)
	if err != nil {
		return wedding.TurnResponse{}, err
	}

	now := s.now()
	raw, err := s.chat.Complete(ctx, gateway.ChatRequest{
		Model:       s.cfg.Model,
		Messages:    prompt.BuildMessages(conv.Messages, req.CurrentProject, message, now),
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return wedding.TurnResponse{}, upstreamError(err)
	}

	r, ok := reply.Parse(raw)
	if !ok {
		slog.Warn("AI reply did not match the response contract, answering as plain chat",
			"session_id", req.SessionID, "conversation_id", conv.ID, "reply_bytes", len(raw))
	}

	conv.Messages = append(conv.Messages,
		wedding.Message{Role: wedding.RoleUser, Content: message, Timestamp: now},
		wedding.Message{Role: wedding.RoleAssistant, Content: raw, Timestamp: s.now()},
	)
	if r.Structured() {
		snapshot := r
		conv.WeddingContext = &snapshot
	}
	conv.UpdatedAt = s.now()

	id, err := s.store.UpsertConversation(ctx, conv)
	if err != nil {
		return wedding.TurnResponse{}, fmt.Errorf("%w: saving conversation: %w", ErrPersistence, err)
	}

	return wedding.TurnResponse{
		Response:       r,
		ConversationID: id,
		Vendors:        s.lookupVendors(ctx, r),
	}, nil
}

func (s *Service) loadConversation(ctx context.Context, req wedding.TurnRequest) (wedding.Conversation, error) {
	fresh := wedding.Conversation{
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Messages:  []wedding.Message{},
		CreatedAt: s.now(),
	}
	if req.ConversationID == "" {
		return fresh, nil
	}

	conv, err := s.store.GetConversation(ctx, req.ConversationID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.Warn("conversation not found, starting a new one", "conversation_id", req.ConversationID)
		return fresh, nil
	}
	if err != nil {
		return wedding.Conversation{}, fmt.Errorf("%w: loading conversation %s: %w", ErrPersistence, req.ConversationID, err)
	}
	conv.SessionID = req.SessionID
	if req.UserID != "" {
		conv.UserID = req.UserID
	}
	return conv, nil
}

// lookupVendors is best effort: failures are logged and yield an empty list.
func (s *Service) lookupVendors(ctx context.Context, r wedding.Reply) []wedding.Vendor {
	location := strings.TrimSpace(r.Location())
	if s.vendors == nil || location == "" {
		return []wedding.Vendor{}
	}
	found, err := s.vendors.Find(ctx, location, s.cfg.VendorLimit)
	if err != nil {
		slog.Warn("vendor lookup failed", "location", location, "error", err)
		return []wedding.Vendor{}
	}
	if found == nil {
		return []wedding.Vendor{}
	}
	return found
}

func upstreamError(err error) error {
	switch {
	case errors.Is(err, gateway.ErrRateLimited), errors.Is(err, gateway.ErrQuotaExceeded), errors.Is(err, gateway.ErrUpstream):
		return fmt.Errorf("calling LLM: %w", err)
	}
	return fmt.Errorf("calling LLM: %w: %w", gateway.ErrUpstream, err)
}
