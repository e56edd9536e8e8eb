package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/wedding"
)

const maxRequestBodySize = 1 << 20 // 1MB

// TurnPath is the route of the AI planning endpoint.
const TurnPath = "/functions/v1/vibe-wedding-ai"

// TurnResponder answers one planning turn. Implemented by assistant.Service.
type TurnResponder interface {
	Respond(ctx context.Context, req wedding.TurnRequest) (wedding.TurnResponse, error)
}

// Pinger reports database health. Implemented by storage.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewAssistantHandler returns the public AI endpoint and the health check.
// db may be nil.
func NewAssistantHandler(svc TurnResponder, db Pinger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth(db))
	r.Post(TurnPath, handleTurn(svc))

	return r
}

func handleHealth(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				httpError(w, http.StatusServiceUnavailable, ErrTypePersistence, "database unavailable: %v", err)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}
}

func handleTurn(svc TurnResponder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req wedding.TurnRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, ErrTypeInvalidRequest, "invalid request body: %v", err)
			return
		}

		start := time.Now()
		resp, err := svc.Respond(r.Context(), req)
		if err != nil {
			code, errType := classify(err)
			slog.Error("planning turn failed",
				"request_id", middleware.GetReqID(r.Context()),
				"session_id", req.SessionID,
				"type", errType,
				"error", err,
			)
			httpError(w, code, errType, "%v", err)
			return
		}

		slog.Info("planning turn",
			"request_id", middleware.GetReqID(r.Context()),
			"conversation_id", resp.ConversationID,
			"conversational", resp.Response.Conversational,
			"mode", resp.Response.Mode,
			"vendors", len(resp.Vendors),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		writeJSON(w, http.StatusOK, resp)
	}
}
