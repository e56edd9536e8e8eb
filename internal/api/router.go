package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter combines the public AI endpoint and the bearer-protected
// dashboard API under one handler.
func NewRouter(assistantHandler, appHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Handle("/health", assistantHandler)
	r.Handle(TurnPath, assistantHandler)
	r.Mount("/", appHandler)
	return r
}
