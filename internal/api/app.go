package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/storage"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/vendors"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/wedding"
)

// Invalidator drops cached vendor lookups. Implemented by vendors.Directory.
type Invalidator interface {
	Invalidate()
}

type AppDeps struct {
	Store   *storage.Store
	Token   string
	Vendors Invalidator // optional; invalidated after a vendor is saved
}

// NewAppHandler returns the bearer-protected dashboard API.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(BearerAuth(deps.Token))

	r.Post("/projects", handleCreateProject(deps))
	r.Get("/projects", handleListProjects(deps))
	r.Get("/projects/{id}", handleGetProject(deps))
	r.Get("/conversations", handleListConversations(deps))
	r.Get("/conversations/{id}", handleGetConversation(deps))
	r.Post("/vendors", handleCreateVendor(deps))
	r.Get("/vendors", handleListVendors(deps))

	return r
}

// CreateProjectRequest is the body of POST /projects.
type CreateProjectRequest struct {
	UserID         string          `json:"user_id"`
	Title          string          `json:"title"`
	ConversationID string          `json:"conversation_id"`
	Project        wedding.Project `json:"project"`
}

// CreatedResponse is returned by the create endpoints.
type CreatedResponse struct {
	ID string `json:"id"`
}

func handleCreateProject(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req CreateProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, ErrTypeInvalidRequest, "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.UserID) == "" {
			httpError(w, http.StatusBadRequest, ErrTypeInvalidRequest, "user_id is required")
			return
		}
		if !req.Project.HasContent() {
			httpError(w, http.StatusBadRequest, ErrTypeInvalidRequest, "project is empty")
			return
		}
		title := strings.TrimSpace(req.Title)
		if title == "" {
			title = req.Project.Title()
		}

		id, err := deps.Store.InsertProject(r.Context(), wedding.ProjectRecord{
			UserID:         req.UserID,
			Title:          title,
			ConversationID: req.ConversationID,
			Project:        req.Project,
		})
		if err != nil {
			httpError(w, http.StatusInternalServerError, ErrTypePersistence, "failed to save project: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, CreatedResponse{ID: id})
	}
}

func handleListProjects(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := deps.Store.ListProjects(r.Context(), r.URL.Query().Get("user_id"), queryInt(r, "limit", 20), queryInt(r, "offset", 0))
		if err != nil {
			httpError(w, http.StatusInternalServerError, ErrTypePersistence, "failed to list projects: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, projects)
	}
}

func handleGetProject(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		rec, err := deps.Store.GetProject(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, ErrTypeNotFound, "project %s not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, ErrTypePersistence, "failed to get project: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func handleListConversations(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		convs, err := deps.Store.ListConversations(r.Context(), storage.ConversationFilter{
			UserID:    q.Get("user_id"),
			SessionID: q.Get("session_id"),
			Limit:     queryInt(r, "limit", 20),
			Offset:    queryInt(r, "offset", 0),
		})
		if err != nil {
			httpError(w, http.StatusInternalServerError, ErrTypePersistence, "failed to list conversations: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, convs)
	}
}

func handleGetConversation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		conv, err := deps.Store.GetConversation(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, ErrTypeNotFound, "conversation %s not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, ErrTypePersistence, "failed to get conversation: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, conv)
	}
}

func handleCreateVendor(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var v wedding.Vendor
		if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
			httpError(w, http.StatusBadRequest, ErrTypeInvalidRequest, "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(v.Name) == "" {
			httpError(w, http.StatusBadRequest, ErrTypeInvalidRequest, "nom is required")
			return
		}

		id, err := deps.Store.SaveVendor(r.Context(), v)
		if err != nil {
			httpError(w, http.StatusInternalServerError, ErrTypePersistence, "failed to save vendor: %v", err)
			return
		}
		if deps.Vendors != nil {
			deps.Vendors.Invalidate()
		}
		writeJSON(w, http.StatusCreated, CreatedResponse{ID: id})
	}
}

func handleListVendors(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		city := r.URL.Query().Get("city")

		var (
			list []wedding.Vendor
			err  error
		)
		if strings.TrimSpace(city) != "" {
			list, err = deps.Store.FindVendorsByCityFragment(r.Context(), city, queryInt(r, "limit", vendors.DefaultLimit))
		} else {
			list, err = deps.Store.ListVendors(r.Context(), queryInt(r, "limit", 50), queryInt(r, "offset", 0))
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, ErrTypePersistence, "failed to list vendors: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
