package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/api"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/assistant"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/config"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/gateway"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/storage"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/wedding"
)

// apiClient talks to a running vibewedding server. It implements
// planner.TurnClient and planner.ProjectSaver.
type apiClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var newAPIClient = func(cfg config.Config) (*apiClient, error) {
	token, err := config.GetAPIToken(config.NewKeychain())
	if err != nil {
		return nil, fmt.Errorf("getting API token: %w", err)
	}

	return &apiClient{
		baseURL: fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port),
		token:   token,
		// The controller bounds each turn; this only catches a hung server.
		httpClient: &http.Client{Timeout: cfg.Chat.RequestTimeout + 10*time.Second},
	}, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server not reachable, is vibewedding running? (%w)", err)
	}
	return resp, nil
}

func (c *apiClient) get(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *apiClient) post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// SendTurn posts one planning turn to the AI endpoint.
func (c *apiClient) SendTurn(ctx context.Context, req wedding.TurnRequest) (wedding.TurnResponse, error) {
	resp, err := c.post(ctx, api.TurnPath, req)
	if err != nil {
		return wedding.TurnResponse{}, err
	}
	var out wedding.TurnResponse
	if err := decodeJSON(resp, &out); err != nil {
		return wedding.TurnResponse{}, err
	}
	return out, nil
}

// InsertProject saves a project to the dashboard.
func (c *apiClient) InsertProject(ctx context.Context, rec wedding.ProjectRecord) (string, error) {
	resp, err := c.post(ctx, "/projects", api.CreateProjectRequest{
		UserID:         rec.UserID,
		Title:          rec.Title,
		ConversationID: rec.ConversationID,
		Project:        rec.Project,
	})
	if err != nil {
		return "", err
	}
	var out api.CreatedResponse
	if err := decodeJSON(resp, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// apiError is a non-2xx server response. It unwraps to the sentinel matching
// its error type so callers can use errors.Is.
type apiError struct {
	Status  int
	Type    string
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (e *apiError) Unwrap() error {
	switch e.Type {
	case api.ErrTypeRateLimited:
		return gateway.ErrRateLimited
	case api.ErrTypeQuotaExceeded:
		return gateway.ErrQuotaExceeded
	case api.ErrTypeUpstream:
		return gateway.ErrUpstream
	case api.ErrTypePersistence:
		return assistant.ErrPersistence
	case api.ErrTypeInvalidRequest:
		return assistant.ErrInvalidRequest
	case api.ErrTypeNotFound:
		return storage.ErrNotFound
	}
	return nil
}

func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("server returned %d (failed to read body: %w)", resp.StatusCode, err)
		}
		e := &apiError{Status: resp.StatusCode, Message: string(bytes.TrimSpace(body))}
		var envelope api.ErrorBody
		if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
			e.Type = envelope.Error.Type
			e.Message = envelope.Error.Message
		}
		return e
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
