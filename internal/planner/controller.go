// Package planner drives one chat-style planning session. It keeps the local
// transcript, sends one AI turn at a time, folds structured replies into the
// running wedding project and saves that project to the user's dashboard.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/gateway"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/wedding"
)

var (
	// ErrAuthRequired is returned when an anonymous session used up its free
	// turns, or when saving without an identity.
	ErrAuthRequired = errors.New("authentication required")
	// ErrEmptyProject is returned when saving a project with nothing in it.
	ErrEmptyProject = errors.New("project is empty")
	// ErrBusy is returned while a turn is already awaiting its response.
	ErrBusy = errors.New("a message is already being processed")
	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("message is empty")
)

// Status is the controller state.
type Status int

const (
	StatusIdle Status = iota
	StatusAwaitingResponse
	StatusAuthRequired
)

func (s Status) String() string {
	switch s {
	case StatusAwaitingResponse:
		return "awaiting_response"
	case StatusAuthRequired:
		return "auth_required"
	default:
		return "idle"
	}
}

// Identity is an authenticated user.
type Identity struct {
	UserID string
	Email  string
}

// TurnClient sends one turn to the AI endpoint.
type TurnClient interface {
	SendTurn(ctx context.Context, req wedding.TurnRequest) (wedding.TurnResponse, error)
}

// ProjectSaver writes a project to the dashboard.
type ProjectSaver interface {
	InsertProject(ctx context.Context, rec wedding.ProjectRecord) (string, error)
}

// IdentityProvider returns the current user, or nil when anonymous.
type IdentityProvider interface {
	CurrentUser(ctx context.Context) (*Identity, error)
}

const (
	defaultAnonymousTurnLimit = 1
	defaultRequestTimeout     = 90 * time.Second
)

// Option configures a Controller.
type Option func(*Controller)

// WithSessionIDGenerator replaces the ULID session id generator.
func WithSessionIDGenerator(gen func() string) Option {
	return func(c *Controller) { c.newSessionID = gen }
}

// WithClock replaces time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithAnonymousTurnLimit sets how many turns an anonymous session may take.
// A negative limit disables the gate.
func WithAnonymousTurnLimit(n int) Option {
	return func(c *Controller) { c.anonymousLimit = n }
}

// WithRequestTimeout bounds each AI turn.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Controller owns the transcript and project of one planning session.
// It is safe for concurrent use; at most one turn is in flight.
type Controller struct {
	client   TurnClient
	saver    ProjectSaver
	identity IdentityProvider

	newSessionID   func() string
	now            func() time.Time
	anonymousLimit int
	timeout        time.Duration

	mu             sync.Mutex
	inFlight       bool
	status         Status
	sessionID      string
	conversationID string
	turns          int
	messages       []wedding.Message
	project        *wedding.Project
}

// New creates a Controller. identity may be nil for an always-anonymous session.
func New(client TurnClient, saver ProjectSaver, identity IdentityProvider, opts ...Option) *Controller {
	c := &Controller{
		client:         client,
		saver:          saver,
		identity:       identity,
		newSessionID:   func() string { return ulid.Make().String() },
		now:            time.Now,
		anonymousLimit: defaultAnonymousTurnLimit,
		timeout:        defaultRequestTimeout,
		messages:       []wedding.Message{},
	}
	for _, o := range opts {
		o(c)
	}
	c.sessionID = c.newSessionID()
	return c
}

// SendMessage sends one user turn. The user message is appended before the
// call and kept on failure; the assistant message is appended and the
// project merged only on success. With organizationMode false the project
// is never touched.
func (c *Controller) SendMessage(ctx context.Context, text string, organizationMode bool) (wedding.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return wedding.Message{}, ErrEmptyMessage
	}
	user := c.currentUser(ctx)

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return wedding.Message{}, ErrBusy
	}
	if c.gated(user) {
		c.status = StatusAuthRequired
		c.mu.Unlock()
		return wedding.Message{}, ErrAuthRequired
	}
	c.inFlight = true
	c.status = StatusAwaitingResponse
	c.messages = append(c.messages, wedding.Message{Role: wedding.RoleUser, Content: text, Timestamp: c.now()})

	req := wedding.TurnRequest{
		Message:        text,
		ConversationID: c.conversationID,
		SessionID:      c.sessionID,
	}
	if user != nil {
		req.UserID = user.UserID
	}
	if organizationMode {
		req.CurrentProject = c.project.Clone()
	}
	c.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	resp, err := c.client.SendTurn(callCtx, req)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false

	if err != nil {
		c.status = StatusIdle
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, gateway.ErrUpstream) {
			err = fmt.Errorf("%w: request timed out after %s: %w", gateway.ErrUpstream, c.timeout, err)
		}
		return wedding.Message{}, err
	}

	if resp.ConversationID != "" {
		c.conversationID = resp.ConversationID
	}
	msg := assistantMessage(resp, c.now())
	if organizationMode {
		c.project = wedding.Apply(c.project, resp.Response, resp.Vendors)
	}
	c.messages = append(c.messages, msg)
	c.turns++

	c.status = StatusIdle
	if c.gated(user) {
		c.status = StatusAuthRequired
	}
	return msg, nil
}

func assistantMessage(resp wedding.TurnResponse, ts time.Time) wedding.Message {
	r := resp.Response
	msg := wedding.Message{
		Role:           wedding.RoleAssistant,
		Content:        r.Text(),
		Timestamp:      ts,
		AskLocation:    r.AskLocation,
		CTASelection:   r.CTASelection,
		VendorCategory: r.VendorCategory,
	}
	if len(resp.Vendors) > 0 {
		msg.Vendors = append([]wedding.Vendor(nil), resp.Vendors...)
	}
	return msg
}

// SaveProjectToDashboard writes the current project for the signed-in user
// and returns the new project id.
func (c *Controller) SaveProjectToDashboard(ctx context.Context) (string, error) {
	user := c.currentUser(ctx)
	if user == nil {
		return "", ErrAuthRequired
	}

	c.mu.Lock()
	project := c.project.Clone()
	convID := c.conversationID
	c.mu.Unlock()

	if !project.HasContent() {
		return "", ErrEmptyProject
	}

	id, err := c.saver.InsertProject(ctx, wedding.ProjectRecord{
		UserID:         user.UserID,
		Title:          project.Title(),
		ConversationID: convID,
		Project:        *project,
		CreatedAt:      c.now(),
	})
	if err != nil {
		return "", fmt.Errorf("saving project: %w", err)
	}
	return id, nil
}

// StartNewProject clears the transcript, project, conversation and turn
// counter and starts a new session id. It is refused with ErrAuthRequired
// when the anonymous turn limit has been reached.
func (c *Controller) StartNewProject(ctx context.Context) error {
	user := c.currentUser(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return ErrBusy
	}
	if c.gated(user) {
		c.status = StatusAuthRequired
		return ErrAuthRequired
	}
	c.messages = []wedding.Message{}
	c.project = nil
	c.conversationID = ""
	c.turns = 0
	c.sessionID = c.newSessionID()
	c.status = StatusIdle
	return nil
}

// gated reports whether an anonymous session has used up its turns.
// Callers hold c.mu.
func (c *Controller) gated(user *Identity) bool {
	return user == nil && c.anonymousLimit >= 0 && c.turns >= c.anonymousLimit
}

func (c *Controller) currentUser(ctx context.Context) *Identity {
	if c.identity == nil {
		return nil
	}
	user, err := c.identity.CurrentUser(ctx)
	if err != nil {
		slog.Warn("identity lookup failed, continuing anonymously", "error", err)
		return nil
	}
	if user == nil || user.UserID == "" {
		return nil
	}
	return user
}

// Status returns the controller state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Messages returns a copy of the transcript.
func (c *Controller) Messages() []wedding.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]wedding.Message(nil), c.messages...)
}

// Project returns a copy of the current project, or nil.
func (c *Controller) Project() *wedding.Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.project.Clone()
}

// ConversationID returns the server-side conversation id, if any.
func (c *Controller) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID
}

// SessionID returns the current session id.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Turns returns the number of completed turns.
func (c *Controller) Turns() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turns
}
