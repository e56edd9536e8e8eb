package planner

import (
	"fmt"

	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/wedding"
)

// State is a serializable copy of a session, used to resume it later.
type State struct {
	SessionID      string            `json:"session_id"`
	ConversationID string            `json:"conversation_id,omitempty"`
	Turns          int               `json:"turns"`
	Messages       []wedding.Message `json:"messages"`
	Project        *wedding.Project  `json:"project,omitempty"`
}

// Snapshot returns a copy of the session state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		SessionID:      c.sessionID,
		ConversationID: c.conversationID,
		Turns:          c.turns,
		Messages:       append([]wedding.Message{}, c.messages...),
		Project:        c.project.Clone(),
	}
}

// Restore replaces the session with s. It fails while a turn is in flight.
func (c *Controller) Restore(s State) error {
	if s.SessionID == "" {
		return fmt.Errorf("restoring session: missing session id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return ErrBusy
	}
	c.sessionID = s.SessionID
	c.conversationID = s.ConversationID
	c.turns = max(s.Turns, 0)
	c.messages = append([]wedding.Message{}, s.Messages...)
	c.project = s.Project.Clone()
	c.status = StatusIdle
	return nil
}
