package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/wedding"
)

const conversationColumns = `id, session_id, user_id, messages, wedding_context, created_at, updated_at`

// GetConversation returns the conversation with the given id, or ErrNotFound.
func (s *Store) GetConversation(ctx context.Context, id string) (wedding.Conversation, error) {
	row := s.queryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id)
	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return wedding.Conversation{}, ErrNotFound
	}
	return c, err
}

// UpsertConversation inserts c, or replaces the transcript and wedding
// context of the existing row with the same id. An empty id gets a new one.
// An empty user id never clears a stored one. It returns the conversation id.
func (s *Store) UpsertConversation(ctx context.Context, c wedding.Conversation) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}

	messages := c.Messages
	if messages == nil {
		messages = []wedding.Message{}
	}
	msgJSON, err := json.Marshal(messages)
	if err != nil {
		return "", fmt.Errorf("marshaling messages: %w", err)
	}

	var weddingCtx sql.NullString
	if c.WeddingContext != nil {
		b, err := json.Marshal(c.WeddingContext)
		if err != nil {
			return "", fmt.Errorf("marshaling wedding context: %w", err)
		}
		weddingCtx = sql.NullString{String: string(b), Valid: true}
	}

	_, err = s.exec(ctx, `
		INSERT INTO conversations (`+conversationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			session_id = excluded.session_id,
			user_id = COALESCE(excluded.user_id, conversations.user_id),
			messages = excluded.messages,
			wedding_context = excluded.wedding_context,
			updated_at = excluded.updated_at`,
		c.ID, c.SessionID, nullString(c.UserID), string(msgJSON), weddingCtx,
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		return "", fmt.Errorf("upserting conversation %s: %w", c.ID, err)
	}
	return c.ID, nil
}

// ListConversations returns conversations matching f, most recently updated first.
func (s *Store) ListConversations(ctx context.Context, f ConversationFilter) ([]wedding.Conversation, error) {
	var where []string
	var args []any
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, f.SessionID)
	}

	q := `SELECT ` + conversationColumns + ` FROM conversations`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY updated_at DESC, id ASC LIMIT ? OFFSET ?"
	args = append(args, clampLimit(f.Limit), max(f.Offset, 0))

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []wedding.Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(r rowScanner) (wedding.Conversation, error) {
	var c wedding.Conversation
	var userID, weddingCtx sql.NullString
	var msgJSON, createdAt, updatedAt string
	if err := r.Scan(&c.ID, &c.SessionID, &userID, &msgJSON, &weddingCtx, &createdAt, &updatedAt); err != nil {
		return wedding.Conversation{}, err
	}
	c.UserID = userID.String

	if err := json.Unmarshal([]byte(msgJSON), &c.Messages); err != nil {
		return wedding.Conversation{}, fmt.Errorf("decoding messages of %s: %w", c.ID, err)
	}
	if c.Messages == nil {
		c.Messages = []wedding.Message{}
	}
	if weddingCtx.Valid && weddingCtx.String != "" {
		var r wedding.Reply
		if err := json.Unmarshal([]byte(weddingCtx.String), &r); err != nil {
			return wedding.Conversation{}, fmt.Errorf("decoding wedding context of %s: %w", c.ID, err)
		}
		c.WeddingContext = &r
	}

	var err error
	if c.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return wedding.Conversation{}, err
	}
	if c.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return wedding.Conversation{}, err
	}
	return c, nil
}
