package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/wedding"
)

const projectColumns = `id, user_id, title, conversation_id, project_json, created_at`

// InsertProject stores a dashboard project and returns its id.
func (s *Store) InsertProject(ctx context.Context, rec wedding.ProjectRecord) (string, error) {
	if rec.UserID == "" {
		return "", fmt.Errorf("project user id is required")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	body, err := json.Marshal(rec.Project)
	if err != nil {
		return "", fmt.Errorf("marshaling project: %w", err)
	}

	_, err = s.exec(ctx, `INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Title, nullString(rec.ConversationID), string(body), formatTime(rec.CreatedAt),
	)
	if err != nil {
		return "", fmt.Errorf("inserting project: %w", err)
	}
	return rec.ID, nil
}

// GetProject returns the project with the given id, or ErrNotFound.
func (s *Store) GetProject(ctx context.Context, id string) (wedding.ProjectRecord, error) {
	rec, err := scanProject(s.queryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return wedding.ProjectRecord{}, ErrNotFound
	}
	return rec, err
}

// ListProjects returns the projects of userID, newest first. An empty userID
// lists every project.
func (s *Store) ListProjects(ctx context.Context, userID string, limit, offset int) ([]wedding.ProjectRecord, error) {
	q := `SELECT ` + projectColumns + ` FROM projects`
	var args []any
	if userID != "" {
		q += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	q += ` ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?`
	args = append(args, clampLimit(limit), max(offset, 0))

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []wedding.ProjectRecord{}
	for rows.Next() {
		rec, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

func scanProject(r rowScanner) (wedding.ProjectRecord, error) {
	var rec wedding.ProjectRecord
	var convID sql.NullString
	var body, createdAt string
	if err := r.Scan(&rec.ID, &rec.UserID, &rec.Title, &convID, &body, &createdAt); err != nil {
		return wedding.ProjectRecord{}, err
	}
	rec.ConversationID = convID.String
	if err := json.Unmarshal([]byte(body), &rec.Project); err != nil {
		return wedding.ProjectRecord{}, fmt.Errorf("decoding project %s: %w", rec.ID, err)
	}
	var err error
	if rec.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return wedding.ProjectRecord{}, err
	}
	return rec, nil
}
