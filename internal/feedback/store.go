// Package feedback persists interview feedback per thread and step.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/prepit/audioproc/internal/database"
	"github.com/prepit/audioproc/internal/models"
)

var ErrNotFound = errors.New("feedback not found")

type Store struct {
	db    database.Querier
	table string
}

func NewStore(db database.Querier, table string) *Store {
	return &Store{db: db, table: pgx.Identifier{table}.Sanitize()}
}

// Put stores feedback for a step, replacing earlier feedback for the same step.
func (s *Store) Put(ctx context.Context, fb models.Feedback) (*models.Feedback, error) {
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (thread_id, step_id, agent_id, feedback, created_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (thread_id, step_id) DO UPDATE
		 SET agent_id = EXCLUDED.agent_id, feedback = EXCLUDED.feedback, created_at = EXCLUDED.created_at`,
		s.table,
	), fb.ThreadID, fb.StepID, fb.AgentID, fb.Feedback, fb.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("put feedback %s/%d: %w", fb.ThreadID, fb.StepID, err)
	}
	return &fb, nil
}

func (s *Store) Get(ctx context.Context, threadID string, stepID int) (*models.Feedback, error) {
	var fb models.Feedback
	err := s.db.QueryRow(ctx, fmt.Sprintf(
		`SELECT thread_id, step_id, agent_id, feedback, created_at FROM %s WHERE thread_id = $1 AND step_id = $2`,
		s.table,
	), threadID, stepID).Scan(&fb.ThreadID, &fb.StepID, &fb.AgentID, &fb.Feedback, &fb.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get feedback %s/%d: %w", threadID, stepID, err)
	}
	return &fb, nil
}
