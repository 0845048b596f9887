// Package messages records which chat messages have an audio clip.
package messages

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/prepit/audioproc/internal/database"
)

type Store struct {
	db    database.Querier
	table string
}

func NewStore(db database.Querier, table string) *Store {
	return &Store{db: db, table: pgx.Identifier{table}.Sanitize()}
}

// MarkHasAudio sets has_audio on the message keyed by (threadID, createdAt), creating
// the row when the chat service has not written it yet. Repeated calls are harmless.
func (s *Store) MarkHasAudio(ctx context.Context, threadID string, createdAt int64) error {
	sql := fmt.Sprintf(
		`INSERT INTO %s (thread_id, created_at, has_audio, updated_at)
		 VALUES ($1, $2, true, now())
		 ON CONFLICT (thread_id, created_at) DO UPDATE SET has_audio = true, updated_at = now()`,
		s.table,
	)

	if _, err := s.db.Exec(ctx, sql, threadID, strconv.FormatInt(createdAt, 10)); err != nil {
		return fmt.Errorf("mark message %s/%d has audio: %w", threadID, createdAt, err)
	}
	return nil
}

// HasAudio reports the flag; a missing row counts as false.
func (s *Store) HasAudio(ctx context.Context, threadID string, createdAt int64) (bool, error) {
	sql := fmt.Sprintf(`SELECT has_audio FROM %s WHERE thread_id = $1 AND created_at = $2`, s.table)

	var has bool
	err := s.db.QueryRow(ctx, sql, threadID, strconv.FormatInt(createdAt, 10)).Scan(&has)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get message %s/%d: %w", threadID, createdAt, err)
	}
	return has, nil
}
