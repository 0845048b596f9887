// Package prompt stores per-step agent prompts in Postgres with a Redis read cache.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/prepit/audioproc/internal/cache"
	"github.com/prepit/audioproc/internal/database"
	"github.com/prepit/audioproc/internal/logging"
	"github.com/prepit/audioproc/internal/models"
)

var ErrNotFound = errors.New("prompt not found")

type Repository interface {
	Put(ctx context.Context, p models.AgentPrompt) error
	Get(ctx context.Context, agentID, step string) (*models.AgentPrompt, error)
	ListByAgent(ctx context.Context, agentID string) ([]models.AgentPrompt, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	log   zerolog.Logger
}

func NewService(repo Repository, c Cache, ttl time.Duration) *Service {
	return &Service{repo: repo, cache: c, ttl: ttl, log: logging.WithComponent("prompt")}
}

func cacheKey(agentID, step string) string {
	return agentID + "_" + step
}

// Put stores the prompt and refreshes its cache entry. A cache failure is logged and
// does not fail the write.
func (s *Service) Put(ctx context.Context, agentID, step, text string) (*models.AgentPrompt, error) {
	p := models.AgentPrompt{AgentID: agentID, Step: step, Prompt: text, UpdatedAt: time.Now().UTC()}
	if err := s.repo.Put(ctx, p); err != nil {
		return nil, fmt.Errorf("put prompt %s/%s: %w", agentID, step, err)
	}
	s.remember(ctx, p)
	return &p, nil
}

// Get reads through the cache.
func (s *Service) Get(ctx context.Context, agentID, step string) (*models.AgentPrompt, error) {
	var cached models.AgentPrompt
	err := s.cache.Get(ctx, cacheKey(agentID, step), &cached)
	if err == nil {
		s.log.Debug().Str("agent_id", agentID).Str("step", step).Msg("prompt cache hit")
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.log.Warn().Err(err).Str("agent_id", agentID).Msg("prompt cache unavailable")
	}

	p, err := s.repo.Get(ctx, agentID, step)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, *p)
	return p, nil
}

// CacheAllSteps warms the cache with every step of an agent and returns how many
// prompts were cached.
func (s *Service) CacheAllSteps(ctx context.Context, agentID string) (int, error) {
	prompts, err := s.repo.ListByAgent(ctx, agentID)
	if err != nil {
		return 0, fmt.Errorf("list prompts for %s: %w", agentID, err)
	}
	if len(prompts) == 0 {
		return 0, ErrNotFound
	}

	for _, p := range prompts {
		if err := s.cache.Set(ctx, cacheKey(p.AgentID, p.Step), p, s.ttl); err != nil {
			return 0, fmt.Errorf("cache prompt %s/%s: %w", p.AgentID, p.Step, err)
		}
	}
	s.log.Info().Str("agent_id", agentID).Int("steps", len(prompts)).Msg("cached agent prompts")
	return len(prompts), nil
}

func (s *Service) remember(ctx context.Context, p models.AgentPrompt) {
	if err := s.cache.Set(ctx, cacheKey(p.AgentID, p.Step), p, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("agent_id", p.AgentID).Str("step", p.Step).Msg("failed to cache prompt")
	}
}

// PGRepository keeps prompts in Postgres keyed by (agent_id, step).
type PGRepository struct {
	db    database.Querier
	table string
}

func NewPGRepository(db database.Querier, table string) *PGRepository {
	return &PGRepository{db: db, table: pgx.Identifier{table}.Sanitize()}
}

func (r *PGRepository) Put(ctx context.Context, p models.AgentPrompt) error {
	_, err := r.db.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (agent_id, step, prompt, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (agent_id, step) DO UPDATE SET prompt = EXCLUDED.prompt, updated_at = EXCLUDED.updated_at`,
		r.table,
	), p.AgentID, p.Step, p.Prompt, p.UpdatedAt)
	return err
}

func (r *PGRepository) Get(ctx context.Context, agentID, step string) (*models.AgentPrompt, error) {
	var p models.AgentPrompt
	err := r.db.QueryRow(ctx, fmt.Sprintf(
		`SELECT agent_id, step, prompt, updated_at FROM %s WHERE agent_id = $1 AND step = $2`, r.table,
	), agentID, step).Scan(&p.AgentID, &p.Step, &p.Prompt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get prompt: %w", err)
	}
	return &p, nil
}

func (r *PGRepository) ListByAgent(ctx context.Context, agentID string) ([]models.AgentPrompt, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(
		`SELECT agent_id, step, prompt, updated_at FROM %s WHERE agent_id = $1 ORDER BY step`, r.table,
	), agentID)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	defer rows.Close()

	var prompts []models.AgentPrompt
	for rows.Next() {
		var p models.AgentPrompt
		if err := rows.Scan(&p.AgentID, &p.Step, &p.Prompt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		prompts = append(prompts, p)
	}
	return prompts, rows.Err()
}
