package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chaincodec/internal/registry"
)

// Store persists schema summaries in Postgres so decode-side processes
// can pull a registry without access to the original CSDL sources.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the backing table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS event_schemas (
			selector   TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			definition JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	return err
}

// UpsertSchemas writes every schema in the summary, replacing rows with
// the same selector — the same last-loaded-wins semantics the in-memory
// registry has.
func (s *Store) UpsertSchemas(ctx context.Context, summary registry.Summary) error {
	if len(summary.Schemas) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, ss := range summary.Schemas {
		batch.Queue(`
			INSERT INTO event_schemas (selector, name, definition, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (selector)
			DO UPDATE SET
				name = EXCLUDED.name,
				definition = EXCLUDED.definition,
				updated_at = now()
		`,
			ss.Selector,
			ss.Name,
			ss,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range summary.Schemas {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadSummary reads every stored schema back into a summary, ordered by
// selector for determinism.
func (s *Store) LoadSummary(ctx context.Context) (registry.Summary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT definition FROM event_schemas ORDER BY selector
	`)
	if err != nil {
		return registry.Summary{}, err
	}
	defer rows.Close()

	var summary registry.Summary
	for rows.Next() {
		var ss registry.SchemaSummary
		if err := rows.Scan(&ss); err != nil {
			return registry.Summary{}, err
		}
		summary.Schemas = append(summary.Schemas, ss)
	}
	if err := rows.Err(); err != nil {
		return registry.Summary{}, err
	}
	return summary, nil
}
