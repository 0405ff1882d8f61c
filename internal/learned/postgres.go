package learned

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ Backend = (*PostgresBackend)(nil)

// PostgresBackend stores entries in the learned_corrections table. Save runs
// in one transaction: every row is deleted and the full set is copied back
// in.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend connects to the database at dsn, verifies the
// connection and runs [Migrate].
func NewPostgresBackend(ctx context.Context, dsn string) (*PostgresBackend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("learned: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("learned: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresBackend{pool: pool}, nil
}

// Close releases all pooled connections. It always returns nil.
func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}

// Load implements [Backend].
func (b *PostgresBackend) Load(ctx context.Context) (map[string]Entry, error) {
	const q = `SELECT misspelling, canonical, confidence, seen_count, score_average
		FROM learned_corrections`

	rows, err := b.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("learned: postgres load: %w", err)
	}
	defer rows.Close()

	entries := map[string]Entry{}
	for rows.Next() {
		var (
			key string
			e   Entry
		)
		if err := rows.Scan(&key, &e.Canonical, &e.Confidence, &e.SeenCount, &e.ScoreAverage); err != nil {
			return nil, fmt.Errorf("learned: postgres scan: %w", err)
		}
		entries[key] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("learned: postgres rows: %w", err)
	}
	return entries, nil
}

// Save implements [Backend].
func (b *PostgresBackend) Save(ctx context.Context, entries map[string]Entry) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("learned: postgres begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM learned_corrections`); err != nil {
		return fmt.Errorf("learned: postgres clear: %w", err)
	}

	rows := make([][]any, 0, len(entries))
	for k, e := range entries {
		rows = append(rows, []any{k, e.Canonical, e.Confidence, e.SeenCount, e.ScoreAverage})
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"learned_corrections"},
		[]string{"misspelling", "canonical", "confidence", "seen_count", "score_average"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("learned: postgres copy: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("learned: postgres commit: %w", err)
	}
	return nil
}
