package learned

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlLearnedCorrections = `
CREATE TABLE IF NOT EXISTS learned_corrections (
    misspelling    TEXT              PRIMARY KEY,
    canonical      TEXT              NOT NULL,
    confidence     DOUBLE PRECISION  NOT NULL,
    seen_count     INTEGER           NOT NULL CHECK (seen_count >= 1),
    score_average  DOUBLE PRECISION  NOT NULL,
    updated_at     TIMESTAMPTZ       NOT NULL DEFAULT now()
);
`

// Migrate creates the learned_corrections table if it does not exist.
// It is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlLearnedCorrections); err != nil {
		return fmt.Errorf("learned: migrate: %w", err)
	}
	return nil
}
