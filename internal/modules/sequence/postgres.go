package sequence

import (
	"context"
	"database/sql"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates a counter repository backed by Postgres.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

// Next runs the read-increment-write as one statement so the row lock makes
// the counter a serialization point. This is deliberate: invoice numbering is
// a legal-compliance bottleneck, not a throughput path.
func (r *postgresRepo) Next(ctx context.Context, domain Domain, year int) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sequence_counters (domain, year, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (domain)
		DO UPDATE SET count = sequence_counters.count + 1, updated_at = now()
		RETURNING count`,
		domain, year).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
