// internal/store/analytics.go
package store

import (
	"context"

	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/models"

	"github.com/shopspring/decimal"
)

// JobCountsByStatus returns the number of jobs per status.
func (s *Store) JobCountsByStatus(ctx context.Context) (map[models.JobStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("job_counts", err)
	}
	defer rows.Close()

	out := map[models.JobStatus]int{}
	for rows.Next() {
		var (
			status models.JobStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, errors.NewQueryExecutionFailedError("job_counts", err)
		}
		out[status] = count
	}
	return out, rows.Err()
}

// QuotedRevenue sums quoted prices of jobs that were not cancelled.
func (s *Store) QuotedRevenue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := s.db.QueryRowContext(ctx,
		`SELECT SUM(quoted_price) FROM jobs WHERE status <> $1`, models.JobCancelled).Scan(&total)
	if err != nil {
		return decimal.Zero, errors.NewQueryExecutionFailedError("quoted_revenue", err)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
