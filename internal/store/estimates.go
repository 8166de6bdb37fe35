// internal/store/estimates.go
package store

import (
	"context"
	"database/sql"

	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/models"
)

const estimateSelect = `
	SELECT e.id, e.estimate_number, e.version, e.customer_id, c.name, c.email, e.status,
		e.currency_code, e.total_amount, e.valid_until, e.delivery_feasible, e.rejection_reason,
		e.sent_at, e.accepted_at, e.created_at
	FROM estimates e
	JOIN customers c ON c.id = e.customer_id`

func scanEstimate(row rowScanner) (*models.Estimate, error) {
	var (
		e                    models.Estimate
		email, reason        sql.NullString
		validUntil, sent, ok sql.NullTime
	)
	if err := row.Scan(
		&e.ID, &e.EstimateNumber, &e.Version, &e.CustomerID, &e.CustomerName, &email, &e.Status,
		&e.CurrencyCode, &e.TotalAmount, &validUntil, &e.DeliveryFeasible, &reason,
		&sent, &ok, &e.CreatedAt,
	); err != nil {
		return nil, err
	}
	e.CustomerEmail = email.String
	e.RejectionReason = reason.String
	e.ValidUntil = timePtr(validUntil)
	e.SentAt = timePtr(sent)
	e.AcceptedAt = timePtr(ok)
	return &e, nil
}

// ListEstimates returns the latest version of each estimate, newest first.
func (s *Store) ListEstimates(ctx context.Context, limit int) ([]models.Estimate, error) {
	rows, err := s.db.QueryContext(ctx, estimateSelect+`
		WHERE e.version = (SELECT MAX(version) FROM estimates WHERE estimate_number = e.estimate_number)
		ORDER BY e.created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list_estimates", err)
	}
	defer rows.Close()

	out := []models.Estimate{}
	for rows.Next() {
		e, err := scanEstimate(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError("list_estimates", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// GetEstimate returns the latest version of an estimate.
func (s *Store) GetEstimate(ctx context.Context, number string) (*models.Estimate, error) {
	e, err := scanEstimate(s.db.QueryRowContext(ctx, estimateSelect+`
		WHERE e.estimate_number = $1
		ORDER BY e.version DESC
		LIMIT 1`, number))
	if isNoRows(err) {
		return nil, errors.NewEstimateNotFoundError(number)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get_estimate", err)
	}
	return e, nil
}

// TransitionEstimate validates and applies a status change on the latest
// version. sent_at and accepted_at are stamped on the matching transitions.
func (s *Store) TransitionEstimate(ctx context.Context, number string, to models.EstimateStatus, reason string) (*models.Estimate, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			id      int64
			current models.EstimateStatus
		)
		err := tx.QueryRowContext(ctx, `
			SELECT id, status FROM estimates
			WHERE estimate_number = $1
			ORDER BY version DESC
			LIMIT 1
			FOR UPDATE`, number).Scan(&id, &current)
		if isNoRows(err) {
			return errors.NewEstimateNotFoundError(number)
		}
		if err != nil {
			return errors.NewQueryExecutionFailedError("lock_estimate", err)
		}
		if !current.CanTransition(to) {
			return errors.NewInvalidEstimateTransitionError(number, string(current), string(to))
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE estimates SET
				status = $2,
				rejection_reason = CASE WHEN $2 = 'rejected' THEN $3 ELSE rejection_reason END,
				sent_at = CASE WHEN $2 = 'sent' THEN $4 ELSE sent_at END,
				accepted_at = CASE WHEN $2 = 'accepted' THEN $4 ELSE accepted_at END,
				updated_at = $4
			WHERE id = $1`, id, to, nullString(reason), s.now().UTC())
		if err != nil {
			return errors.NewQueryExecutionFailedError("transition_estimate", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("estimate status changed", map[string]interface{}{"estimateNumber": number, "status": to})
	return s.GetEstimate(ctx, number)
}
