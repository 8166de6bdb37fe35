// internal/store/jobs.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/models"

	"github.com/shopspring/decimal"
)

const jobColumns = `id, job_number, customer_id, customer_name, customer_email, description,
	status, priority, po_number, financial_hold, financial_hold_reason, quoted_strategy,
	quoted_price, requested_delivery_date, estimated_delivery_date, created_at, updated_at`

func scanJob(row rowScanner) (*models.Job, error) {
	var (
		j                                             models.Job
		customerID                                    sql.NullInt64
		email, description, po, holdReason, strategy sql.NullString
		price                                         decimal.NullDecimal
		requested, estimated                          sql.NullTime
	)
	if err := row.Scan(
		&j.ID, &j.JobNumber, &customerID, &j.CustomerName, &email, &description,
		&j.Status, &j.Priority, &po, &j.FinancialHold, &holdReason, &strategy,
		&price, &requested, &estimated, &j.CreatedAt, &j.UpdatedAt,
	); err != nil {
		return nil, err
	}
	j.CustomerID = int64Ptr(customerID)
	j.CustomerEmail = email.String
	j.Description = description.String
	j.PONumber = po.String
	j.FinancialHoldReason = holdReason.String
	j.QuotedStrategy = strategy.String
	if price.Valid {
		p := price.Decimal
		j.QuotedPrice = &p
	}
	j.RequestedDeliveryDate = timePtr(requested)
	j.EstimatedDeliveryDate = timePtr(estimated)
	return &j, nil
}

func (s *Store) queryJobs(ctx context.Context, queryType, query string, args ...interface{}) ([]models.Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError(queryType, err)
	}
	defer rows.Close()

	jobs := []models.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError(queryType, err)
		}
		jobs = append(jobs, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError(queryType, err)
	}
	return jobs, nil
}

// CreateJob numbers the job YYYYMMDD-NNNN from the count of jobs already
// carrying today's prefix. Numbering and insert share one transaction.
func (s *Store) CreateJob(ctx context.Context, in models.NewJob) (*models.Job, error) {
	status := in.Status
	if status == "" {
		status = models.JobDraft
	}
	priority := in.Priority
	if priority == 0 {
		priority = 5
	}
	prefix := s.now().UTC().Format("20060102")

	var created *models.Job
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(id) FROM jobs WHERE job_number LIKE $1`, prefix+"-%").Scan(&count); err != nil {
			return errors.NewQueryExecutionFailedError("count_jobs_today", err)
		}
		number := fmt.Sprintf("%s-%04d", prefix, count+1)

		var price decimal.NullDecimal
		if in.QuotedPrice != nil {
			price = decimal.NewNullDecimal(*in.QuotedPrice)
		}
		j, err := scanJob(tx.QueryRowContext(ctx, `
			INSERT INTO jobs (job_number, customer_name, customer_email, description, status, priority,
				financial_hold, financial_hold_reason, quoted_strategy, quoted_price,
				requested_delivery_date, estimated_delivery_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING `+jobColumns,
			number, in.CustomerName, nullString(in.CustomerEmail), nullString(in.Description), status, priority,
			in.FinancialHold, nullString(in.FinancialHoldReason), nullString(in.QuotedStrategy), price,
			nullTime(in.RequestedDeliveryDate), nullTime(in.EstimatedDeliveryDate)))
		if err != nil {
			return errors.NewDatabaseInsertFailedError(err)
		}
		created = j
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("job created", map[string]interface{}{
		"jobNumber":     created.JobNumber,
		"status":        created.Status,
		"financialHold": created.FinancialHold,
	})
	return created, nil
}

func (s *Store) GetJobByNumber(ctx context.Context, jobNumber string) (*models.Job, error) {
	j, err := scanJob(s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE job_number = $1`, jobNumber))
	if isNoRows(err) {
		return nil, errors.NewJobNotFoundError(jobNumber)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get_job", err)
	}
	return j, nil
}

// ActiveJobs returns jobs that are neither completed nor cancelled, newest first.
func (s *Store) ActiveJobs(ctx context.Context, limit int) ([]models.Job, error) {
	return s.queryJobs(ctx, "active_jobs", `
		SELECT `+jobColumns+` FROM jobs
		WHERE status NOT IN ($1, $2)
		ORDER BY created_at DESC
		LIMIT $3`, models.JobCompleted, models.JobCancelled, limit)
}

// SearchJobs is the SQL fallback when the search index is unavailable.
func (s *Store) SearchJobs(ctx context.Context, query string, limit int) ([]models.Job, error) {
	pattern := "%" + strings.TrimSpace(query) + "%"
	return s.queryJobs(ctx, "search_jobs", `
		SELECT `+jobColumns+` FROM jobs
		WHERE job_number ILIKE $1 OR customer_name ILIKE $1 OR description ILIKE $1 OR po_number ILIKE $1
		ORDER BY created_at DESC
		LIMIT $2`, pattern, limit)
}

func (s *Store) UpdateJob(ctx context.Context, jobNumber string, u models.JobUpdate) (*models.Job, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{jobNumber}
	if u.Description != nil {
		args = append(args, *u.Description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}
	if u.Priority != nil {
		args = append(args, *u.Priority)
		sets = append(sets, fmt.Sprintf("priority = $%d", len(args)))
	}
	if u.RequestedDeliveryDate != nil {
		args = append(args, *u.RequestedDeliveryDate)
		sets = append(sets, fmt.Sprintf("requested_delivery_date = $%d", len(args)))
	}
	if len(args) == 1 {
		return nil, errors.NewMissingFieldError("priority, requested date or description")
	}

	j, err := scanJob(s.db.QueryRowContext(ctx,
		`UPDATE jobs SET `+strings.Join(sets, ", ")+` WHERE job_number = $1 RETURNING `+jobColumns, args...))
	if isNoRows(err) {
		return nil, errors.NewJobNotFoundError(jobNumber)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("update_job", err)
	}
	return j, nil
}

// TransitionJob moves a job to a new status if the transition table allows it.
func (s *Store) TransitionJob(ctx context.Context, jobNumber string, to models.JobStatus) (*models.Job, error) {
	var updated *models.Job
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var current models.JobStatus
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM jobs WHERE job_number = $1 FOR UPDATE`, jobNumber).Scan(&current)
		if isNoRows(err) {
			return errors.NewJobNotFoundError(jobNumber)
		}
		if err != nil {
			return errors.NewQueryExecutionFailedError("lock_job", err)
		}
		if !current.CanTransition(to) {
			return errors.NewInvalidJobTransitionError(jobNumber, string(current), string(to))
		}

		j, err := scanJob(tx.QueryRowContext(ctx, `
			UPDATE jobs SET status = $2, updated_at = NOW()
			WHERE job_number = $1
			RETURNING `+jobColumns, jobNumber, to))
		if err != nil {
			return errors.NewQueryExecutionFailedError("transition_job", err)
		}
		updated = j
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("job status changed", map[string]interface{}{"jobNumber": jobNumber, "status": to})
	return updated, nil
}

// AttachPO records the purchase order and releases the financial hold.
// A job parked in financial_hold returns to scheduled.
func (s *Store) AttachPO(ctx context.Context, jobNumber, poNumber string) (*models.Job, error) {
	j, err := scanJob(s.db.QueryRowContext(ctx, `
		UPDATE jobs SET
			po_number = $2,
			financial_hold = FALSE,
			financial_hold_reason = NULL,
			status = CASE WHEN status = $3 THEN $4 ELSE status END,
			updated_at = NOW()
		WHERE job_number = $1
		RETURNING `+jobColumns, jobNumber, poNumber, models.JobFinancialHold, models.JobScheduled))
	if isNoRows(err) {
		return nil, errors.NewJobNotFoundError(jobNumber)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("attach_po", err)
	}
	return j, nil
}
