// internal/store/machines.go
package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/models"
)

var ErrMachineNotFound = stderrors.New("MACHINE_NOT_FOUND")

const machineColumns = `id, name, machine_type, hourly_rate, status, location, created_at`

func scanMachine(row rowScanner) (*models.Machine, error) {
	var (
		m        models.Machine
		location sql.NullString
	)
	if err := row.Scan(&m.ID, &m.Name, &m.MachineType, &m.HourlyRate, &m.Status, &location, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Location = location.String
	return &m, nil
}

func (s *Store) queryMachines(ctx context.Context, queryType, query string, args ...interface{}) ([]models.Machine, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError(queryType, err)
	}
	defer rows.Close()

	machines := []models.Machine{}
	for rows.Next() {
		m, err := scanMachine(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError(queryType, err)
		}
		machines = append(machines, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError(queryType, err)
	}
	return machines, nil
}

// OperationalMachinesByType returns operational machines of a type, lowest id first.
func (s *Store) OperationalMachinesByType(ctx context.Context, machineType string) ([]models.Machine, error) {
	return s.queryMachines(ctx, "machines_by_type", `
		SELECT `+machineColumns+` FROM machines
		WHERE LOWER(machine_type) = LOWER($1) AND status = $2
		ORDER BY id`, machineType, models.MachineStatusOperational)
}

func (s *Store) ListMachines(ctx context.Context) ([]models.Machine, error) {
	return s.queryMachines(ctx, "list_machines", `SELECT `+machineColumns+` FROM machines ORDER BY id`)
}

func (s *Store) GetMachine(ctx context.Context, id int64) (*models.Machine, error) {
	m, err := scanMachine(s.db.QueryRowContext(ctx, `SELECT `+machineColumns+` FROM machines WHERE id = $1`, id))
	if isNoRows(err) {
		return nil, fmt.Errorf("%w: %d", ErrMachineNotFound, id)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get_machine", err)
	}
	return m, nil
}

func (s *Store) AddMachine(ctx context.Context, m models.Machine) (*models.Machine, error) {
	status := m.Status
	if status == "" {
		status = models.MachineStatusOperational
	}
	created, err := scanMachine(s.db.QueryRowContext(ctx, `
		INSERT INTO machines (name, machine_type, hourly_rate, status, location)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+machineColumns,
		m.Name, m.MachineType, m.HourlyRate, status, nullString(m.Location)))
	if err != nil {
		return nil, errors.NewDatabaseInsertFailedError(err)
	}
	s.logger.Info("machine added", map[string]interface{}{"machineId": created.ID, "machineType": created.MachineType})
	return created, nil
}

// ==========================
// Production slots
// ==========================

const slotColumns = `id, machine_id, job_id, start_time, end_time, status, notes`

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var (
		r     models.Reservation
		jobID sql.NullInt64
		notes sql.NullString
	)
	if err := row.Scan(&r.ID, &r.MachineID, &jobID, &r.Start, &r.End, &r.Status, &notes); err != nil {
		return nil, err
	}
	r.JobID = int64Ptr(jobID)
	r.Notes = notes.String
	return &r, nil
}

func (s *Store) queryReservations(ctx context.Context, queryType, query string, args ...interface{}) ([]models.Reservation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError(queryType, err)
	}
	defer rows.Close()

	out := []models.Reservation{}
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError(queryType, err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError(queryType, err)
	}
	return out, nil
}

// BlockingReservations returns reserved and in-progress slots of a machine
// that end after the given instant, ordered by start.
func (s *Store) BlockingReservations(ctx context.Context, machineID int64, endingAfter time.Time) ([]models.Reservation, error) {
	return s.queryReservations(ctx, "blocking_reservations", `
		SELECT `+slotColumns+` FROM production_slots
		WHERE machine_id = $1 AND status IN ($2, $3) AND end_time > $4
		ORDER BY start_time`,
		machineID, models.SlotReserved, models.SlotInProgress, endingAfter)
}

// ReservationsBetween returns every slot overlapping [from, to).
func (s *Store) ReservationsBetween(ctx context.Context, from, to time.Time) ([]models.Reservation, error) {
	return s.queryReservations(ctx, "reservations_between", `
		SELECT `+slotColumns+` FROM production_slots
		WHERE start_time < $2 AND end_time > $1
		ORDER BY machine_id, start_time`, from, to)
}

// CreateReservation inserts a slot after checking for overlap under a row
// lock on the machine, so two concurrent reservations cannot both succeed.
func (s *Store) CreateReservation(ctx context.Context, r models.Reservation) (*models.Reservation, error) {
	status := r.Status
	if status == "" {
		status = models.SlotReserved
	}

	var created *models.Reservation
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var lockedID int64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM machines WHERE id = $1 FOR UPDATE`, r.MachineID).Scan(&lockedID); err != nil {
			if isNoRows(err) {
				return fmt.Errorf("%w: %d", ErrMachineNotFound, r.MachineID)
			}
			return errors.NewQueryExecutionFailedError("lock_machine", err)
		}

		var conflicts int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM production_slots
			WHERE machine_id = $1 AND status IN ($2, $3)
			  AND start_time < $5 AND end_time > $4`,
			r.MachineID, models.SlotReserved, models.SlotInProgress, r.Start, r.End,
		).Scan(&conflicts); err != nil {
			return errors.NewQueryExecutionFailedError("slot_conflicts", err)
		}
		if conflicts > 0 {
			return errors.NewSlotConflictError(r.MachineID)
		}

		var jobID sql.NullInt64
		if r.JobID != nil {
			jobID = sql.NullInt64{Int64: *r.JobID, Valid: true}
		}
		res, err := scanReservation(tx.QueryRowContext(ctx, `
			INSERT INTO production_slots (machine_id, job_id, start_time, end_time, status, notes)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+slotColumns,
			r.MachineID, jobID, r.Start, r.End, status, nullString(r.Notes)))
		if err != nil {
			return errors.NewDatabaseInsertFailedError(err)
		}
		created = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) ReleaseReservation(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM production_slots WHERE id = $1`, id)
	if err != nil {
		return errors.NewQueryExecutionFailedError("release_reservation", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("reservation %d not found", id)
	}
	return nil
}
