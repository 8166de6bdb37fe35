// internal/scheduling/finder.go
package scheduling

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"time"

	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/common/logger"
	"mfg-orchestrator/internal/models"
)

var (
	ErrNoCapacityFound = stderrors.New("NO_CAPACITY_FOUND")
	ErrInvalidWindow   = stderrors.New("INVALID_WINDOW")
)

const maxAlternatives = 3

// Repository is the persistence the finder needs.
type Repository interface {
	OperationalMachinesByType(ctx context.Context, machineType string) ([]models.Machine, error)
	ListMachines(ctx context.Context) ([]models.Machine, error)
	GetMachine(ctx context.Context, id int64) (*models.Machine, error)
	// BlockingReservations returns reserved/in-progress slots of one machine
	// ending after the given instant, ordered by start.
	BlockingReservations(ctx context.Context, machineID int64, endingAfter time.Time) ([]models.Reservation, error)
	ReservationsBetween(ctx context.Context, from, to time.Time) ([]models.Reservation, error)
	// CreateReservation inserts atomically and fails with SLOT_CONFLICT on overlap.
	CreateReservation(ctx context.Context, r models.Reservation) (*models.Reservation, error)
	ReleaseReservation(ctx context.Context, id int64) error
}

type SlotFinder struct {
	repo   Repository
	logger logger.Logger
}

func NewSlotFinder(repo Repository, log logger.Logger) *SlotFinder {
	return &SlotFinder{
		repo:   repo,
		logger: log.With(map[string]interface{}{"component": "slot-finder"}),
	}
}

// Hours converts fractional hours to a duration.
func Hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

// FindSlot returns the earliest window of durationHours on any operational
// machine of machineType, plus up to three alternatives on other machines.
func (f *SlotFinder) FindSlot(ctx context.Context, machineType string, durationHours float64, earliestStart time.Time) (*models.SlotResult, error) {
	if durationHours <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive, got %v", ErrInvalidWindow, durationHours)
	}
	d := Hours(durationHours)

	machines, err := f.repo.OperationalMachinesByType(ctx, machineType)
	if err != nil {
		return nil, err
	}
	if len(machines) == 0 {
		return nil, errors.NewNoCapacityFoundError(machineType, ErrNoCapacityFound)
	}

	candidates := make([]models.SlotCandidate, 0, len(machines))
	for _, m := range machines {
		reservations, err := f.repo.BlockingReservations(ctx, m.ID, earliestStart)
		if err != nil {
			return nil, err
		}
		start := NextAvailableStart(reservations, earliestStart, d)
		candidates = append(candidates, models.SlotCandidate{
			MachineID:   m.ID,
			MachineName: m.Name,
			Start:       start,
			End:         start.Add(d),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Start.Equal(candidates[j].Start) {
			return candidates[i].MachineID < candidates[j].MachineID
		}
		return candidates[i].Start.Before(candidates[j].Start)
	})

	result := &models.SlotResult{Best: candidates[0], Alternatives: []models.SlotCandidate{}}
	for _, c := range candidates[1:] {
		if len(result.Alternatives) == maxAlternatives {
			break
		}
		result.Alternatives = append(result.Alternatives, c)
	}

	f.logger.Debug("slot found", map[string]interface{}{
		"machineType":  machineType,
		"machineId":    result.Best.MachineID,
		"start":        result.Best.Start,
		"alternatives": len(result.Alternatives),
	})
	return result, nil
}

// NextAvailableStart picks the earliest start of a window of length d on one
// machine. Only reserved/in-progress intervals count; intervals are half-open,
// so a window may begin exactly where a reservation ends.
func NextAvailableStart(reservations []models.Reservation, earliest time.Time, d time.Duration) time.Time {
	blocking := make([]models.Reservation, 0, len(reservations))
	for _, r := range reservations {
		if r.Status.Blocking() && r.End.After(earliest) {
			blocking = append(blocking, r)
		}
	}
	if len(blocking) == 0 {
		return earliest
	}

	sort.Slice(blocking, func(i, j int) bool { return blocking[i].Start.Before(blocking[j].Start) })

	if !earliest.Add(d).After(blocking[0].Start) {
		return earliest
	}

	maxEnd := blocking[0].End
	for i := 0; i < len(blocking)-1; i++ {
		if blocking[i].End.After(maxEnd) {
			maxEnd = blocking[i].End
		}
		gapStart := maxEnd
		gapEnd := blocking[i+1].Start
		if !gapStart.Before(earliest) && gapEnd.Sub(gapStart) >= d {
			return gapStart
		}
	}

	last := blocking[len(blocking)-1].End
	if last.After(maxEnd) {
		maxEnd = last
	}
	return maxEnd
}

// Overlaps reports whether two half-open intervals intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ReserveSlot books [start, end) on a machine.
func (f *SlotFinder) ReserveSlot(ctx context.Context, machineID int64, start, end time.Time, jobID *int64, notes string) (*models.Reservation, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("%w: end must be after start", ErrInvalidWindow)
	}
	if _, err := f.repo.GetMachine(ctx, machineID); err != nil {
		return nil, err
	}

	r, err := f.repo.CreateReservation(ctx, models.Reservation{
		MachineID: machineID,
		JobID:     jobID,
		Start:     start,
		End:       end,
		Status:    models.SlotReserved,
		Notes:     notes,
	})
	if err != nil {
		return nil, err
	}

	f.logger.Info("slot reserved", map[string]interface{}{
		"machineId":     machineID,
		"reservationId": r.ID,
		"start":         start,
		"end":           end,
	})
	return r, nil
}

// ReleaseSlot frees a reservation so it no longer blocks the machine.
func (f *SlotFinder) ReleaseSlot(ctx context.Context, reservationID int64) error {
	return f.repo.ReleaseReservation(ctx, reservationID)
}

// Schedules returns every machine with the slots overlapping [from, to),
// ordered by machine id then slot start.
func (f *SlotFinder) Schedules(ctx context.Context, from, to time.Time) ([]models.MachineSchedule, error) {
	machines, err := f.repo.ListMachines(ctx)
	if err != nil {
		return nil, err
	}
	reservations, err := f.repo.ReservationsBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	byMachine := make(map[int64][]models.Reservation)
	for _, r := range reservations {
		byMachine[r.MachineID] = append(byMachine[r.MachineID], r)
	}

	sort.Slice(machines, func(i, j int) bool { return machines[i].ID < machines[j].ID })

	out := make([]models.MachineSchedule, 0, len(machines))
	for _, m := range machines {
		slots := byMachine[m.ID]
		sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
		if slots == nil {
			slots = []models.Reservation{}
		}
		out = append(out, models.MachineSchedule{
			MachineID:   m.ID,
			MachineName: m.Name,
			MachineType: m.MachineType,
			Status:      m.Status,
			Slots:       slots,
		})
	}
	return out, nil
}

// Utilization is the booked share of [from, to) across the given schedules.
func Utilization(schedules []models.MachineSchedule, from, to time.Time) float64 {
	window := to.Sub(from)
	if window <= 0 || len(schedules) == 0 {
		return 0
	}

	var booked time.Duration
	for _, s := range schedules {
		for _, r := range s.Slots {
			if !r.Status.Blocking() {
				continue
			}
			start, end := r.Start, r.End
			if start.Before(from) {
				start = from
			}
			if end.After(to) {
				end = to
			}
			if end.After(start) {
				booked += end.Sub(start)
			}
		}
	}
	return float64(booked) / float64(window*time.Duration(len(schedules)))
}
