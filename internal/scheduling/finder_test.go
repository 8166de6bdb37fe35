// internal/scheduling/finder_test.go
package scheduling

import (
	"context"
	stderrors "errors"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/common/logger"
	"mfg-orchestrator/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// In-memory repository
// ==========================

type fakeRepo struct {
	mu           sync.Mutex
	machines     []models.Machine
	reservations []models.Reservation
	nextID       int64
}

func (r *fakeRepo) OperationalMachinesByType(_ context.Context, machineType string) ([]models.Machine, error) {
	var out []models.Machine
	for _, m := range r.machines {
		if strings.EqualFold(m.MachineType, machineType) && m.Status == models.MachineStatusOperational {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListMachines(context.Context) ([]models.Machine, error) {
	return append([]models.Machine(nil), r.machines...), nil
}

func (r *fakeRepo) GetMachine(_ context.Context, id int64) (*models.Machine, error) {
	for _, m := range r.machines {
		if m.ID == id {
			m := m
			return &m, nil
		}
	}
	return nil, stderrors.New("machine not found")
}

func (r *fakeRepo) BlockingReservations(_ context.Context, machineID int64, endingAfter time.Time) ([]models.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Reservation
	for _, res := range r.reservations {
		if res.MachineID == machineID && res.Status.Blocking() && res.End.After(endingAfter) {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (r *fakeRepo) ReservationsBetween(_ context.Context, from, to time.Time) ([]models.Reservation, error) {
	var out []models.Reservation
	for _, res := range r.reservations {
		if Overlaps(res.Start, res.End, from, to) {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateReservation(_ context.Context, res models.Reservation) (*models.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reservations {
		if existing.MachineID == res.MachineID && existing.Status.Blocking() &&
			Overlaps(existing.Start, existing.End, res.Start, res.End) {
			return nil, errors.NewSlotConflictError(res.MachineID)
		}
	}
	r.nextID++
	res.ID = r.nextID
	r.reservations = append(r.reservations, res)
	return &res, nil
}

func (r *fakeRepo) ReleaseReservation(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.reservations {
		if r.reservations[i].ID == id {
			r.reservations[i].Status = models.SlotAvailable
			r.reservations[i].JobID = nil
		}
	}
	return nil
}

func machine(id int64, name, typ string) models.Machine {
	return models.Machine{
		ID:          id,
		Name:        name,
		MachineType: typ,
		HourlyRate:  decimal.NewFromInt(75),
		Status:      models.MachineStatusOperational,
	}
}

var base = time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)

func at(h float64) time.Time { return base.Add(Hours(h)) }

func reserved(machineID int64, from, to float64) models.Reservation {
	return models.Reservation{MachineID: machineID, Start: at(from), End: at(to), Status: models.SlotReserved}
}

// ==========================
// NextAvailableStart
// ==========================

func TestNextAvailableStart(t *testing.T) {
	tests := []struct {
		name         string
		reservations []models.Reservation
		earliest     float64
		duration     float64
		want         float64
	}{
		{name: "empty machine", earliest: 0, duration: 8, want: 0},
		{name: "fits before first", reservations: []models.Reservation{reserved(1, 10, 12)}, earliest: 0, duration: 8, want: 0},
		{name: "exactly fills before first", reservations: []models.Reservation{reserved(1, 8, 12)}, earliest: 0, duration: 8, want: 0},
		{name: "too long for lead gap", reservations: []models.Reservation{reserved(1, 4, 6)}, earliest: 0, duration: 8, want: 6},
		{
			name:         "uses first gap big enough",
			reservations: []models.Reservation{reserved(1, 2, 4), reserved(1, 6, 8), reserved(1, 20, 30)},
			earliest:     0,
			duration:     8,
			want:         8,
		},
		{
			name:         "back to back reservations have no gap",
			reservations: []models.Reservation{reserved(1, 0, 4), reserved(1, 4, 8)},
			earliest:     0,
			duration:     2,
			want:         8,
		},
		{
			name:         "earliest inside a reservation",
			reservations: []models.Reservation{reserved(1, 0, 5)},
			earliest:     3,
			duration:     1,
			want:         5,
		},
		{
			name: "non-blocking slots ignored",
			reservations: []models.Reservation{
				{MachineID: 1, Start: at(0), End: at(10), Status: models.SlotCompleted},
				{MachineID: 1, Start: at(0), End: at(10), Status: models.SlotAvailable},
			},
			earliest: 0,
			duration: 4,
			want:     0,
		},
		{
			name:         "ends before earliest are ignored",
			reservations: []models.Reservation{reserved(1, 0, 2)},
			earliest:     2,
			duration:     3,
			want:         2,
		},
		{
			name:         "after max end when nested",
			reservations: []models.Reservation{reserved(1, 1, 20), reserved(1, 5, 6)},
			earliest:     0,
			duration:     3,
			want:         20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextAvailableStart(tt.reservations, at(tt.earliest), Hours(tt.duration))
			assert.Equal(t, at(tt.want), got)
		})
	}
}

// ==========================
// FindSlot
// ==========================

func TestFindSlot_SelectsEarliestAndAlternatives(t *testing.T) {
	repo := &fakeRepo{
		machines: []models.Machine{
			machine(5, "CNC-5", "cnc"),
			machine(2, "CNC-2", "cnc"),
			machine(3, "CNC-3", "CNC"),
			machine(4, "CNC-4", "cnc"),
			machine(1, "CNC-1", "cnc"),
			machine(9, "Lathe-9", "lathe"),
		},
		reservations: []models.Reservation{
			reserved(1, 0, 10),
			reserved(2, 0, 4),
			reserved(3, 0, 4),
			reserved(4, 0, 6),
			reserved(5, 0, 20),
		},
	}
	finder := NewSlotFinder(repo, logger.NewTestLogger(t))

	res, err := finder.FindSlot(context.Background(), "cnc", 8, at(0))
	require.NoError(t, err)

	// machines 2 and 3 tie at hour 4; lowest id wins
	assert.Equal(t, int64(2), res.Best.MachineID)
	assert.Equal(t, at(4), res.Best.Start)
	assert.Equal(t, at(12), res.Best.End)

	require.Len(t, res.Alternatives, 3)
	assert.Equal(t, int64(3), res.Alternatives[0].MachineID)
	assert.Equal(t, int64(4), res.Alternatives[1].MachineID)
	assert.Equal(t, int64(1), res.Alternatives[2].MachineID)
	for i := 1; i < len(res.Alternatives); i++ {
		assert.False(t, res.Alternatives[i].Start.Before(res.Alternatives[i-1].Start))
	}
}

func TestFindSlot_NoMachines(t *testing.T) {
	finder := NewSlotFinder(&fakeRepo{machines: []models.Machine{machine(1, "Lathe", "lathe")}}, logger.NewNoOpLogger())

	_, err := finder.FindSlot(context.Background(), "cnc", 8, base)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrNoCapacityFound))
	assert.True(t, errors.HasCode(err, errors.ErrCodeNoCapacityFound))
}

func TestFindSlot_SkipsNonOperational(t *testing.T) {
	down := machine(1, "CNC-Down", "cnc")
	down.Status = models.MachineStatusMaintenance
	finder := NewSlotFinder(&fakeRepo{machines: []models.Machine{down}}, logger.NewNoOpLogger())

	_, err := finder.FindSlot(context.Background(), "cnc", 8, base)
	assert.ErrorIs(t, err, ErrNoCapacityFound)
}

func TestFindSlot_InvalidDuration(t *testing.T) {
	finder := NewSlotFinder(&fakeRepo{}, logger.NewNoOpLogger())
	_, err := finder.FindSlot(context.Background(), "cnc", 0, base)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

// Property: the chosen window never overlaps a blocking reservation, and no
// earlier feasible start exists on any machine of the type.
func TestFindSlot_NonOverlapAndMinimality(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 300; iter++ {
		repo := &fakeRepo{}
		machineCount := 1 + rng.Intn(4)
		for id := int64(1); id <= int64(machineCount); id++ {
			repo.machines = append(repo.machines, machine(id, "M", "cnc"))
			cursor := float64(rng.Intn(6))
			for n := rng.Intn(6); n > 0; n-- {
				length := float64(1 + rng.Intn(10))
				statuses := []models.SlotStatus{models.SlotReserved, models.SlotInProgress, models.SlotAvailable, models.SlotCompleted}
				repo.reservations = append(repo.reservations, models.Reservation{
					MachineID: id,
					Start:     at(cursor),
					End:       at(cursor + length),
					Status:    statuses[rng.Intn(len(statuses))],
				})
				cursor += length + float64(rng.Intn(8))
			}
		}

		earliest := float64(rng.Intn(30))
		duration := float64(1 + rng.Intn(8))
		finder := NewSlotFinder(repo, logger.NewNoOpLogger())

		res, err := finder.FindSlot(context.Background(), "cnc", duration, at(earliest))
		require.NoError(t, err)

		all := append([]models.SlotCandidate{res.Best}, res.Alternatives...)
		for _, c := range all {
			assert.False(t, c.Start.Before(at(earliest)))
			assert.Equal(t, c.Start.Add(Hours(duration)), c.End)
			assert.True(t, feasible(repo, c.MachineID, c.Start, c.End), "iteration %d overlaps", iter)
		}

		// brute force over every candidate instant on every machine
		for _, m := range repo.machines {
			points := []time.Time{at(earliest)}
			for _, r := range repo.reservations {
				if r.MachineID == m.ID && !r.End.Before(at(earliest)) {
					points = append(points, r.End)
				}
			}
			for _, p := range points {
				if p.Before(res.Best.Start) {
					assert.False(t, feasible(repo, m.ID, p, p.Add(Hours(duration))),
						"iteration %d: machine %d could start at %v before %v", iter, m.ID, p, res.Best.Start)
				}
			}
		}
	}
}

func feasible(repo *fakeRepo, machineID int64, start, end time.Time) bool {
	for _, r := range repo.reservations {
		if r.MachineID == machineID && r.Status.Blocking() && Overlaps(r.Start, r.End, start, end) {
			return false
		}
	}
	return true
}

// ==========================
// ReserveSlot / ReleaseSlot / Schedules
// ==========================

func TestReserveAndRelease(t *testing.T) {
	repo := &fakeRepo{machines: []models.Machine{machine(1, "CNC-1", "cnc")}}
	finder := NewSlotFinder(repo, logger.NewTestLogger(t))
	ctx := context.Background()

	first, err := finder.ReserveSlot(ctx, 1, at(0), at(8), nil, "job A")
	require.NoError(t, err)

	// half-open: starting at the previous end is fine
	_, err = finder.ReserveSlot(ctx, 1, at(8), at(10), nil, "job B")
	require.NoError(t, err)

	_, err = finder.ReserveSlot(ctx, 1, at(7), at(9), nil, "job C")
	assert.True(t, errors.HasCode(err, errors.ErrCodeSlotConflict))

	require.NoError(t, finder.ReleaseSlot(ctx, first.ID))
	_, err = finder.ReserveSlot(ctx, 1, at(2), at(6), nil, "job C")
	assert.NoError(t, err)

	_, err = finder.ReserveSlot(ctx, 1, at(6), at(6), nil, "empty")
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = finder.ReserveSlot(ctx, 99, at(20), at(21), nil, "ghost")
	assert.Error(t, err)
}

func TestSchedulesAndUtilization(t *testing.T) {
	repo := &fakeRepo{
		machines: []models.Machine{machine(2, "CNC-2", "cnc"), machine(1, "CNC-1", "cnc")},
		reservations: []models.Reservation{
			reserved(1, 10, 12),
			reserved(1, 0, 4),
			{MachineID: 1, Start: at(20), End: at(30), Status: models.SlotCompleted},
		},
	}
	finder := NewSlotFinder(repo, logger.NewNoOpLogger())

	schedules, err := finder.Schedules(context.Background(), at(0), at(20))
	require.NoError(t, err)
	require.Len(t, schedules, 2)

	assert.Equal(t, int64(1), schedules[0].MachineID)
	require.Len(t, schedules[0].Slots, 2)
	assert.Equal(t, at(0), schedules[0].Slots[0].Start)
	assert.Empty(t, schedules[1].Slots)
	assert.NotNil(t, schedules[1].Slots)

	// 6 booked hours over two machines * 20 hours
	assert.InDelta(t, 0.15, Utilization(schedules, at(0), at(20)), 1e-9)
	assert.Equal(t, 0.0, Utilization(nil, at(0), at(20)))
}
