// internal/models/production.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MachineStatusOperational = "operational"
	MachineStatusMaintenance = "maintenance"
	MachineStatusOffline     = "offline"
)

// SlotStatus is the lifecycle of a production slot.
type SlotStatus string

const (
	SlotAvailable  SlotStatus = "available"
	SlotReserved   SlotStatus = "reserved"
	SlotInProgress SlotStatus = "in_progress"
	SlotCompleted  SlotStatus = "completed"
)

// Blocking reports whether a slot occupies machine time.
func (s SlotStatus) Blocking() bool {
	return s == SlotReserved || s == SlotInProgress
}

type Machine struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	MachineType string          `json:"machineType"`
	HourlyRate  decimal.Decimal `json:"hourlyRate"`
	Status      string          `json:"status"`
	Location    string          `json:"location,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Reservation is a production slot on one machine, half-open [Start, End).
type Reservation struct {
	ID        int64      `json:"id"`
	MachineID int64      `json:"machineId"`
	JobID     *int64     `json:"jobId,omitempty"`
	Start     time.Time  `json:"start"`
	End       time.Time  `json:"end"`
	Status    SlotStatus `json:"status"`
	Notes     string     `json:"notes,omitempty"`
}

// SlotCandidate is a feasible, non-conflicting window on one machine.
type SlotCandidate struct {
	MachineID   int64     `json:"machineId"`
	MachineName string    `json:"machineName"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// SlotResult is the chosen slot plus up to three alternatives on other machines.
type SlotResult struct {
	Best         SlotCandidate   `json:"best"`
	Alternatives []SlotCandidate `json:"alternatives"`
}

// MachineSchedule is the Gantt-style view of one machine.
type MachineSchedule struct {
	MachineID   int64         `json:"machineId"`
	MachineName string        `json:"machineName"`
	MachineType string        `json:"machineType"`
	Status      string        `json:"status"`
	Slots       []Reservation `json:"slots"`
}
