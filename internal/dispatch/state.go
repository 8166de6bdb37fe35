// internal/dispatch/state.go
package dispatch

import (
	"fmt"
	"sync"
)

// State is one step of a single dispatch.
type State string

const (
	StateIdle            State = "idle"
	StateDispatched      State = "dispatched"
	StateStageInventory  State = "stage_inventory"
	StateStageScheduling State = "stage_scheduling"
	StateStageCosting    State = "stage_costing"
	StateSynthesizing    State = "synthesizing"
	StateTerminal        State = "terminal"
)

// Every non-terminal state may also exit to Terminal.
var transitions = map[State][]State{
	StateIdle:            {StateDispatched},
	StateDispatched:      {StateStageInventory, StateStageScheduling},
	StateStageInventory:  {StateStageScheduling, StateStageCosting},
	StateStageScheduling: {StateStageInventory, StateStageCosting},
	StateStageCosting:    {StateSynthesizing},
	StateSynthesizing:    {},
}

// machine tracks the states one request passes through. A state is entered
// at most once, so the inventory/scheduling pair cannot loop.
type machine struct {
	mu      sync.Mutex
	current State
	visited map[State]bool
	trace   []string
}

func newMachine() *machine {
	return &machine{
		current: StateIdle,
		visited: map[State]bool{StateIdle: true},
		trace:   []string{string(StateIdle)},
	}
}

func (m *machine) to(next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == StateTerminal {
		return fmt.Errorf("dispatch already terminal, cannot enter %s", next)
	}
	if m.visited[next] {
		return fmt.Errorf("state %s already visited", next)
	}
	if next != StateTerminal && !allowed(m.current, next) {
		return fmt.Errorf("invalid transition %s -> %s", m.current, next)
	}

	m.current = next
	m.visited[next] = true
	m.trace = append(m.trace, string(next))
	return nil
}

// finish moves to Terminal unless already there.
func (m *machine) finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == StateTerminal {
		return
	}
	m.current = StateTerminal
	m.visited[StateTerminal] = true
	m.trace = append(m.trace, string(StateTerminal))
}

func (m *machine) state() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *machine) Trace() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.trace))
	copy(out, m.trace)
	return out
}

func allowed(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
