// internal/dispatch/state_test.go
package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		steps   []State
		wantErr bool
		trace   []string
	}{
		{
			name:  "parallel quote path",
			steps: []State{StateDispatched, StateStageScheduling, StateStageInventory, StateStageCosting, StateSynthesizing},
			trace: []string{"idle", "dispatched", "stage_scheduling", "stage_inventory", "stage_costing", "synthesizing"},
		},
		{
			name:  "sequential quote path",
			steps: []State{StateDispatched, StateStageInventory, StateStageScheduling, StateStageCosting, StateSynthesizing},
			trace: []string{"idle", "dispatched", "stage_inventory", "stage_scheduling", "stage_costing", "synthesizing"},
		},
		{
			name:  "early exit to terminal",
			steps: []State{StateDispatched, StateTerminal},
			trace: []string{"idle", "dispatched", "terminal"},
		},
		{
			name:    "skip dispatched",
			steps:   []State{StateStageInventory},
			wantErr: true,
			trace:   []string{"idle"},
		},
		{
			name:    "costing before any analysis",
			steps:   []State{StateDispatched, StateStageCosting},
			wantErr: true,
			trace:   []string{"idle", "dispatched"},
		},
		{
			name:    "inventory and scheduling cannot loop",
			steps:   []State{StateDispatched, StateStageInventory, StateStageScheduling, StateStageInventory},
			wantErr: true,
			trace:   []string{"idle", "dispatched", "stage_inventory", "stage_scheduling"},
		},
		{
			name:    "nothing after terminal",
			steps:   []State{StateTerminal, StateDispatched},
			wantErr: true,
			trace:   []string{"idle", "terminal"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMachine()
			var err error
			for _, s := range tt.steps {
				if err = m.to(s); err != nil {
					break
				}
			}
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.trace, m.Trace())
		})
	}
}

func TestMachine_Finish(t *testing.T) {
	m := newMachine()
	require.NoError(t, m.to(StateDispatched))

	m.finish()
	m.finish()

	assert.Equal(t, StateTerminal, m.state())
	assert.Equal(t, []string{"idle", "dispatched", "terminal"}, m.Trace())
}

func TestMachine_TraceIsCopy(t *testing.T) {
	m := newMachine()
	trace := m.Trace()
	trace[0] = "mutated"

	assert.Equal(t, []string{"idle"}, m.Trace())
}
