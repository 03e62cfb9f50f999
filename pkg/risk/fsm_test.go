package risk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition_Table(t *testing.T) {
	tests := []struct {
		name     string
		current  State
		proposed State
		want     State
	}{
		{"clear stays clear", StateClear, StateClear, StateClear},
		{"adjacent escalation passes", StateClear, StateObserved, StateObserved},
		{"escalation clamps to one rank", StateClear, StateCritical, StateObserved},
		{"elevated to critical passes", StateElevated, StateCritical, StateCritical},
		{"blocked from clear is immediate", StateClear, StateBlocked, StateBlocked},
		{"blocked to clear cools down one rank", StateBlocked, StateClear, StateCritical},
		{"critical to observed clamps to elevated", StateCritical, StateObserved, StateElevated},
		{"adjacent de-escalation passes", StateObserved, StateClear, StateClear},
		{"resolved from observed", StateObserved, StateResolved, StateResolved},
		{"resolved from blocked steps down", StateBlocked, StateResolved, StateCritical},
		{"resolved from elevated steps down", StateElevated, StateResolved, StateObserved},
		{"resolved from clear stays at rank zero", StateClear, StateResolved, StateClear},
		{"resolved is not terminal", StateResolved, StateElevated, StateObserved},
		{"resolved to clear is same rank", StateResolved, StateClear, StateClear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.current, tt.proposed)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransition_DeEscalationNeverLandsOnResolved(t *testing.T) {
	for _, current := range States {
		for _, proposed := range []State{StateClear, StateObserved, StateElevated, StateCritical} {
			got, err := Transition(current, proposed)
			require.NoError(t, err)
			assert.NotEqual(t, StateResolved, got, "%s -> %s", current, proposed)
		}
	}
}

func TestTransition_UnknownState(t *testing.T) {
	_, err := Transition(State("SUSPENDED"), StateClear)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownState))

	_, err = Transition(StateClear, State(""))
	assert.True(t, errors.Is(err, ErrUnknownState))
}

func TestVerdictOf(t *testing.T) {
	want := map[State]Verdict{
		StateClear:    VerdictAllowed,
		StateResolved: VerdictAllowed,
		StateObserved: VerdictAllowed,
		StateElevated: VerdictConditional,
		StateCritical: VerdictRestricted,
		StateBlocked:  VerdictBlocked,
	}
	require.Len(t, want, len(States))
	for s, v := range want {
		assert.Equal(t, v, VerdictOf(s), s)
	}
}

func TestVerdictOf_FailsClosed(t *testing.T) {
	for _, s := range []State{"", "clear", "UNKNOWN", "ALLOWED", "BLOCKED "} {
		assert.Equal(t, VerdictBlocked, VerdictOf(State(s)), "state %q", s)
	}
}

func TestStateAtRank(t *testing.T) {
	assert.Equal(t, StateClear, StateAtRank(-3))
	assert.Equal(t, StateClear, StateAtRank(0))
	assert.Equal(t, StateObserved, StateAtRank(1))
	assert.Equal(t, StateElevated, StateAtRank(2))
	assert.Equal(t, StateCritical, StateAtRank(3))
	assert.Equal(t, StateBlocked, StateAtRank(4))
	assert.Equal(t, StateBlocked, StateAtRank(9))

	for _, s := range States {
		r, err := s.Rank()
		require.NoError(t, err)
		if s == StateResolved {
			assert.Equal(t, StateClear, StateAtRank(r))
			continue
		}
		assert.Equal(t, s, StateAtRank(r))
	}
}

func TestParseState(t *testing.T) {
	s, err := ParseState("ELEVATED")
	require.NoError(t, err)
	assert.Equal(t, StateElevated, s)

	_, err = ParseState("elevated")
	assert.ErrorIs(t, err, ErrUnknownState)
}
