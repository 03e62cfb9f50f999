package risk

// InitialState is the state of any target with no history.
const InitialState = StateClear

// StateAtRank returns the canonical state for a rank. Rank 0 is always
// CLEAR: RESOLVED is only reachable through Transition(OBSERVED, RESOLVED).
// Out-of-range ranks are clamped.
func StateAtRank(rank int) State {
	switch {
	case rank <= 0:
		return StateClear
	case rank == 1:
		return StateObserved
	case rank == 2:
		return StateElevated
	case rank == 3:
		return StateCritical
	default:
		return StateBlocked
	}
}

// Transition decides the next state from the persisted current state and a
// proposal. Movement is limited to one rank per call, except that BLOCKED is
// always reachable immediately.
func Transition(current, proposed State) (State, error) {
	cur, err := current.Rank()
	if err != nil {
		return "", err
	}
	prop, err := proposed.Rank()
	if err != nil {
		return "", err
	}

	switch {
	case proposed == StateBlocked:
		return StateBlocked, nil
	case proposed == StateResolved:
		if current == StateObserved {
			return StateResolved, nil
		}
		return StateAtRank(cur - 1), nil
	case prop > cur+1:
		return StateAtRank(cur + 1), nil
	case prop < cur-1:
		return StateAtRank(cur - 1), nil
	default:
		return proposed, nil
	}
}

// VerdictOf maps a state to its verdict. It is total: unknown states fail
// closed to BLOCKED.
func VerdictOf(s State) Verdict {
	switch s {
	case StateClear, StateObserved, StateResolved:
		return VerdictAllowed
	case StateElevated:
		return VerdictConditional
	case StateCritical:
		return VerdictRestricted
	case StateBlocked:
		return VerdictBlocked
	default:
		return VerdictBlocked
	}
}
