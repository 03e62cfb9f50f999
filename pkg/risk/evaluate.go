package risk

import "fmt"

// Rule identifiers reported by Evaluate. They are stable and appear in
// explanations and history reasons.
const (
	RuleNoSignals            = "no-signals"
	RuleCriticalNonRegen     = "critical-non-regenerative"
	RuleLegalHigh            = "legal-high"
	RuleRegenerativeCritical = "regenerative-critical"
	RuleHighSeverity         = "high-severity"
	RuleMediumSeverity       = "medium-severity"
	RuleLowSeverity          = "low-severity"
	RuleFallback             = "fallback"
)

// Evaluation is the proposal produced by Evaluate.
type Evaluation struct {
	Proposed State  `json:"proposed_state"`
	Rule     string `json:"rule"`
}

// Evaluate maps normalized signals and a contract tier to a proposed state.
// Rules are checked in priority order and each one scans the whole list,
// so the result does not depend on signal order. It never sees the current
// persisted state.
func Evaluate(signals []Signal, contract ContractType) (Evaluation, error) {
	if !contract.Valid() {
		return Evaluation{}, fmt.Errorf("%w: %q", ErrInvalidContractType, string(contract))
	}

	if len(signals) == 0 {
		return Evaluation{Proposed: StateClear, Rule: RuleNoSignals}, nil
	}

	if anySignal(signals, func(s Signal) bool {
		return s.Severity == SeverityCritical && s.Source != SourceRegenerative
	}) {
		return Evaluation{Proposed: StateBlocked, Rule: RuleCriticalNonRegen}, nil
	}

	if anySignal(signals, func(s Signal) bool {
		return s.Severity == SeverityHigh && s.Source == SourceLegal
	}) {
		return Evaluation{Proposed: StateBlocked, Rule: RuleLegalHigh}, nil
	}

	if anySignal(signals, func(s Signal) bool {
		return s.Severity == SeverityCritical && s.Source == SourceRegenerative
	}) {
		if contract == ContractManagedRegenerative {
			return Evaluation{Proposed: StateBlocked, Rule: RuleRegenerativeCritical}, nil
		}
		return Evaluation{Proposed: StateCritical, Rule: RuleRegenerativeCritical}, nil
	}

	if anySignal(signals, func(s Signal) bool { return s.Severity == SeverityHigh }) {
		legal := anySignal(signals, func(s Signal) bool {
			return s.Severity == SeverityHigh && s.Source == SourceLegal
		})
		if contract == ContractSeasonalOptimization && !legal {
			return Evaluation{Proposed: StateElevated, Rule: RuleHighSeverity}, nil
		}
		return Evaluation{Proposed: StateCritical, Rule: RuleHighSeverity}, nil
	}

	if anySignal(signals, func(s Signal) bool { return s.Severity == SeverityMedium }) {
		return Evaluation{Proposed: StateElevated, Rule: RuleMediumSeverity}, nil
	}

	if anySignal(signals, func(s Signal) bool { return s.Severity == SeverityLow }) {
		return Evaluation{Proposed: StateObserved, Rule: RuleLowSeverity}, nil
	}

	return Evaluation{Proposed: StateClear, Rule: RuleFallback}, nil
}

func anySignal(signals []Signal, pred func(Signal) bool) bool {
	for _, s := range signals {
		if pred(s) {
			return true
		}
	}
	return false
}
