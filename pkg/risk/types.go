// Package risk holds the risk governance domain: signals, the override
// normalizer, the verdict rule evaluator and the risk state machine.
//
// Everything in this package is a pure value transformer. Storage, collector
// fan-out and telemetry live in the aggregator package.
package risk

import (
	"fmt"
	"strings"
)

// Source identifies the domain that produced a signal.
type Source string

const (
	SourceFinance      Source = "FINANCE"
	SourceLegal        Source = "LEGAL"
	SourceRegenerative Source = "REGENERATIVE"
	SourceRnD          Source = "RND"
	SourceOps          Source = "OPS"
)

// Sources lists every known source in declaration order.
var Sources = []Source{SourceFinance, SourceLegal, SourceRegenerative, SourceRnD, SourceOps}

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceFinance, SourceLegal, SourceRegenerative, SourceRnD, SourceOps:
		return true
	default:
		return false
	}
}

// ParseSource parses a case-insensitive source name.
func ParseSource(v string) (Source, error) {
	s := Source(strings.ToUpper(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown risk source %q", v)
	}
	return s, nil
}

// Severity is the classification a collector assigned to a signal.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank returns the total order of the severity (LOW=1 .. CRITICAL=4).
// Unknown severities rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool { return s.Rank() > 0 }

// ParseSeverity parses a case-insensitive severity name.
func ParseSeverity(v string) (Severity, error) {
	s := Severity(strings.ToUpper(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown risk severity %q", v)
	}
	return s, nil
}

// State is the persisted risk posture of a target.
type State string

const (
	StateClear    State = "CLEAR"
	StateResolved State = "RESOLVED"
	StateObserved State = "OBSERVED"
	StateElevated State = "ELEVATED"
	StateCritical State = "CRITICAL"
	StateBlocked  State = "BLOCKED"
)

// States lists every known state.
var States = []State{StateClear, StateResolved, StateObserved, StateElevated, StateCritical, StateBlocked}

// MaxRank is the rank of BLOCKED.
const MaxRank = 4

// Rank returns the position of s in the total order. CLEAR and RESOLVED share rank 0.
func (s State) Rank() (int, error) {
	switch s {
	case StateClear, StateResolved:
		return 0, nil
	case StateObserved:
		return 1, nil
	case StateElevated:
		return 2, nil
	case StateCritical:
		return 3, nil
	case StateBlocked:
		return 4, nil
	default:
		return -1, fmt.Errorf("%w: %q", ErrUnknownState, string(s))
	}
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	_, err := s.Rank()
	return err == nil
}

// ParseState parses a persisted state value. Values are matched exactly;
// anything else is an ErrUnknownState.
func ParseState(v string) (State, error) {
	s := State(v)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownState, v)
	}
	return s, nil
}

// Verdict is the externally visible governance outcome.
type Verdict string

const (
	VerdictAllowed     Verdict = "ALLOWED"
	VerdictConditional Verdict = "CONDITIONAL"
	VerdictRestricted  Verdict = "RESTRICTED"
	VerdictBlocked     Verdict = "BLOCKED"
)

// ContractType is the governance tier of the business relationship.
type ContractType string

const (
	ContractSeasonalOptimization ContractType = "SEASONAL_OPTIMIZATION"
	ContractMultiYearAdvisory    ContractType = "MULTI_YEAR_ADVISORY"
	ContractManagedRegenerative  ContractType = "MANAGED_REGENERATIVE"
)

// ContractTypes lists every known contract tier.
var ContractTypes = []ContractType{ContractSeasonalOptimization, ContractMultiYearAdvisory, ContractManagedRegenerative}

// Valid reports whether c is a known contract tier.
func (c ContractType) Valid() bool {
	switch c {
	case ContractSeasonalOptimization, ContractMultiYearAdvisory, ContractManagedRegenerative:
		return true
	default:
		return false
	}
}

// ParseContractType parses a case-insensitive contract tier.
func ParseContractType(v string) (ContractType, error) {
	c := ContractType(strings.ToUpper(strings.TrimSpace(v)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidContractType, v)
	}
	return c, nil
}
