package risk

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCollectorFailure means a signal source could not be queried.
	ErrCollectorFailure = errors.New("risk collector failure")
	// ErrUnknownState means a state value is outside the known enum.
	ErrUnknownState = errors.New("unknown risk state")
	// ErrInvalidContractType means the caller supplied an unrecognized contract tier.
	ErrInvalidContractType = errors.New("invalid contract type")
	// ErrInvalidSignal means a collector produced a malformed signal.
	ErrInvalidSignal = errors.New("invalid risk signal")
	// ErrInvalidTarget means the assessment target identity is incomplete.
	ErrInvalidTarget = errors.New("invalid assessment target")
)

// AssessmentError explains why no assessment was produced for a target.
type AssessmentError struct {
	CompanyID  string
	TargetType string
	TargetID   string
	// Collector is the failing collector, if any.
	Collector string
	// Rule is the failing rule or stage, if any.
	Rule string
	Err  error
}

func (e *AssessmentError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "assess %s/%s/%s", e.CompanyID, e.TargetType, e.TargetID)
	if e.Collector != "" {
		fmt.Fprintf(&b, " collector=%s", e.Collector)
	}
	if e.Rule != "" {
		fmt.Fprintf(&b, " rule=%s", e.Rule)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *AssessmentError) Unwrap() error { return e.Err }

// NewAssessmentError builds an AssessmentError scoped to target.
func NewAssessmentError(target Target, err error) *AssessmentError {
	return &AssessmentError{
		CompanyID:  target.CompanyID,
		TargetType: target.TargetType,
		TargetID:   target.TargetID,
		Err:        err,
	}
}
