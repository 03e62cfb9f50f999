package risk

import "time"

// HistoryEntry is one row of the append-only state-history ledger. A row is
// written only when ToState differs from FromState.
type HistoryEntry struct {
	ID         string `json:"id"`
	CompanyID  string `json:"company_id"`
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	// Seq is the 1-based position of the row within its target's ledger.
	Seq         int64     `json:"seq"`
	FromState   State     `json:"from_state"`
	ToState     State     `json:"to_state"`
	Reason      string    `json:"reason"`
	SignalCount int       `json:"signal_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Target returns the key the entry belongs to.
func (h HistoryEntry) Target() Target {
	return Target{CompanyID: h.CompanyID, TargetType: h.TargetType, TargetID: h.TargetID}
}

// Explanation is everything needed to justify, and later replay, a verdict.
type Explanation struct {
	State         State              `json:"state"`
	PreviousState State              `json:"previous_state"`
	ProposedState State              `json:"proposed_state"`
	Rule          string             `json:"rule"`
	ContractType  ContractType       `json:"contract_type"`
	Signals       []NormalizedSignal `json:"signals"`
	// Since is when the current state was entered. Nil means the target has
	// been in its initial state since lifecycle start.
	Since *time.Time `json:"since,omitempty"`
	// HistoryID is the ledger row written by this assessment, if any.
	HistoryID string `json:"history_id,omitempty"`
}

// Changed reports whether the assessment moved the state.
func (e Explanation) Changed() bool { return e.State != e.PreviousState }

// Clone returns a deep copy.
func (e Explanation) Clone() Explanation {
	c := e
	if e.Signals != nil {
		c.Signals = append([]NormalizedSignal(nil), e.Signals...)
	}
	if e.Since != nil {
		since := *e.Since
		c.Since = &since
	}
	return c
}

// Assessment is the transient result of one evaluation.
type Assessment struct {
	Target      Target      `json:"target"`
	Verdict     Verdict     `json:"verdict"`
	Explanation Explanation `json:"explanation"`
	AssessedAt  time.Time   `json:"assessed_at"`
}

// DecisionRecord binds a downstream action to the verdict that authorized it.
// Records are written once and never updated.
type DecisionRecord struct {
	ID          string      `json:"id"`
	CompanyID   string      `json:"company_id"`
	ActionType  string      `json:"action_type"`
	TargetType  string      `json:"target_type"`
	TargetID    string      `json:"target_id"`
	RiskVerdict Verdict     `json:"risk_verdict"`
	RiskState   State       `json:"risk_state"`
	Explanation Explanation `json:"explanation"`
	// ExplanationDigest is the sha256 of the RFC 8785 canonical explanation.
	ExplanationDigest string    `json:"explanation_digest"`
	TraceID           string    `json:"trace_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
