// Package aggregator orchestrates a risk assessment: it fans out to the
// registered collectors, normalizes and evaluates the combined signals,
// advances the persisted state machine and returns an explainable verdict.
// It is the only writer of state history and decision records.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Mindburn-Labs/riskgov/pkg/evidence"
	"github.com/Mindburn-Labs/riskgov/pkg/observability"
	"github.com/Mindburn-Labs/riskgov/pkg/risk"
	"github.com/Mindburn-Labs/riskgov/pkg/store"
)

// maxAppendAttempts bounds the read-transition-append loop when another
// writer advances the same target concurrently.
const maxAppendAttempts = 3

// DefaultCollectorTimeout bounds collector fan-out when the caller's context
// carries no earlier deadline.
const DefaultCollectorTimeout = 10 * time.Second

// Aggregator is safe for concurrent use once configured.
type Aggregator struct {
	store            store.Store
	collectors       []risk.Collector
	normalizer       *risk.Normalizer
	evidence         evidence.Store
	telemetry        *observability.Provider
	logger           *slog.Logger
	clock            func() time.Time
	newID            func() string
	collectorTimeout time.Duration
}

// New creates an aggregator over st. The collector list is copied and fixed
// for the aggregator's lifetime.
func New(st store.Store, collectors []risk.Collector) *Aggregator {
	return &Aggregator{
		store:            st,
		collectors:       append([]risk.Collector(nil), collectors...),
		normalizer:       risk.DefaultNormalizer(),
		logger:           slog.Default().With("component", "aggregator"),
		clock:            time.Now,
		newID:            uuid.NewString,
		collectorTimeout: DefaultCollectorTimeout,
	}
}

// WithClock overrides clock for testing.
func (a *Aggregator) WithClock(clock func() time.Time) *Aggregator {
	a.clock = clock
	return a
}

// WithLogger replaces the component logger.
func (a *Aggregator) WithLogger(logger *slog.Logger) *Aggregator {
	a.logger = logger.With("component", "aggregator")
	return a
}

// WithNormalizer replaces the default BLOCKER-only normalizer. A nil
// normalizer restores the default.
func (a *Aggregator) WithNormalizer(n *risk.Normalizer) *Aggregator {
	if n == nil {
		n = risk.DefaultNormalizer()
	}
	a.normalizer = n
	return a
}

// WithTelemetry attaches spans and metrics.
func (a *Aggregator) WithTelemetry(p *observability.Provider) *Aggregator {
	a.telemetry = p
	return a
}

// WithEvidenceStore archives the canonical explanation of every decision.
func (a *Aggregator) WithEvidenceStore(s evidence.Store) *Aggregator {
	a.evidence = s
	return a
}

// WithCollectorTimeout sets the fan-out deadline. Zero or negative disables
// it, leaving only the caller's deadline.
func (a *Aggregator) WithCollectorTimeout(d time.Duration) *Aggregator {
	a.collectorTimeout = d
	return a
}

// WithIDGenerator overrides record ID generation for testing.
func (a *Aggregator) WithIDGenerator(gen func() string) *Aggregator {
	a.newID = gen
	return a
}

// Collectors returns the registered collector names in registration order.
func (a *Aggregator) Collectors() []string {
	names := make([]string, len(a.collectors))
	for i, c := range a.collectors {
		names[i] = c.Name()
	}
	return names
}

// Assess runs one full assessment of target under contract.
//
// Any collector failure fails the assessment with an *risk.AssessmentError
// wrapping risk.ErrCollectorFailure. If the persisted state is not a known
// state, Assess returns an error wrapping risk.ErrUnknownState together with
// an assessment whose verdict is BLOCKED, and writes no history.
func (a *Aggregator) Assess(ctx context.Context, target risk.Target, contract risk.ContractType) (assessment *risk.Assessment, err error) {
	if err := target.Validate(); err != nil {
		ae := risk.NewAssessmentError(target, err)
		ae.Rule = "target"
		return nil, ae
	}
	if !contract.Valid() {
		ae := risk.NewAssessmentError(target, fmt.Errorf("%w: %q", risk.ErrInvalidContractType, string(contract)))
		ae.Rule = "contract"
		return nil, ae
	}

	attrs := observability.TargetAttributes(target.CompanyID, target.TargetType, target.TargetID)
	ctx, finish := a.telemetry.TrackOperation(ctx, "risk.assess", attrs...)
	defer func() { finish(err) }()

	log := a.logger.With("company_id", target.CompanyID, "target_type", target.TargetType, "target_id", target.TargetID)

	signals, err := a.collect(ctx, target)
	if err != nil {
		log.WarnContext(ctx, "assessment failed", "error", err)
		return nil, err
	}

	explained := a.normalizer.Explain(signals)
	normalized := make([]risk.Signal, len(explained))
	for i, ns := range explained {
		normalized[i] = ns.Signal
	}

	eval, err := risk.Evaluate(normalized, contract)
	if err != nil {
		ae := risk.NewAssessmentError(target, err)
		ae.Rule = "evaluate"
		return nil, ae
	}

	for attempt := 1; attempt <= maxAppendAttempts; attempt++ {
		assessment, err = a.advance(ctx, target, contract, eval, explained)
		if err == nil || !errors.Is(err, store.ErrConflict) {
			break
		}
		log.DebugContext(ctx, "history moved underneath assessment, retrying", "attempt", attempt)
	}
	if err != nil {
		log.ErrorContext(ctx, "assessment failed", "error", err)
		return assessment, err
	}

	a.telemetry.RecordAssessment(ctx, string(contract), string(assessment.Verdict))
	log.InfoContext(ctx, "assessment complete",
		"verdict", assessment.Verdict,
		"state", assessment.Explanation.State,
		"rule", eval.Rule,
		"signals", len(signals),
	)
	return assessment, nil
}

// advance reads the current state, transitions and conditionally appends.
// It returns store.ErrConflict (wrapped) when another writer got there first.
func (a *Aggregator) advance(ctx context.Context, target risk.Target, contract risk.ContractType, eval risk.Evaluation, explained []risk.NormalizedSignal) (*risk.Assessment, error) {
	latest, found, err := a.store.Latest(ctx, target)
	if err != nil {
		ae := risk.NewAssessmentError(target, err)
		ae.Rule = "read-state"
		return nil, ae
	}

	current := risk.InitialState
	var since *time.Time
	var expectedSeq int64
	if found {
		current = latest.ToState
		createdAt := latest.CreatedAt
		since = &createdAt
		expectedSeq = latest.Seq
	}

	explanation := risk.Explanation{
		PreviousState: current,
		ProposedState: eval.Proposed,
		Rule:          eval.Rule,
		ContractType:  contract,
		Signals:       explained,
		Since:         since,
	}

	next, err := risk.Transition(current, eval.Proposed)
	if err != nil {
		explanation.State = current
		ae := risk.NewAssessmentError(target, err)
		ae.Rule = "persisted-state"
		return &risk.Assessment{
			Target:      target,
			Verdict:     risk.VerdictOf(current),
			Explanation: explanation,
			AssessedAt:  a.clock(),
		}, ae
	}
	explanation.State = next

	now := a.clock()
	if next != current {
		entry := risk.HistoryEntry{
			ID:          a.newID(),
			CompanyID:   target.CompanyID,
			TargetType:  target.TargetType,
			TargetID:    target.TargetID,
			FromState:   current,
			ToState:     next,
			Reason:      fmt.Sprintf("%d active signal(s); rule %s proposed %s", len(explained), eval.Rule, eval.Proposed),
			SignalCount: len(explained),
			CreatedAt:   now,
		}
		written, err := a.store.AppendIfLatest(ctx, entry, expectedSeq)
		if err != nil {
			ae := risk.NewAssessmentError(target, err)
			ae.Rule = "append-history"
			return nil, ae
		}
		createdAt := written.CreatedAt
		explanation.Since = &createdAt
		explanation.HistoryID = written.ID

		a.telemetry.RecordTransition(ctx, string(current), string(next))
		a.logger.InfoContext(ctx, "risk state changed",
			"company_id", target.CompanyID,
			"target_type", target.TargetType,
			"target_id", target.TargetID,
			"from", current,
			"to", next,
			"seq", written.Seq,
		)
	}

	return &risk.Assessment{
		Target:      target,
		Verdict:     risk.VerdictOf(next),
		Explanation: explanation,
		AssessedAt:  now,
	}, nil
}

// History returns a target's state ledger, newest first.
func (a *Aggregator) History(ctx context.Context, target risk.Target, limit int) ([]risk.HistoryEntry, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	return a.store.ListHistory(ctx, target, limit)
}

// Decisions returns recorded decisions for a company, optionally narrowed to
// one target, newest first.
func (a *Aggregator) Decisions(ctx context.Context, companyID, targetID string, limit int) ([]risk.DecisionRecord, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: company id is required", risk.ErrInvalidTarget)
	}
	return a.store.ListDecisions(ctx, companyID, targetID, limit)
}
