package aggregator

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mindburn-Labs/riskgov/pkg/evidence"
	"github.com/Mindburn-Labs/riskgov/pkg/risk"
)

// ReplayResult compares a recorded decision against a fresh evaluation of
// the signals it captured.
type ReplayResult struct {
	DecisionID string       `json:"decision_id"`
	Match      bool         `json:"match"`
	State      risk.State   `json:"state"`
	Verdict    risk.Verdict `json:"verdict"`
	Rule       string       `json:"rule"`
	Digest     string       `json:"digest"`
	// Archived is set when an evidence store holds the recorded digest.
	Archived   bool     `json:"archived"`
	Mismatches []string `json:"mismatches,omitempty"`
}

// Replay re-derives the verdict of rec from its explanation: the original
// signals are re-normalized with the current rules, re-evaluated under the
// recorded contract and transitioned from the recorded previous state. Any
// divergence is listed in Mismatches.
func (a *Aggregator) Replay(ctx context.Context, rec risk.DecisionRecord) (res ReplayResult, err error) {
	ctx, finish := a.telemetry.TrackOperation(ctx, "risk.replay")
	defer func() { finish(err) }()

	res.DecisionID = rec.ID
	expl := rec.Explanation

	originals := make([]risk.Signal, len(expl.Signals))
	for i, ns := range expl.Signals {
		s := ns.Signal
		if ns.OriginalSeverity != "" {
			s.Severity = ns.OriginalSeverity
		}
		originals[i] = s
	}
	renormalized := a.normalizer.Explain(originals)
	normalized := make([]risk.Signal, len(renormalized))
	for i, ns := range renormalized {
		normalized[i] = ns.Signal
		if ns.Severity != expl.Signals[i].Severity {
			res.Mismatches = append(res.Mismatches, fmt.Sprintf("signal %d severity: recorded %s, replayed %s", i, expl.Signals[i].Severity, ns.Severity))
		}
	}

	eval, err := risk.Evaluate(normalized, expl.ContractType)
	if err != nil {
		return res, fmt.Errorf("replay %s: %w", rec.ID, err)
	}
	res.Rule = eval.Rule
	if eval.Proposed != expl.ProposedState {
		res.Mismatches = append(res.Mismatches, fmt.Sprintf("proposed state: recorded %s, replayed %s", expl.ProposedState, eval.Proposed))
	}

	state, err := risk.Transition(expl.PreviousState, eval.Proposed)
	if err != nil {
		return res, fmt.Errorf("replay %s: %w", rec.ID, err)
	}
	res.State = state
	res.Verdict = risk.VerdictOf(state)
	if state != rec.RiskState {
		res.Mismatches = append(res.Mismatches, fmt.Sprintf("state: recorded %s, replayed %s", rec.RiskState, state))
	}
	if res.Verdict != rec.RiskVerdict {
		res.Mismatches = append(res.Mismatches, fmt.Sprintf("verdict: recorded %s, replayed %s", rec.RiskVerdict, res.Verdict))
	}

	_, digest, err := evidence.Canonicalize(expl)
	if err != nil {
		return res, fmt.Errorf("replay %s: %w", rec.ID, err)
	}
	res.Digest = digest
	if digest != rec.ExplanationDigest {
		res.Mismatches = append(res.Mismatches, fmt.Sprintf("explanation digest: recorded %s, recomputed %s", rec.ExplanationDigest, digest))
	}

	if a.evidence != nil {
		ok, err := a.evidence.Exists(ctx, rec.ExplanationDigest)
		if err != nil && !errors.Is(err, evidence.ErrNotFound) {
			return res, fmt.Errorf("replay %s: check evidence: %w", rec.ID, err)
		}
		res.Archived = ok
		if !ok {
			res.Mismatches = append(res.Mismatches, "explanation not archived in evidence store")
		}
	}

	res.Match = len(res.Mismatches) == 0
	a.logger.InfoContext(ctx, "decision replayed",
		"decision_id", rec.ID,
		"match", res.Match,
		"mismatches", len(res.Mismatches),
	)
	return res, nil
}

// ReplayDecision loads a decision by ID and replays it.
func (a *Aggregator) ReplayDecision(ctx context.Context, id string) (ReplayResult, error) {
	rec, err := a.store.GetDecision(ctx, id)
	if err != nil {
		return ReplayResult{}, err
	}
	return a.Replay(ctx, rec)
}
