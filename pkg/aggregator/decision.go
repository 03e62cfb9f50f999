package aggregator

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mindburn-Labs/riskgov/pkg/evidence"
	"github.com/Mindburn-Labs/riskgov/pkg/observability"
	"github.com/Mindburn-Labs/riskgov/pkg/risk"
)

// ErrInvalidDecision is returned for a malformed DecisionRequest.
var ErrInvalidDecision = errors.New("invalid decision request")

// DecisionRequest asks to bind a downstream action to an assessment.
type DecisionRequest struct {
	// CompanyID and TargetID default to the assessment's target and must
	// match it when set.
	CompanyID  string
	TargetID   string
	ActionType string
	Assessment *risk.Assessment
	TraceID    string
}

func (r DecisionRequest) validate() error {
	switch {
	case r.Assessment == nil:
		return fmt.Errorf("%w: assessment is required", ErrInvalidDecision)
	case r.ActionType == "":
		return fmt.Errorf("%w: action type is required", ErrInvalidDecision)
	case r.CompanyID != "" && r.CompanyID != r.Assessment.Target.CompanyID:
		return fmt.Errorf("%w: company %q does not match assessed company %q", ErrInvalidDecision, r.CompanyID, r.Assessment.Target.CompanyID)
	case r.TargetID != "" && r.TargetID != r.Assessment.Target.TargetID:
		return fmt.Errorf("%w: target %q does not match assessed target %q", ErrInvalidDecision, r.TargetID, r.Assessment.Target.TargetID)
	}
	return r.Assessment.Target.Validate()
}

// RecordDecision writes an immutable record pairing an action with the
// verdict and explanation that authorized it. The explanation is copied, so
// later changes to the assessment do not reach the record. When an evidence
// store is configured the canonical explanation is archived under its digest
// before the record is written.
func (a *Aggregator) RecordDecision(ctx context.Context, req DecisionRequest) (rec *risk.DecisionRecord, err error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	target := req.Assessment.Target

	attrs := append(observability.TargetAttributes(target.CompanyID, target.TargetType, target.TargetID),
		observability.AttrActionType.String(req.ActionType))
	ctx, finish := a.telemetry.TrackOperation(ctx, "risk.record_decision", attrs...)
	defer func() { finish(err) }()

	explanation := req.Assessment.Explanation.Clone()
	canonical, digest, err := evidence.Canonicalize(explanation)
	if err != nil {
		return nil, fmt.Errorf("canonicalize explanation: %w", err)
	}

	if a.evidence != nil {
		if _, err := a.evidence.Put(ctx, canonical); err != nil {
			return nil, fmt.Errorf("archive explanation: %w", err)
		}
	}

	record := risk.DecisionRecord{
		ID:                a.newID(),
		CompanyID:         target.CompanyID,
		ActionType:        req.ActionType,
		TargetType:        target.TargetType,
		TargetID:          target.TargetID,
		RiskVerdict:       req.Assessment.Verdict,
		RiskState:         explanation.State,
		Explanation:       explanation,
		ExplanationDigest: digest,
		TraceID:           req.TraceID,
		CreatedAt:         a.clock(),
	}
	if err := a.store.PutDecision(ctx, record); err != nil {
		return nil, fmt.Errorf("put decision: %w", err)
	}

	a.telemetry.RecordDecision(ctx, req.ActionType, string(record.RiskVerdict))
	a.logger.InfoContext(ctx, "decision recorded",
		"decision_id", record.ID,
		"company_id", record.CompanyID,
		"target_id", record.TargetID,
		"action_type", record.ActionType,
		"verdict", record.RiskVerdict,
		"digest", digest,
	)
	return &record, nil
}

// Decision fetches one recorded decision by ID.
func (a *Aggregator) Decision(ctx context.Context, id string) (risk.DecisionRecord, error) {
	return a.store.GetDecision(ctx, id)
}
