package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Risk-domain semantic convention attributes.
var (
	AttrOperation  = attribute.Key("riskgov.operation")
	AttrCompanyID  = attribute.Key("riskgov.company.id")
	AttrTargetType = attribute.Key("riskgov.target.type")
	AttrTargetID   = attribute.Key("riskgov.target.id")
	AttrContract   = attribute.Key("riskgov.contract_type")
	AttrVerdict    = attribute.Key("riskgov.verdict")
	AttrFromState  = attribute.Key("riskgov.state.from")
	AttrToState    = attribute.Key("riskgov.state.to")
	AttrCollector  = attribute.Key("riskgov.collector")
	AttrActionType = attribute.Key("riskgov.action_type")
)

// TargetAttributes creates attributes identifying an assessment target.
func TargetAttributes(companyID, targetType, targetID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrCompanyID.String(companyID),
		AttrTargetType.String(targetType),
		AttrTargetID.String(targetID),
	}
}

// RecordAssessment counts a completed assessment.
func (p *Provider) RecordAssessment(ctx context.Context, contract, verdict string) {
	if p == nil {
		return
	}
	p.assessments.Add(ctx, 1, metric.WithAttributes(
		AttrContract.String(contract),
		AttrVerdict.String(verdict),
	))
}

// RecordTransition counts a persisted state change.
func (p *Provider) RecordTransition(ctx context.Context, from, to string) {
	if p == nil {
		return
	}
	p.transitions.Add(ctx, 1, metric.WithAttributes(
		AttrFromState.String(from),
		AttrToState.String(to),
	))
}

// RecordCollectorFailure counts a failed or timed-out collector.
func (p *Provider) RecordCollectorFailure(ctx context.Context, collector string) {
	if p == nil {
		return
	}
	p.collectorFailures.Add(ctx, 1, metric.WithAttributes(AttrCollector.String(collector)))
}

// RecordDecision counts a persisted decision record.
func (p *Provider) RecordDecision(ctx context.Context, actionType, verdict string) {
	if p == nil {
		return
	}
	p.decisions.Add(ctx, 1, metric.WithAttributes(
		AttrActionType.String(actionType),
		AttrVerdict.String(verdict),
	))
}
