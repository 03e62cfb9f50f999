package risk

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticCollector_FiltersByCompany(t *testing.T) {
	c := &StaticCollector{
		CollectorName: "legal",
		Signals: []Signal{
			{Source: SourceLegal, Severity: SeverityHigh, ReasonCode: "LR-VIOLATION", CompanyID: "acme"},
			{Source: SourceLegal, Severity: SeverityLow, ReasonCode: "LR-NOTICE", CompanyID: "globex"},
			{Source: SourceLegal, Severity: SeverityLow, ReasonCode: "LR-ANY"},
		},
	}

	got, err := c.Collect(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "LR-VIOLATION", got[0].ReasonCode)
	assert.Equal(t, "acme", got[1].CompanyID)

	// fixture untouched
	assert.Empty(t, c.Signals[2].CompanyID)
}

func TestStaticCollector_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&StaticCollector{CollectorName: "x"}).Collect(ctx, "acme")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewCollector(t *testing.T) {
	c := NewCollector("finance", func(_ context.Context, companyID string) ([]Signal, error) {
		return []Signal{{Source: SourceFinance, Severity: SeverityLow, ReasonCode: "F", CompanyID: companyID}}, nil
	})
	assert.Equal(t, "finance", c.Name())
	got, err := c.Collect(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", got[0].CompanyID)
}

func TestAssessmentError(t *testing.T) {
	target := Target{CompanyID: "acme", TargetType: "season", TargetID: "2026"}
	err := NewAssessmentError(target, errors.New("boom"))
	err.Collector = "legal"

	assert.Equal(t, "assess acme/season/2026 collector=legal: boom", err.Error())

	wrapped := NewAssessmentError(target, ErrUnknownState)
	var ae *AssessmentError
	require.True(t, errors.As(error(wrapped), &ae))
	assert.ErrorIs(t, wrapped, ErrUnknownState)
}

func TestTarget_Validate(t *testing.T) {
	assert.NoError(t, Target{CompanyID: "a", TargetType: "field", TargetID: "f-1"}.Validate())
	assert.ErrorIs(t, Target{TargetType: "field", TargetID: "f-1"}.Validate(), ErrInvalidTarget)
	assert.ErrorIs(t, Target{CompanyID: "a", TargetID: "f-1"}.Validate(), ErrInvalidTarget)
	assert.ErrorIs(t, Target{CompanyID: "a", TargetType: "field"}.Validate(), ErrInvalidTarget)
}
