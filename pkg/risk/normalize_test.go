package risk

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_BlockerForcesCritical(t *testing.T) {
	in := []Signal{
		{Source: SourceOps, Severity: SeverityLow, ReasonCode: "OPS-1", Description: "pump BLOCKER on line 4"},
		{Source: SourceOps, Severity: SeverityLow, ReasonCode: "OPS-2", Description: "pump offline"},
	}

	out := DefaultNormalizer().Normalize(in)
	require.Len(t, out, 2)
	assert.Equal(t, SeverityCritical, out[0].Severity)
	assert.Equal(t, SeverityLow, out[1].Severity)

	// input untouched
	assert.Equal(t, SeverityLow, in[0].Severity)
}

func TestNormalize_BlockerChangesVerdict(t *testing.T) {
	marked := []Signal{{Source: SourceFinance, Severity: SeverityLow, ReasonCode: "F-1", Description: "BLOCKER: unpaid invoice"}}
	plain := []Signal{{Source: SourceFinance, Severity: SeverityLow, ReasonCode: "F-1", Description: "unpaid invoice"}}

	n := DefaultNormalizer()
	a, err := Evaluate(n.Normalize(marked), ContractMultiYearAdvisory)
	require.NoError(t, err)
	b, err := Evaluate(n.Normalize(plain), ContractMultiYearAdvisory)
	require.NoError(t, err)

	assert.Equal(t, StateBlocked, a.Proposed)
	assert.Equal(t, StateObserved, b.Proposed)
}

func TestNormalize_FullwidthMarker(t *testing.T) {
	out := DefaultNormalizer().Normalize([]Signal{
		{Source: SourceRnD, Severity: SeverityMedium, ReasonCode: "R-1", Description: "trial ＢＬＯＣＫＥＲ"},
	})
	assert.Equal(t, SeverityCritical, out[0].Severity)
}

func TestNormalize_MarkerIsCaseSensitive(t *testing.T) {
	out := DefaultNormalizer().Normalize([]Signal{
		{Source: SourceRnD, Severity: SeverityMedium, ReasonCode: "R-1", Description: "minor blocker"},
	})
	assert.Equal(t, SeverityMedium, out[0].Severity)
}

func TestNormalize_FirstMatchWins(t *testing.T) {
	n := NewNormalizer(
		OverrideRule{
			Name:  "legal-floor",
			Match: func(s Signal) bool { return s.Source == SourceLegal },
			Apply: RaiseSeverity(SeverityMedium),
		},
		OverrideRule{
			Name:  "legal-critical",
			Match: func(s Signal) bool { return s.Source == SourceLegal },
			Apply: ForceSeverity(SeverityCritical),
		},
	)

	explained := n.Explain([]Signal{
		{Source: SourceLegal, Severity: SeverityLow, ReasonCode: "L-1"},
		{Source: SourceLegal, Severity: SeverityHigh, ReasonCode: "L-2"},
		{Source: SourceOps, Severity: SeverityLow, ReasonCode: "O-1"},
	})

	require.Len(t, explained, 3)
	assert.Equal(t, SeverityMedium, explained[0].Severity)
	assert.Equal(t, SeverityLow, explained[0].OriginalSeverity)
	assert.Equal(t, "legal-floor", explained[0].Override)
	assert.Equal(t, SeverityHigh, explained[1].Severity)
	assert.Equal(t, "legal-floor", explained[1].Override)
	assert.Empty(t, explained[2].Override)
}

func TestNormalizer_WithAppends(t *testing.T) {
	base := DefaultNormalizer()
	extended := base.With(OverrideRule{Name: "extra", Match: func(Signal) bool { return false }, Apply: ForceSeverity(SeverityLow)})

	assert.Equal(t, []string{"blocker-marker"}, base.Rules())
	assert.Equal(t, []string{"blocker-marker", "extra"}, extended.Rules())
}

func TestNormalize_Empty(t *testing.T) {
	out := DefaultNormalizer().Normalize(nil)
	assert.NotNil(t, out)
	assert.Len(t, out, 0)
}

// Property: normalizing an already-normalized list is a no-op.
func TestNormalize_Idempotent(t *testing.T) {
	severities := []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	n := DefaultNormalizer()

	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	properties.Property("normalize(normalize(x)) == normalize(x)", prop.ForAll(
		func(descs []string, sevIdx []int, marked []bool) bool {
			signals := make([]Signal, 0, len(descs))
			for i, d := range descs {
				sev := SeverityLow
				if i < len(sevIdx) {
					sev = severities[sevIdx[i]]
				}
				if i < len(marked) && marked[i] {
					d = d + " " + BlockerMarker
				}
				signals = append(signals, Signal{Source: SourceOps, Severity: sev, ReasonCode: "P", Description: d})
			}
			once := n.Normalize(signals)
			twice := n.Normalize(once)
			if len(once) != len(signals) || len(twice) != len(once) {
				return false
			}
			for i := range once {
				if once[i] != twice[i] {
					return false
				}
				if strings.Contains(once[i].Description, BlockerMarker) && once[i].Severity != SeverityCritical {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.IntRange(0, 3)),
		gen.SliceOf(gen.Bool()),
	))
	properties.TestingRun(t)
}
