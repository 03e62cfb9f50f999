package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sig(src Source, sev Severity) Signal {
	return Signal{Source: src, Severity: sev, ReasonCode: "TEST", CompanyID: "acme"}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		signals  []Signal
		contract ContractType
		want     State
		rule     string
	}{
		{"no signals", nil, ContractSeasonalOptimization, StateClear, RuleNoSignals},
		{"finance critical blocks", []Signal{sig(SourceFinance, SeverityCritical)}, ContractSeasonalOptimization, StateBlocked, RuleCriticalNonRegen},
		{"legal high blocks under seasonal", []Signal{sig(SourceLegal, SeverityHigh)}, ContractSeasonalOptimization, StateBlocked, RuleLegalHigh},
		{"legal high blocks under managed", []Signal{sig(SourceLegal, SeverityHigh)}, ContractManagedRegenerative, StateBlocked, RuleLegalHigh},
		{"regen critical advisory", []Signal{sig(SourceRegenerative, SeverityCritical)}, ContractMultiYearAdvisory, StateCritical, RuleRegenerativeCritical},
		{"regen critical seasonal", []Signal{sig(SourceRegenerative, SeverityCritical)}, ContractSeasonalOptimization, StateCritical, RuleRegenerativeCritical},
		{"regen critical managed", []Signal{sig(SourceRegenerative, SeverityCritical)}, ContractManagedRegenerative, StateBlocked, RuleRegenerativeCritical},
		{"ops high seasonal", []Signal{sig(SourceOps, SeverityHigh)}, ContractSeasonalOptimization, StateElevated, RuleHighSeverity},
		{"ops high advisory", []Signal{sig(SourceOps, SeverityHigh)}, ContractMultiYearAdvisory, StateCritical, RuleHighSeverity},
		{"regen high managed", []Signal{sig(SourceRegenerative, SeverityHigh)}, ContractManagedRegenerative, StateCritical, RuleHighSeverity},
		{"medium", []Signal{sig(SourceRnD, SeverityMedium), sig(SourceOps, SeverityLow)}, ContractMultiYearAdvisory, StateElevated, RuleMediumSeverity},
		{"low", []Signal{sig(SourceFinance, SeverityLow)}, ContractManagedRegenerative, StateObserved, RuleLowSeverity},
		{"unknown severity falls back", []Signal{{Source: SourceOps, Severity: "NONE"}}, ContractSeasonalOptimization, StateClear, RuleFallback},
		{
			"critical non-regen outranks regen critical",
			[]Signal{sig(SourceRegenerative, SeverityCritical), sig(SourceRnD, SeverityCritical)},
			ContractMultiYearAdvisory, StateBlocked, RuleCriticalNonRegen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.signals, tt.contract)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Proposed)
			assert.Equal(t, tt.rule, got.Rule)
		})
	}
}

func TestEvaluate_OrderIndependent(t *testing.T) {
	signals := []Signal{
		sig(SourceOps, SeverityLow),
		sig(SourceFinance, SeverityMedium),
		sig(SourceRegenerative, SeverityCritical),
		sig(SourceOps, SeverityHigh),
	}
	reversed := make([]Signal, len(signals))
	for i, s := range signals {
		reversed[len(signals)-1-i] = s
	}

	for _, c := range ContractTypes {
		a, err := Evaluate(signals, c)
		require.NoError(t, err)
		b, err := Evaluate(reversed, c)
		require.NoError(t, err)
		assert.Equal(t, a, b, c)
	}
}

func TestEvaluate_InvalidContract(t *testing.T) {
	_, err := Evaluate(nil, ContractType("SPOT"))
	assert.ErrorIs(t, err, ErrInvalidContractType)
}

func TestParseContractType(t *testing.T) {
	c, err := ParseContractType(" managed_regenerative ")
	require.NoError(t, err)
	assert.Equal(t, ContractManagedRegenerative, c)

	_, err = ParseContractType("")
	assert.ErrorIs(t, err, ErrInvalidContractType)
}

func TestSignalValidate(t *testing.T) {
	assert.NoError(t, sig(SourceLegal, SeverityHigh).Validate())
	assert.ErrorIs(t, Signal{Source: "HR", Severity: SeverityLow, ReasonCode: "X"}.Validate(), ErrInvalidSignal)
	assert.ErrorIs(t, Signal{Source: SourceOps, Severity: "SEVERE", ReasonCode: "X"}.Validate(), ErrInvalidSignal)
	assert.ErrorIs(t, Signal{Source: SourceOps, Severity: SeverityLow}.Validate(), ErrInvalidSignal)
}
