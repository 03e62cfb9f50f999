package celrules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/riskgov/pkg/risk"
)

const validPack = `
version: 1.2.0
rules:
  - name: sanctions-hit
    when: 'signal.source == "LEGAL" && signal.description.contains("SANCTION")'
    set_severity: CRITICAL
  - name: ops-floor
    when: 'signal.source == "OPS"'
    min_severity: MEDIUM
`

func TestParse_AppliesRules(t *testing.T) {
	rules, err := Parse([]byte(validPack))
	require.NoError(t, err)
	require.Len(t, rules, 2)

	n := risk.DefaultNormalizer().With(rules...)
	assert.Equal(t, []string{"blocker-marker", "sanctions-hit", "ops-floor"}, n.Rules())

	out := n.Explain([]risk.Signal{
		{Source: risk.SourceLegal, Severity: risk.SeverityLow, ReasonCode: "L", Description: "SANCTION list match"},
		{Source: risk.SourceOps, Severity: risk.SeverityLow, ReasonCode: "O"},
		{Source: risk.SourceOps, Severity: risk.SeverityHigh, ReasonCode: "O2"},
		{Source: risk.SourceFinance, Severity: risk.SeverityLow, ReasonCode: "F"},
	})

	assert.Equal(t, risk.SeverityCritical, out[0].Severity)
	assert.Equal(t, "sanctions-hit", out[0].Override)
	assert.Equal(t, risk.SeverityMedium, out[1].Severity)
	assert.Equal(t, risk.SeverityHigh, out[2].Severity)
	assert.Equal(t, risk.SeverityLow, out[3].Severity)
	assert.Empty(t, out[3].Override)
}

func TestParse_BuiltinRuleRunsFirst(t *testing.T) {
	rules, err := Parse([]byte(`
version: 1.0.0
rules:
  - name: lower-everything
    when: 'true'
    set_severity: LOW
`))
	require.NoError(t, err)

	out := risk.DefaultNormalizer().With(rules...).Explain([]risk.Signal{
		{Source: risk.SourceRnD, Severity: risk.SeverityLow, ReasonCode: "R", Description: "BLOCKER"},
	})
	assert.Equal(t, risk.SeverityCritical, out[0].Severity)
	assert.Equal(t, "blocker-marker", out[0].Override)
}

func TestParse_Rejects(t *testing.T) {
	tests := map[string]string{
		"both transforms": `
version: 1.0.0
rules:
  - name: r
    when: 'true'
    set_severity: LOW
    min_severity: HIGH
`,
		"no transform": `
version: 1.0.0
rules:
  - name: r
    when: 'true'
`,
		"unknown severity": `
version: 1.0.0
rules:
  - name: r
    when: 'true'
    set_severity: SEVERE
`,
		"unsupported version": `
version: 2.0.0
rules: []
`,
		"bad version": `
version: latest
rules: []
`,
		"non-bool predicate": `
version: 1.0.0
rules:
  - name: r
    when: 'signal.source'
    set_severity: LOW
`,
		"syntax error": `
version: 1.0.0
rules:
  - name: r
    when: 'signal.source =='
    set_severity: LOW
`,
		"duplicate name": `
version: 1.0.0
rules:
  - name: r
    when: 'true'
    set_severity: LOW
  - name: r
    when: 'false'
    set_severity: LOW
`,
		"unknown field": `
version: 1.0.0
rules:
  - name: r
    when: 'true'
    set_severity: LOW
    priority: 3
`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParse_MissingKeyIsNoMatch(t *testing.T) {
	rules, err := Parse([]byte(`
version: 1.0.0
rules:
  - name: r
    when: 'signal["nope"] == "x"'
    set_severity: CRITICAL
`))
	require.NoError(t, err)
	out := risk.NewNormalizer(rules...).Normalize([]risk.Signal{{Source: risk.SourceOps, Severity: risk.SeverityLow, ReasonCode: "O"}})
	assert.Equal(t, risk.SeverityLow, out[0].Severity)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validPack), 0o600))

	rules, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate_SchemaTypes(t *testing.T) {
	require.NoError(t, validate([]byte("version: 1.0.0\nrules:\n  - {name: r, when: 'true', set_severity: LOW}\n")))

	err := validate([]byte("version: 1\nrules: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid rule pack")

	err = validate([]byte("version: 1.0.0\nrules: {}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid rule pack")
}
