package collectors

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/riskgov/pkg/risk"
)

const fixture = `
signals:
  - source: legal
    severity: high
    reason_code: LR-VIOLATION
    description: lease dispute on north parcel
    company_id: acme
  - source: OPS
    severity: LOW
    reason_code: OPS-PUMP
    description: pump maintenance overdue
  - source: OPS
    severity: MEDIUM
    reason_code: OPS-CREW
    company_id: globex
unavailable: [finance]
`

func TestParse(t *testing.T) {
	cs, err := Parse([]byte(fixture))
	require.NoError(t, err)
	require.Len(t, cs, len(risk.Sources))

	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.Name()
	}
	assert.Equal(t, []string{"fixture:FINANCE", "fixture:LEGAL", "fixture:REGENERATIVE", "fixture:RND", "fixture:OPS"}, names)

	ctx := context.Background()

	_, err = cs[0].Collect(ctx, "acme")
	assert.Error(t, err, "finance is marked unavailable")

	legal, err := cs[1].Collect(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, legal, 1)
	assert.Equal(t, risk.SourceLegal, legal[0].Source)
	assert.Equal(t, risk.SeverityHigh, legal[0].Severity)

	regen, err := cs[2].Collect(ctx, "acme")
	require.NoError(t, err)
	assert.Empty(t, regen)

	ops, err := cs[4].Collect(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, ops, 1, "globex signal filtered out")
	assert.Equal(t, "OPS-PUMP", ops[0].ReasonCode)
	assert.Equal(t, "acme", ops[0].CompanyID)
}

func TestParse_Rejects(t *testing.T) {
	tests := map[string]string{
		"unknown source":   "signals:\n  - {source: HR, severity: LOW, reason_code: X}\n",
		"unknown severity": "signals:\n  - {source: OPS, severity: SEVERE, reason_code: X}\n",
		"no reason code":   "signals:\n  - {source: OPS, severity: LOW}\n",
		"bad unavailable":  "unavailable: [HR]\n",
		"not yaml":         "signals: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o600))

	cs, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, cs, 5)

	_, err = LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
