// Package collectors builds risk collectors from signal fixture files.
//
// A fixture lists signals per company and, optionally, sources that should
// behave as unavailable:
//
//	signals:
//	  - source: LEGAL
//	    severity: HIGH
//	    reason_code: LR-VIOLATION
//	    description: lease dispute on north parcel
//	    company_id: acme
//	unavailable: [FINANCE]
package collectors

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Mindburn-Labs/riskgov/pkg/risk"
)

// NamePrefix prefixes every fixture collector name.
const NamePrefix = "fixture:"

// Fixture is the decoded fixture document.
type Fixture struct {
	Signals     []FixtureSignal `yaml:"signals"`
	Unavailable []string        `yaml:"unavailable"`
}

// FixtureSignal is one signal as written in a fixture file.
type FixtureSignal struct {
	Source        string    `yaml:"source"`
	Severity      string    `yaml:"severity"`
	ReasonCode    string    `yaml:"reason_code"`
	Description   string    `yaml:"description"`
	ReferenceType string    `yaml:"reference_type"`
	ReferenceID   string    `yaml:"reference_id"`
	CompanyID     string    `yaml:"company_id"`
	CreatedAt     time.Time `yaml:"created_at"`
}

// LoadFile reads a fixture from disk.
func LoadFile(path string) ([]risk.Collector, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read signal fixture: %w", err)
	}
	collectors, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("signal fixture %s: %w", path, err)
	}
	return collectors, nil
}

// Parse returns one collector per known source, in canonical source order.
// Sources without fixture signals still get a collector that reports no risk.
func Parse(data []byte) ([]risk.Collector, error) {
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	bySource := make(map[risk.Source][]risk.Signal, len(risk.Sources))
	for i, fs := range fx.Signals {
		sig, err := fs.toSignal()
		if err != nil {
			return nil, fmt.Errorf("signals[%d]: %w", i, err)
		}
		bySource[sig.Source] = append(bySource[sig.Source], sig)
	}

	down := make(map[risk.Source]bool, len(fx.Unavailable))
	for _, raw := range fx.Unavailable {
		src, err := risk.ParseSource(raw)
		if err != nil {
			return nil, fmt.Errorf("unavailable: %w", err)
		}
		down[src] = true
	}

	out := make([]risk.Collector, 0, len(risk.Sources))
	for _, src := range risk.Sources {
		name := NamePrefix + string(src)
		if down[src] {
			out = append(out, unavailable(name, src))
			continue
		}
		out = append(out, &risk.StaticCollector{CollectorName: name, Signals: bySource[src]})
	}
	return out, nil
}

func (fs FixtureSignal) toSignal() (risk.Signal, error) {
	src, err := risk.ParseSource(fs.Source)
	if err != nil {
		return risk.Signal{}, err
	}
	sev, err := risk.ParseSeverity(fs.Severity)
	if err != nil {
		return risk.Signal{}, err
	}
	sig := risk.Signal{
		Source:        src,
		Severity:      sev,
		ReasonCode:    fs.ReasonCode,
		Description:   fs.Description,
		ReferenceType: fs.ReferenceType,
		ReferenceID:   fs.ReferenceID,
		CompanyID:     fs.CompanyID,
		CreatedAt:     fs.CreatedAt,
	}
	if err := sig.Validate(); err != nil {
		return risk.Signal{}, err
	}
	return sig, nil
}

func unavailable(name string, src risk.Source) risk.Collector {
	return risk.NewCollector(name, func(context.Context, string) ([]risk.Signal, error) {
		return nil, fmt.Errorf("%s source unavailable", src)
	})
}
