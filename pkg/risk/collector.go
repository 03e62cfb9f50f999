package risk

import "context"

// Collector produces signals for a company from one domain's own store.
//
// Implementations return an empty slice when no risk is found. An error is
// reserved for infrastructure failure and fails the whole assessment.
// Collectors must not depend on each other; the aggregator may run them
// concurrently.
type Collector interface {
	Name() string
	Collect(ctx context.Context, companyID string) ([]Signal, error)
}

// CollectorFunc adapts a function to the Collector interface.
type CollectorFunc func(ctx context.Context, companyID string) ([]Signal, error)

type funcCollector struct {
	name string
	fn   CollectorFunc
}

// NewCollector wraps fn as a named Collector.
func NewCollector(name string, fn CollectorFunc) Collector {
	return funcCollector{name: name, fn: fn}
}

func (c funcCollector) Name() string { return c.name }

func (c funcCollector) Collect(ctx context.Context, companyID string) ([]Signal, error) {
	return c.fn(ctx, companyID)
}

// StaticCollector returns a fixed set of signals, filtered by company.
// Signals with an empty CompanyID apply to every company.
type StaticCollector struct {
	CollectorName string
	Signals       []Signal
}

func (c *StaticCollector) Name() string { return c.CollectorName }

func (c *StaticCollector) Collect(ctx context.Context, companyID string) ([]Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Signal, 0, len(c.Signals))
	for _, s := range c.Signals {
		if s.CompanyID != "" && s.CompanyID != companyID {
			continue
		}
		if s.CompanyID == "" {
			s.CompanyID = companyID
		}
		out = append(out, s)
	}
	return out, nil
}
