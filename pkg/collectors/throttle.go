package collectors

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/Mindburn-Labs/riskgov/pkg/risk"
)

// throttled rate-limits calls into one collector's backing store.
type throttled struct {
	risk.Collector
	limiter *rate.Limiter
}

// Throttle wraps c so that Collect waits for limiter before each call. A
// wait cut short by the context is reported as the collector's error.
func Throttle(c risk.Collector, limiter *rate.Limiter) risk.Collector {
	return &throttled{Collector: c, limiter: limiter}
}

func (t *throttled) Collect(ctx context.Context, companyID string) ([]risk.Signal, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limit: %w", t.Name(), err)
	}
	return t.Collector.Collect(ctx, companyID)
}

// ThrottleAll gives every collector its own limiter of r events per second
// with burst b. A non-positive r returns cs unchanged.
func ThrottleAll(cs []risk.Collector, r float64, b int) []risk.Collector {
	if r <= 0 {
		return cs
	}
	if b < 1 {
		b = 1
	}
	out := make([]risk.Collector, len(cs))
	for i, c := range cs {
		out[i] = Throttle(c, rate.NewLimiter(rate.Limit(r), b))
	}
	return out
}
