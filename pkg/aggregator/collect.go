package aggregator

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Mindburn-Labs/riskgov/pkg/risk"
)

// collect runs every collector concurrently and returns their signals
// concatenated in registration order. The first failure cancels the rest.
func (a *Aggregator) collect(ctx context.Context, target risk.Target) ([]risk.Signal, error) {
	if a.collectorTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.collectorTimeout)
		defer cancel()
	}

	results := make([][]risk.Signal, len(a.collectors))
	g, gctx := errgroup.WithContext(ctx)

	for i, c := range a.collectors {
		g.Go(func() error {
			signals, err := invoke(gctx, c, target.CompanyID)
			if err == nil {
				err = validateSignals(signals)
			}
			if err != nil {
				// A sibling already failed and cancelled the group.
				if gctx.Err() != nil && ctx.Err() == nil && errors.Is(err, context.Canceled) {
					return err
				}
				a.telemetry.RecordCollectorFailure(gctx, c.Name())
				a.logger.WarnContext(gctx, "collector failed",
					"collector", c.Name(),
					"company_id", target.CompanyID,
					"error", err,
				)
				ae := risk.NewAssessmentError(target, fmt.Errorf("%w: %w", risk.ErrCollectorFailure, err))
				ae.Collector = c.Name()
				return ae
			}
			results[i] = signals
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var n int
	for _, r := range results {
		n += len(r)
	}
	out := make([]risk.Signal, 0, n)
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

type collectResult struct {
	signals []risk.Signal
	err     error
}

// invoke calls c and gives up when ctx is done, even if the collector
// ignores its context.
func invoke(ctx context.Context, c risk.Collector, companyID string) ([]risk.Signal, error) {
	ch := make(chan collectResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- collectResult{err: fmt.Errorf("collector panicked: %v", r)}
			}
		}()
		signals, err := c.Collect(ctx, companyID)
		ch <- collectResult{signals: signals, err: err}
	}()

	select {
	case r := <-ch:
		return r.signals, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func validateSignals(signals []risk.Signal) error {
	for i, s := range signals {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("signal %d: %w", i, err)
		}
	}
	return nil
}
