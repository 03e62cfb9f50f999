package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/Mindburn-Labs/riskgov/pkg/aggregator"
	"github.com/Mindburn-Labs/riskgov/pkg/collectors"
	"github.com/Mindburn-Labs/riskgov/pkg/config"
	"github.com/Mindburn-Labs/riskgov/pkg/evidence"
	"github.com/Mindburn-Labs/riskgov/pkg/observability"
	"github.com/Mindburn-Labs/riskgov/pkg/risk"
	"github.com/Mindburn-Labs/riskgov/pkg/risk/celrules"
	"github.com/Mindburn-Labs/riskgov/pkg/store"
)

// app holds the process-wide dependencies resolved from the environment.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     store.Store
	evidence  evidence.Store
	telemetry *observability.Provider
	rules     []risk.OverrideRule
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// openApp loads configuration and connects every backend it names.
func openApp(ctx context.Context, stderr io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	a := &app{cfg: cfg, logger: newLogger(cfg.LogLevel, stderr)}

	otelCfg := observability.DefaultConfig()
	otelCfg.Enabled = cfg.OTelEnabled
	otelCfg.OTLPEndpoint = cfg.OTelEndpoint
	otelCfg.Insecure = cfg.OTelInsecure
	if a.telemetry, err = observability.New(ctx, otelCfg); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	if cfg.RulesFile != "" {
		if a.rules, err = celrules.LoadFile(cfg.RulesFile); err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("rules: %w", err)
		}
	}

	if a.store, err = store.Open(ctx, cfg); err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("store: %w", err)
	}
	if a.evidence, err = evidence.NewStore(ctx, cfg.Evidence); err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("evidence: %w", err)
	}

	a.logger.DebugContext(ctx, "riskgov configured",
		"store", cfg.Store,
		"evidence", cfg.Evidence.Type,
		"rules", len(a.rules),
		"collector_timeout", cfg.CollectorTimeout,
	)
	return a, nil
}

func (a *app) aggregator(cs []risk.Collector) *aggregator.Aggregator {
	agg := aggregator.New(a.store, cs).
		WithLogger(a.logger).
		WithTelemetry(a.telemetry).
		WithNormalizer(risk.DefaultNormalizer().With(a.rules...)).
		WithCollectorTimeout(a.cfg.CollectorTimeout)
	if a.evidence != nil {
		agg.WithEvidenceStore(a.evidence)
	}
	return agg
}

// fixtureAggregator builds an aggregator over the collectors in a signal
// fixture file.
func (a *app) fixtureAggregator(path string) (*aggregator.Aggregator, error) {
	cs, err := collectors.LoadFile(path)
	if err != nil {
		return nil, err
	}
	cs = collectors.ThrottleAll(cs, a.cfg.CollectorRateLimit, a.cfg.CollectorBurst)
	return a.aggregator(cs), nil
}

func (a *app) close(ctx context.Context) {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.WarnContext(ctx, "store close failed", "error", err)
		}
	}
	_ = a.telemetry.Shutdown(ctx)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
