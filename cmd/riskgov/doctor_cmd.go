package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/Mindburn-Labs/riskgov/pkg/collectors"
	"github.com/Mindburn-Labs/riskgov/pkg/config"
	"github.com/Mindburn-Labs/riskgov/pkg/evidence"
	"github.com/Mindburn-Labs/riskgov/pkg/risk"
	"github.com/Mindburn-Labs/riskgov/pkg/risk/celrules"
	"github.com/Mindburn-Labs/riskgov/pkg/store"
)

type checkResult struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "ok", "warn", "fail"
	Detail string `json:"detail,omitempty"`
}

// runDoctorCmd reports the resolved configuration and probes each backend.
// It exits 1 when any check fails.
func runDoctorCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("doctor", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		signals    string
		jsonOutput bool
	)
	cmd.StringVar(&signals, "signals", "", "Also validate this signal fixture")
	cmd.BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	ctx := context.Background()
	results := []checkResult{{
		Name:   "go_runtime",
		Status: "ok",
		Detail: fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	}}

	cfg, err := config.Load()
	if err != nil {
		results = append(results, checkResult{Name: "config", Status: "fail", Detail: err.Error()})
		return reportChecks(stdout, results, jsonOutput)
	}
	results = append(results, checkResult{
		Name:   "config",
		Status: "ok",
		Detail: fmt.Sprintf("store=%s log_level=%s collector_timeout=%s", cfg.Store, cfg.LogLevel, cfg.CollectorTimeout),
	})

	results = append(results, checkStore(ctx, cfg))
	results = append(results, checkEvidence(ctx, cfg))

	switch {
	case cfg.RulesFile == "":
		results = append(results, checkResult{Name: "rules", Status: "ok", Detail: "built-in BLOCKER rule only"})
	default:
		rules, err := celrules.LoadFile(cfg.RulesFile)
		if err != nil {
			results = append(results, checkResult{Name: "rules", Status: "fail", Detail: err.Error()})
		} else {
			names := risk.DefaultNormalizer().With(rules...).Rules()
			results = append(results, checkResult{Name: "rules", Status: "ok", Detail: strings.Join(names, ", ")})
		}
	}

	if signals != "" {
		cs, err := collectors.LoadFile(signals)
		if err != nil {
			results = append(results, checkResult{Name: "signals", Status: "fail", Detail: err.Error()})
		} else {
			results = append(results, checkResult{Name: "signals", Status: "ok", Detail: fmt.Sprintf("%d collectors", len(cs))})
		}
	}

	if cfg.OTelEnabled {
		results = append(results, checkResult{Name: "telemetry", Status: "ok", Detail: "OTLP " + cfg.OTelEndpoint})
	} else {
		results = append(results, checkResult{Name: "telemetry", Status: "warn", Detail: "OTEL_ENABLED not set"})
	}

	return reportChecks(stdout, results, jsonOutput)
}

func checkStore(ctx context.Context, cfg *config.Config) checkResult {
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return checkResult{Name: "store", Status: "fail", Detail: err.Error()}
	}
	defer func() { _ = st.Close() }()

	probe := risk.Target{CompanyID: "doctor", TargetType: "probe", TargetID: "probe"}
	if _, _, err := st.Latest(ctx, probe); err != nil {
		return checkResult{Name: "store", Status: "fail", Detail: err.Error()}
	}
	if cfg.Store == config.StoreMemory {
		return checkResult{Name: "store", Status: "warn", Detail: "memory store: history is lost on exit"}
	}
	return checkResult{Name: "store", Status: "ok", Detail: cfg.Store}
}

func checkEvidence(ctx context.Context, cfg *config.Config) checkResult {
	if cfg.Evidence.Type == "" {
		return checkResult{Name: "evidence", Status: "warn", Detail: "EVIDENCE_STORAGE_TYPE not set; explanations are not archived"}
	}
	if _, err := evidence.NewStore(ctx, cfg.Evidence); err != nil {
		return checkResult{Name: "evidence", Status: "fail", Detail: err.Error()}
	}
	return checkResult{Name: "evidence", Status: "ok", Detail: cfg.Evidence.Type}
}

func reportChecks(w io.Writer, results []checkResult, jsonOutput bool) int {
	allOK := true
	for _, r := range results {
		if r.Status == "fail" {
			allOK = false
		}
	}

	if jsonOutput {
		_ = writeJSON(w, map[string]any{"ok": allOK, "checks": results})
	} else {
		for _, r := range results {
			color := ColorGreen
			switch r.Status {
			case "warn":
				color = ColorCyan
			case "fail":
				color = ColorRed
			}
			fmt.Fprintf(w, "  %s%-5s%s %-12s %s\n", color, strings.ToUpper(r.Status), ColorReset, r.Name, r.Detail)
		}
	}

	if !allOK {
		return 1
	}
	return 0
}
