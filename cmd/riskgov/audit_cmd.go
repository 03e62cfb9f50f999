package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/Mindburn-Labs/riskgov/pkg/store"
)

// runHistoryCmd implements `riskgov history`.
func runHistoryCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("history", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		f          targetFlags
		limit      int
		jsonOutput bool
	)
	f.register(cmd)
	cmd.IntVar(&limit, "limit", 20, "Maximum rows to show (0 = all)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output result as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if err := f.target().Validate(); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	ctx := context.Background()
	app, err := openApp(ctx, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer app.close(ctx)

	rows, err := app.aggregator(nil).History(ctx, f.target(), limit)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if jsonOutput {
		if err := writeJSON(stdout, rows); err != nil {
			return 1
		}
		return 0
	}
	if len(rows) == 0 {
		fmt.Fprintf(stdout, "%s: no transitions (CLEAR since lifecycle start)\n", f.target())
		return 0
	}
	for _, r := range rows {
		fmt.Fprintf(stdout, "%4d  %s  %-8s -> %-8s  %s\n",
			r.Seq, r.CreatedAt.UTC().Format(time.RFC3339), r.FromState, r.ToState, r.Reason)
	}
	return 0
}

// runDecisionsCmd implements `riskgov decisions`.
func runDecisionsCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("decisions", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		company    string
		targetID   string
		limit      int
		jsonOutput bool
	)
	cmd.StringVar(&company, "company", "", "Company ID (REQUIRED)")
	cmd.StringVar(&targetID, "target-id", "", "Narrow to one target")
	cmd.IntVar(&limit, "limit", 20, "Maximum rows to show (0 = all)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output result as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if company == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --company is required")
		return 2
	}

	ctx := context.Background()
	app, err := openApp(ctx, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer app.close(ctx)

	recs, err := app.aggregator(nil).Decisions(ctx, company, targetID, limit)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if jsonOutput {
		if err := writeJSON(stdout, recs); err != nil {
			return 1
		}
		return 0
	}
	for _, r := range recs {
		fmt.Fprintf(stdout, "%s  %s  %-16s %s/%s  %s%s%s\n",
			r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.ActionType, r.TargetType, r.TargetID,
			verdictColor(r.RiskVerdict), r.RiskVerdict, ColorReset)
	}
	return 0
}

// runReplayCmd implements `riskgov replay`.
//
// Exit codes:
//
//	0 = replay matches the record
//	1 = replay diverged, or the record could not be loaded
//	2 = usage error
func runReplayCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("replay", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		decisionID string
		jsonOutput bool
	)
	cmd.StringVar(&decisionID, "decision", "", "Decision record ID (REQUIRED)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output result as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if decisionID == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --decision is required")
		return 2
	}

	ctx := context.Background()
	app, err := openApp(ctx, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer app.close(ctx)

	res, err := app.aggregator(nil).ReplayDecision(ctx, decisionID)
	if errors.Is(err, store.ErrNotFound) {
		_, _ = fmt.Fprintf(stderr, "Error: decision %s not found\n", decisionID)
		return 1
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if jsonOutput {
		if err := writeJSON(stdout, res); err != nil {
			return 1
		}
	} else if res.Match {
		fmt.Fprintf(stdout, "%sMATCH%s %s %s (%s)\n", ColorBold+ColorGreen, ColorReset, res.DecisionID, res.Verdict, res.Digest)
	} else {
		fmt.Fprintf(stdout, "%sMISMATCH%s %s\n", ColorBold+ColorRed, ColorReset, res.DecisionID)
		for _, m := range res.Mismatches {
			fmt.Fprintf(stdout, "  - %s\n", m)
		}
	}
	if !res.Match {
		return 1
	}
	return 0
}
