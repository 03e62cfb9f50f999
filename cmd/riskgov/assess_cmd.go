package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/Mindburn-Labs/riskgov/pkg/aggregator"
	"github.com/Mindburn-Labs/riskgov/pkg/risk"
)

// targetFlags are shared by every command that addresses one target.
type targetFlags struct {
	company    string
	targetType string
	targetID   string
}

func (f *targetFlags) register(cmd *flag.FlagSet) {
	cmd.StringVar(&f.company, "company", "", "Company ID (REQUIRED)")
	cmd.StringVar(&f.targetType, "target-type", "", "Target type, e.g. field or plan (REQUIRED)")
	cmd.StringVar(&f.targetID, "target-id", "", "Target ID (REQUIRED)")
}

func (f *targetFlags) target() risk.Target {
	return risk.Target{CompanyID: f.company, TargetType: f.targetType, TargetID: f.targetID}
}

type assessFlags struct {
	targetFlags
	contract   string
	signals    string
	jsonOutput bool
}

func (f *assessFlags) register(cmd *flag.FlagSet) {
	f.targetFlags.register(cmd)
	cmd.StringVar(&f.contract, "contract", "", "Contract type: SEASONAL_OPTIMIZATION, MULTI_YEAR_ADVISORY, MANAGED_REGENERATIVE (REQUIRED)")
	cmd.StringVar(&f.signals, "signals", "", "Path to a YAML signal fixture (REQUIRED)")
	cmd.BoolVar(&f.jsonOutput, "json", false, "Output result as JSON")
}

// validate returns the parsed contract or a usage error.
func (f *assessFlags) validate() (risk.ContractType, error) {
	if err := f.target().Validate(); err != nil {
		return "", err
	}
	if f.signals == "" {
		return "", fmt.Errorf("--signals is required")
	}
	return risk.ParseContractType(f.contract)
}

// runAssessCmd implements `riskgov assess`.
//
// Exit codes:
//
//	0 = assessment produced (any verdict)
//	1 = assessment failed
//	2 = usage error
func runAssessCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("assess", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var f assessFlags
	f.register(cmd)
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	contract, err := f.validate()
	if err != nil {
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

	agg, err := app.fixtureAggregator(f.signals)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	assessment, err := agg.Assess(ctx, f.target(), contract)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if f.jsonOutput {
		if err := writeJSON(stdout, assessment); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}
	printAssessment(stdout, assessment)
	return 0
}

// runDecideCmd implements `riskgov decide`: an assessment followed by a
// decision record bound to it.
func runDecideCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("decide", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		f       assessFlags
		action  string
		traceID string
	)
	f.register(cmd)
	cmd.StringVar(&action, "action", "", "Action type being authorized, e.g. publish_plan (REQUIRED)")
	cmd.StringVar(&traceID, "trace", "", "Optional trace ID to correlate with")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	contract, err := f.validate()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if action == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --action is required")
		return 2
	}

	ctx := context.Background()
	app, err := openApp(ctx, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer app.close(ctx)

	agg, err := app.fixtureAggregator(f.signals)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	assessment, err := agg.Assess(ctx, f.target(), contract)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	rec, err := agg.RecordDecision(ctx, aggregator.DecisionRequest{
		ActionType: action,
		Assessment: assessment,
		TraceID:    traceID,
	})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if f.jsonOutput {
		if err := writeJSON(stdout, rec); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}
	printAssessment(stdout, assessment)
	fmt.Fprintf(stdout, "\n%sDecision%s %s\n", ColorBold, ColorReset, rec.ID)
	fmt.Fprintf(stdout, "  action:  %s\n", rec.ActionType)
	fmt.Fprintf(stdout, "  digest:  %s\n", rec.ExplanationDigest)
	return 0
}

func verdictColor(v risk.Verdict) string {
	switch v {
	case risk.VerdictAllowed:
		return ColorGreen
	case risk.VerdictBlocked, risk.VerdictRestricted:
		return ColorRed
	default:
		return ColorCyan
	}
}

func printAssessment(w io.Writer, a *risk.Assessment) {
	e := a.Explanation
	fmt.Fprintf(w, "%s%s%s %s\n", ColorBold+verdictColor(a.Verdict), a.Verdict, ColorReset, a.Target)
	fmt.Fprintf(w, "  state:    %s (was %s, proposed %s)\n", e.State, e.PreviousState, e.ProposedState)
	fmt.Fprintf(w, "  rule:     %s\n", e.Rule)
	fmt.Fprintf(w, "  contract: %s\n", e.ContractType)
	if e.Since != nil {
		fmt.Fprintf(w, "  since:    %s\n", e.Since.UTC().Format(time.RFC3339))
	}
	if len(e.Signals) == 0 {
		fmt.Fprintln(w, "  signals:  none")
		return
	}
	fmt.Fprintln(w, "  signals:")
	for _, s := range e.Signals {
		line := fmt.Sprintf("    %-13s %-9s %-16s %s", s.Source, s.Severity, s.ReasonCode, s.Description)
		if s.Override != "" {
			line += fmt.Sprintf(" %s[%s, was %s]%s", ColorGray, s.Override, s.OriginalSeverity, ColorReset)
		}
		fmt.Fprintln(w, line)
	}
}
