package risk

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// BlockerMarker forces a signal to CRITICAL when it appears in the description.
const BlockerMarker = "BLOCKER"

// OverrideRule is one cross-cutting safety override. Match and Apply must be
// pure. Apply receives a copy and returns the replacement signal.
type OverrideRule struct {
	Name  string
	Match func(Signal) bool
	Apply func(Signal) Signal
}

// NormalizedSignal is a signal after overrides, with enough context to
// explain what changed.
type NormalizedSignal struct {
	Signal
	OriginalSeverity Severity `json:"original_severity"`
	// Override is the name of the rule that rewrote the signal, empty if none did.
	Override string `json:"override,omitempty"`
}

// Normalizer applies an ordered list of override rules. For each signal the
// first matching rule wins.
type Normalizer struct {
	rules []OverrideRule
}

// NewNormalizer builds a normalizer from rules, evaluated in order.
func NewNormalizer(rules ...OverrideRule) *Normalizer {
	return &Normalizer{rules: append([]OverrideRule(nil), rules...)}
}

// DefaultNormalizer carries only the built-in BLOCKER rule.
func DefaultNormalizer() *Normalizer {
	return NewNormalizer(BlockerRule())
}

// With returns a new normalizer with extra rules appended after the existing ones.
func (n *Normalizer) With(rules ...OverrideRule) *Normalizer {
	merged := make([]OverrideRule, 0, len(n.rules)+len(rules))
	merged = append(merged, n.rules...)
	merged = append(merged, rules...)
	return &Normalizer{rules: merged}
}

// Rules returns the rule names in evaluation order.
func (n *Normalizer) Rules() []string {
	names := make([]string, len(n.rules))
	for i, r := range n.rules {
		names[i] = r.Name
	}
	return names
}

// Normalize returns a new slice of the same length with overrides applied.
func (n *Normalizer) Normalize(signals []Signal) []Signal {
	out := make([]Signal, len(signals))
	for i, s := range signals {
		out[i], _ = n.apply(s)
	}
	return out
}

// Explain is Normalize with per-signal attribution.
func (n *Normalizer) Explain(signals []Signal) []NormalizedSignal {
	out := make([]NormalizedSignal, len(signals))
	for i, s := range signals {
		normalized, rule := n.apply(s)
		out[i] = NormalizedSignal{
			Signal:           normalized,
			OriginalSeverity: s.Severity,
			Override:         rule,
		}
	}
	return out
}

func (n *Normalizer) apply(s Signal) (Signal, string) {
	for _, r := range n.rules {
		if r.Match == nil || r.Apply == nil {
			continue
		}
		if r.Match(s) {
			return r.Apply(s), r.Name
		}
	}
	return s, ""
}

// BlockerRule forces CRITICAL severity on any signal whose description
// carries BlockerMarker. The description is NFKC-folded first so that
// compatibility forms of the marker still match.
func BlockerRule() OverrideRule {
	return OverrideRule{
		Name:  "blocker-marker",
		Match: func(s Signal) bool { return ContainsMarker(s.Description, BlockerMarker) },
		Apply: ForceSeverity(SeverityCritical),
	}
}

// ContainsMarker reports whether text contains marker after NFKC normalization.
func ContainsMarker(text, marker string) bool {
	return strings.Contains(norm.NFKC.String(text), marker)
}

// ForceSeverity returns a transform that sets severity to sev.
func ForceSeverity(sev Severity) func(Signal) Signal {
	return func(s Signal) Signal {
		s.Severity = sev
		return s
	}
}

// RaiseSeverity returns a transform that lifts severity to at least sev.
func RaiseSeverity(sev Severity) func(Signal) Signal {
	return func(s Signal) Signal {
		if s.Severity.Rank() < sev.Rank() {
			s.Severity = sev
		}
		return s
	}
}
