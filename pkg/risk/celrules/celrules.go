// Package celrules loads operator-defined signal override rules from a YAML
// rule pack. Each rule's predicate is a CEL expression over the signal.
//
// Example pack:
//
//	version: 1.2.0
//	rules:
//	  - name: sanctions-hit
//	    when: 'signal.source == "LEGAL" && signal.description.contains("SANCTION")'
//	    set_severity: CRITICAL
//
// Compiled rules are plain risk.OverrideRule values and are appended to the
// normalizer after the built-in rules.
package celrules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/google/cel-go/cel"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/Mindburn-Labs/riskgov/pkg/risk"
)

// SupportedVersions is the range of rule pack versions this build understands.
const SupportedVersions = ">= 1.0.0, < 2.0.0"

const costLimit = 10000

const packSchemaURL = "https://riskgov.schemas.local/rule-pack.schema.json"

const packSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["version", "rules"],
  "additionalProperties": false,
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "rules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "when"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "when": {"type": "string", "minLength": 1},
          "set_severity": {"enum": ["LOW", "MEDIUM", "HIGH", "CRITICAL"]},
          "min_severity": {"enum": ["LOW", "MEDIUM", "HIGH", "CRITICAL"]}
        },
        "oneOf": [
          {"required": ["set_severity"]},
          {"required": ["min_severity"]}
        ]
      }
    }
  }
}`

// Pack is the decoded rule pack document.
type Pack struct {
	Version string     `yaml:"version"`
	Rules   []RuleSpec `yaml:"rules"`
}

// RuleSpec is one rule as written in the pack.
type RuleSpec struct {
	Name        string `yaml:"name"`
	When        string `yaml:"when"`
	SetSeverity string `yaml:"set_severity"`
	MinSeverity string `yaml:"min_severity"`
}

// LoadFile reads and compiles a rule pack from disk.
func LoadFile(path string) ([]risk.OverrideRule, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read rule pack: %w", err)
	}
	rules, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rule pack %s: %w", path, err)
	}
	return rules, nil
}

// Parse validates, version-checks and compiles a rule pack.
func Parse(data []byte) ([]risk.OverrideRule, error) {
	if err := validate(data); err != nil {
		return nil, err
	}

	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	if err := checkVersion(pack.Version); err != nil {
		return nil, err
	}

	env, err := newEnv()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(pack.Rules))
	rules := make([]risk.OverrideRule, 0, len(pack.Rules))
	for _, spec := range pack.Rules {
		if seen[spec.Name] {
			return nil, fmt.Errorf("duplicate rule name %q", spec.Name)
		}
		seen[spec.Name] = true

		rule, err := compile(env, spec)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", spec.Name, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func validate(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("rule pack is not JSON-compatible: %w", err)
	}
	var inst any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&inst); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(packSchemaURL, strings.NewReader(packSchema)); err != nil {
		return fmt.Errorf("rule pack schema load failed: %w", err)
	}
	schema, err := c.Compile(packSchemaURL)
	if err != nil {
		return fmt.Errorf("rule pack schema compile failed: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("invalid rule pack: %w", err)
	}
	return nil
}

func checkVersion(v string) error {
	version, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("invalid rule pack version %q: %w", v, err)
	}
	constraint, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return err
	}
	if !constraint.Check(version) {
		return fmt.Errorf("rule pack version %s not supported (want %s)", version, SupportedVersions)
	}
	return nil
}

func newEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("signal", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

func compile(env *cel.Env, spec RuleSpec) (risk.OverrideRule, error) {
	ast, issues := env.Compile(spec.When)
	if issues != nil && issues.Err() != nil {
		return risk.OverrideRule{}, fmt.Errorf("compile: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return risk.OverrideRule{}, fmt.Errorf("predicate must be bool, got %s", ast.OutputType())
	}
	prg, err := env.Program(ast, cel.CostLimit(costLimit))
	if err != nil {
		return risk.OverrideRule{}, fmt.Errorf("program: %w", err)
	}

	var apply func(risk.Signal) risk.Signal
	switch {
	case spec.SetSeverity != "":
		sev, err := risk.ParseSeverity(spec.SetSeverity)
		if err != nil {
			return risk.OverrideRule{}, err
		}
		apply = risk.ForceSeverity(sev)
	default:
		sev, err := risk.ParseSeverity(spec.MinSeverity)
		if err != nil {
			return risk.OverrideRule{}, err
		}
		apply = risk.RaiseSeverity(sev)
	}

	return risk.OverrideRule{
		Name:  spec.Name,
		Match: predicate(prg),
		Apply: apply,
	}, nil
}

// predicate wraps a compiled program. Evaluation errors mean "no match"; the
// type checker already guarantees a bool result for well-formed input.
func predicate(prg cel.Program) func(risk.Signal) bool {
	return func(s risk.Signal) bool {
		out, _, err := prg.Eval(map[string]any{"signal": activation(s)})
		if err != nil {
			return false
		}
		matched, ok := out.Value().(bool)
		return ok && matched
	}
}

func activation(s risk.Signal) map[string]string {
	return map[string]string{
		"source":         string(s.Source),
		"severity":       string(s.Severity),
		"reason_code":    s.ReasonCode,
		"description":    s.Description,
		"reference_type": s.ReferenceType,
		"reference_id":   s.ReferenceID,
		"company_id":     s.CompanyID,
	}
}
