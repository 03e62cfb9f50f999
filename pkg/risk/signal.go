package risk

import (
	"fmt"
	"time"
)

// Signal is a single, already-classified observation about an entity.
// Signals are values; nothing in this module mutates one in place.
type Signal struct {
	Source        Source    `json:"source" yaml:"source"`
	Severity      Severity  `json:"severity" yaml:"severity"`
	ReasonCode    string    `json:"reason_code" yaml:"reason_code"`
	Description   string    `json:"description" yaml:"description"`
	ReferenceType string    `json:"reference_type,omitempty" yaml:"reference_type"`
	ReferenceID   string    `json:"reference_id,omitempty" yaml:"reference_id"`
	CompanyID     string    `json:"company_id" yaml:"company_id"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
}

// Validate checks the fields the evaluator depends on.
func (s Signal) Validate() error {
	if !s.Source.Valid() {
		return fmt.Errorf("%w: unknown source %q", ErrInvalidSignal, string(s.Source))
	}
	if !s.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidSignal, string(s.Severity))
	}
	if s.ReasonCode == "" {
		return fmt.Errorf("%w: missing reason code", ErrInvalidSignal)
	}
	return nil
}

// Target identifies the entity whose risk posture is tracked.
type Target struct {
	CompanyID  string `json:"company_id"`
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
}

// Validate requires every component of the key.
func (t Target) Validate() error {
	switch {
	case t.CompanyID == "":
		return fmt.Errorf("%w: company id is required", ErrInvalidTarget)
	case t.TargetType == "":
		return fmt.Errorf("%w: target type is required", ErrInvalidTarget)
	case t.TargetID == "":
		return fmt.Errorf("%w: target id is required", ErrInvalidTarget)
	}
	return nil
}

func (t Target) String() string {
	return t.CompanyID + "/" + t.TargetType + "/" + t.TargetID
}
