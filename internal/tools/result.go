package tools

import (
	"fmt"
	"regexp"

	"github.com/vbncursed/vkr/intent-gate/internal/models"
)

// Class is the leading word of a tool's text result.
type Class string

const (
	ClassSuccess Class = "SUCCESS"
	ClassBlocked Class = "BLOCKED"
	ClassError   Class = "ERROR"
)

// Result is the structured form of a tool's text result.
type Result struct {
	Class   Class          `json:"class"`
	Outcome models.Outcome `json:"outcome"`
	Message string         `json:"message"`
}

// String renders the text agents see, e.g. "BLOCKED[rejected_policy_limit]: ...".
func (r Result) String() string {
	if r.Class == ClassSuccess {
		return fmt.Sprintf("%s: %s", r.Class, r.Message)
	}
	return fmt.Sprintf("%s[%s]: %s", r.Class, r.Outcome, r.Message)
}

// classify maps a gate outcome to a result class. Only policy denials are
// "blocked"; every other rejection is an error the caller should surface.
func classify(o models.Outcome) Class {
	switch o {
	case models.OutcomeApproved:
		return ClassSuccess
	case models.OutcomePolicyViolation:
		return ClassBlocked
	}
	return ClassError
}

// Messages may span lines, e.g. a provider error body.
var resultRe = regexp.MustCompile(`(?s)^(SUCCESS|BLOCKED|ERROR)(?:\[([a-z_]+)\])?: (.*)$`)

// ParseResult recovers the structured form of a text result.
func ParseResult(s string) (Result, error) {
	m := resultRe.FindStringSubmatch(s)
	if m == nil {
		return Result{}, fmt.Errorf("unrecognized tool result %q", s)
	}
	r := Result{Class: Class(m[1]), Outcome: models.Outcome(m[2]), Message: m[3]}
	switch {
	case r.Class == ClassSuccess && r.Outcome == "":
		r.Outcome = models.OutcomeApproved
	case r.Class == ClassSuccess, r.Outcome == "":
		return Result{}, fmt.Errorf("malformed tool result %q", s)
	}
	return r, nil
}
