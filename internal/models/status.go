package models

import (
	"strings"
	"time"
)

// Outcome is the tagged result of a guarded call.
type Outcome string

const (
	OutcomeApproved         Outcome = "approved"
	OutcomeMalformed        Outcome = "rejected_malformed"
	OutcomeInvalidSignature Outcome = "rejected_invalid_token"
	OutcomeExpired          Outcome = "rejected_expired"
	OutcomePolicyViolation  Outcome = "rejected_policy_limit"
	OutcomeReplayed         Outcome = "rejected_replayed"
	OutcomeUpstreamFailure  Outcome = "upstream_failure"
)

func (o Outcome) Approved() bool { return o == OutcomeApproved }

// GateState is a stage of the execution gate state machine.
type GateState string

const (
	StateReceived      GateState = "received"
	StateTokenChecked  GateState = "token_checked"
	StatePolicyChecked GateState = "policy_checked"
	StateExecuted      GateState = "executed"
	StateRejected      GateState = "rejected"
)

type VerificationResult struct {
	Outcome   Outcome
	Reason    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	// ReplayKey identifies the token for single-use tracking without
	// exposing the token itself.
	ReplayKey string
}

type PolicyResult struct {
	Allowed bool
	Reason  string
	Rule    string
}

type ExecutionResult struct {
	Outcome Outcome
	State   GateState
	Reason  string
	Output  string
	AuditID string
}

// AuditRecord is written once per gate terminal state.
type AuditRecord struct {
	ID               string          `json:"id"`
	Action           string          `json:"action"`
	Params           map[string]any  `json:"params,omitempty"`
	Identity         IdentityContext `json:"identity"`
	Outcome          Outcome         `json:"outcome"`
	State            GateState       `json:"state"`
	Reason           string          `json:"reason,omitempty"`
	TokenFingerprint string          `json:"token_fingerprint,omitempty"`
	At               time.Time       `json:"at"`
}

// NormalizeActionName trims and lower-cases an action or tool name.
func NormalizeActionName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
