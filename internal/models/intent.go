package models

import "time"

// IdentityContext scopes a token to a user, an agent and an execution context.
type IdentityContext struct {
	UserID    string `json:"user_id"`
	AgentID   string `json:"agent_id"`
	ContextID string `json:"context_id"`
}

// PlanStep is one planned action tagged with the tool that owns it.
type PlanStep struct {
	Tool        string
	Action      ActionDescriptor
	Description string
}

// IntentPlan is what a token is issued against. Goal is advisory only.
type IntentPlan struct {
	Goal  string
	Steps []PlanStep
}

// AllowedActions returns the normalized action names the plan covers.
func (p IntentPlan) AllowedActions() map[string]struct{} {
	out := make(map[string]struct{}, len(p.Steps))
	for _, s := range p.Steps {
		out[NormalizeActionName(s.Action.Name)] = struct{}{}
	}
	return out
}

// StepToken authorizes exactly one planned action.
type StepToken struct {
	Action string `json:"action"`
	Tool   string `json:"tool"`
	Token  string `json:"token"`
}

// IntentToken is the issuer's result. Never mutated after issuance.
type IntentToken struct {
	Reference    string      `json:"intent_reference"`
	PlanHash     string      `json:"plan_hash"`
	PolicyDigest string      `json:"policy_digest"`
	IssuedAt     time.Time   `json:"issued_at"`
	ExpiresAt    time.Time   `json:"expires_at"`
	Steps        []StepToken `json:"steps"`
}

// IntentRecord is the ledger projection of an issued intent.
type IntentRecord struct {
	Reference    string
	Goal         string
	PlanHash     string
	PolicyDigest string
	Identity     IdentityContext
	StepCount    int
	IssuedAt     time.Time
	ExpiresAt    time.Time
}
