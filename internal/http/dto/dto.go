package dto

import (
	"time"

	"github.com/vbncursed/vkr/intent-gate/internal/models"
)

// Identity scopes a request. ContextID wins; otherwise it is derived from
// SessionKey and RunID.
type Identity struct {
	UserID     string `json:"user_id"`
	AgentID    string `json:"agent_id"`
	ContextID  string `json:"context_id,omitempty"`
	SessionKey string `json:"session_key,omitempty"`
	RunID      string `json:"run_id,omitempty"`
}

type Action struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

type PlanStep struct {
	Tool        string         `json:"tool"`
	Action      string         `json:"action"`
	Params      map[string]any `json:"params"`
	Description string         `json:"description,omitempty"`
}

type IssueRequest struct {
	Goal       string     `json:"goal"`
	Steps      []PlanStep `json:"steps"`
	Identity   Identity   `json:"identity"`
	TTLSeconds int64      `json:"ttl_seconds,omitempty"`
}

type StepToken struct {
	Action string `json:"action"`
	Tool   string `json:"tool"`
	Token  string `json:"token"`
}

type IssueResponse struct {
	IntentReference string      `json:"intent_reference"`
	PlanHash        string      `json:"plan_hash"`
	PolicyDigest    string      `json:"policy_digest"`
	IssuedAt        time.Time   `json:"issued_at"`
	ExpiresAt       time.Time   `json:"expires_at"`
	Steps           []StepToken `json:"steps"`
}

type IntentResponse struct {
	Reference    string                 `json:"intent_reference"`
	Goal         string                 `json:"goal"`
	PlanHash     string                 `json:"plan_hash"`
	PolicyDigest string                 `json:"policy_digest"`
	Identity     models.IdentityContext `json:"identity"`
	StepCount    int                    `json:"step_count"`
	IssuedAt     time.Time              `json:"issued_at"`
	ExpiresAt    time.Time              `json:"expires_at"`
}

type VerifyRequest struct {
	Action   Action   `json:"action"`
	Identity Identity `json:"identity"`
	Token    string   `json:"token"`
}

type VerifyResponse struct {
	Outcome   models.Outcome `json:"outcome"`
	Reason    string         `json:"reason,omitempty"`
	IssuedAt  *time.Time     `json:"issued_at,omitempty"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
}

type ToolRequest struct {
	Identity   Identity       `json:"identity"`
	Params     map[string]any `json:"params"`
	ArmorToken string         `json:"armor_token"`
}

type ToolResponse struct {
	Result  string         `json:"result"`
	Class   string         `json:"class"`
	Outcome models.Outcome `json:"outcome"`
	Message string         `json:"message"`
}

type AuditResponse struct {
	Records []models.AuditRecord `json:"records"`
}
