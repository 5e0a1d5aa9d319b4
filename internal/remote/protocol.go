// Package remote speaks the intent issuance protocol: a plan goes out, one
// step token per planned action comes back.
package remote

import (
	"fmt"
	"time"

	"github.com/vbncursed/vkr/intent-gate/internal/models"
	"github.com/vbncursed/vkr/intent-gate/internal/service"
)

// ProcessPath is where an issuer serves the protocol.
const ProcessPath = "/iap/process"

type ProcessRequest struct {
	Plan            PlanDoc                `json:"plan"`
	Policy          PolicyDoc              `json:"policy"`
	Identity        models.IdentityContext `json:"identity"`
	ValiditySeconds int64                  `json:"validity_seconds"`
}

type PlanDoc struct {
	Goal  string    `json:"goal"`
	Steps []StepDoc `json:"steps"`
}

// StepDoc is a planned action; MCP names the tool server that owns it.
type StepDoc struct {
	Action      string         `json:"action"`
	MCP         string         `json:"mcp"`
	Params      map[string]any `json:"params"`
	Description string         `json:"description,omitempty"`
}

type PolicyDoc struct {
	Global GlobalPolicy `json:"global"`
}

type GlobalPolicy struct {
	Metadata PolicyMetadata `json:"metadata"`
}

type PolicyMetadata struct {
	RuleSetVersion string `json:"rule_set_version"`
	Digest         string `json:"digest"`
}

type ProcessResponse struct {
	Token TokenDoc `json:"token"`
}

type TokenDoc struct {
	IntentReference string         `json:"intent_reference,omitempty"`
	PlanHash        string         `json:"plan_hash,omitempty"`
	PolicyDigest    string         `json:"policy_digest,omitempty"`
	IssuedAt        time.Time      `json:"issued_at"`
	ExpiresAt       time.Time      `json:"expires_at"`
	StepTokens      []StepTokenDoc `json:"step_tokens"`
}

type StepTokenDoc struct {
	Action string `json:"action"`
	MCP    string `json:"mcp"`
	Token  string `json:"token"`
}

// EncodeRequest renders an issuance request for the wire.
func EncodeRequest(req service.IssueRequest) ProcessRequest {
	out := ProcessRequest{
		Plan:            PlanDoc{Goal: req.Plan.Goal, Steps: make([]StepDoc, len(req.Plan.Steps))},
		Identity:        req.Identity,
		ValiditySeconds: int64(req.Validity / time.Second),
	}
	out.Policy.Global.Metadata = PolicyMetadata{RuleSetVersion: req.Policy.RuleSetVersion, Digest: req.Policy.Digest}
	for i, s := range req.Plan.Steps {
		out.Plan.Steps[i] = StepDoc{
			Action:      s.Action.Name,
			MCP:         s.Tool,
			Params:      s.Action.ParamMap(),
			Description: s.Description,
		}
	}
	return out
}

// Decode turns a wire request back into a plan, an identity and a validity.
func (r ProcessRequest) Decode() (models.IntentPlan, models.IdentityContext, time.Duration, error) {
	plan := models.IntentPlan{Goal: r.Plan.Goal, Steps: make([]models.PlanStep, len(r.Plan.Steps))}
	for i, s := range r.Plan.Steps {
		a, err := models.NewAction(s.Action, s.Params)
		if err != nil {
			return models.IntentPlan{}, models.IdentityContext{}, 0, fmt.Errorf("%w: step %d: %v", service.ErrInvalidPlan, i, err)
		}
		plan.Steps[i] = models.PlanStep{Tool: s.MCP, Action: a, Description: s.Description}
	}
	if r.ValiditySeconds < 0 {
		return models.IntentPlan{}, models.IdentityContext{}, 0, fmt.Errorf("%w: negative validity", service.ErrInvalidPlan)
	}
	ttl, err := service.SecondsToTTL(r.ValiditySeconds)
	if err != nil {
		return models.IntentPlan{}, models.IdentityContext{}, 0, err
	}
	return plan, r.Identity, ttl, nil
}

// EncodeToken renders an issued token for the wire.
func EncodeToken(tok models.IntentToken) ProcessResponse {
	doc := TokenDoc{
		IntentReference: tok.Reference,
		PlanHash:        tok.PlanHash,
		PolicyDigest:    tok.PolicyDigest,
		IssuedAt:        tok.IssuedAt.UTC(),
		ExpiresAt:       tok.ExpiresAt.UTC(),
		StepTokens:      make([]StepTokenDoc, len(tok.Steps)),
	}
	for i, s := range tok.Steps {
		doc.StepTokens[i] = StepTokenDoc{Action: s.Action, MCP: s.Tool, Token: s.Token}
	}
	return ProcessResponse{Token: doc}
}
