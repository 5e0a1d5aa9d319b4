package dto

import (
	"fmt"
	"time"

	"github.com/vbncursed/vkr/intent-gate/internal/models"
	"github.com/vbncursed/vkr/intent-gate/internal/service"
	"github.com/vbncursed/vkr/intent-gate/internal/tools"
	"github.com/vbncursed/vkr/intent-gate/internal/util"
)

func (i Identity) ToModel() models.IdentityContext {
	ctxID := i.ContextID
	if ctxID == "" {
		ctxID = util.RunKey(i.SessionKey, i.RunID)
	}
	return models.IdentityContext{UserID: i.UserID, AgentID: i.AgentID, ContextID: ctxID}
}

func (a Action) ToModel() (models.ActionDescriptor, error) {
	return models.NewAction(a.Name, a.Params)
}

// ToPlan converts the request into an intent plan.
func (r IssueRequest) ToPlan() (models.IntentPlan, error) {
	plan := models.IntentPlan{Goal: r.Goal, Steps: make([]models.PlanStep, len(r.Steps))}
	for i, s := range r.Steps {
		a, err := models.NewAction(s.Action, s.Params)
		if err != nil {
			return models.IntentPlan{}, fmt.Errorf("%w: step %d: %v", service.ErrInvalidPlan, i, err)
		}
		plan.Steps[i] = models.PlanStep{Tool: s.Tool, Action: a, Description: s.Description}
	}
	return plan, nil
}

func (r IssueRequest) TTL() (time.Duration, error) { return service.SecondsToTTL(r.TTLSeconds) }

func FromIntentToken(t models.IntentToken) IssueResponse {
	out := IssueResponse{
		IntentReference: t.Reference,
		PlanHash:        t.PlanHash,
		PolicyDigest:    t.PolicyDigest,
		IssuedAt:        t.IssuedAt.UTC(),
		ExpiresAt:       t.ExpiresAt.UTC(),
		Steps:           make([]StepToken, len(t.Steps)),
	}
	for i, s := range t.Steps {
		out.Steps[i] = StepToken{Action: s.Action, Tool: s.Tool, Token: s.Token}
	}
	return out
}

func FromIntentRecord(r models.IntentRecord) IntentResponse {
	return IntentResponse{
		Reference:    r.Reference,
		Goal:         r.Goal,
		PlanHash:     r.PlanHash,
		PolicyDigest: r.PolicyDigest,
		Identity:     r.Identity,
		StepCount:    r.StepCount,
		IssuedAt:     r.IssuedAt.UTC(),
		ExpiresAt:    r.ExpiresAt.UTC(),
	}
}

func FromVerification(v models.VerificationResult) VerifyResponse {
	out := VerifyResponse{Outcome: v.Outcome, Reason: v.Reason}
	if v.Outcome.Approved() {
		issued, expires := v.IssuedAt.UTC(), v.ExpiresAt.UTC()
		out.IssuedAt, out.ExpiresAt = &issued, &expires
	}
	return out
}

func FromToolResult(r tools.Result) ToolResponse {
	return ToolResponse{Result: r.String(), Class: string(r.Class), Outcome: r.Outcome, Message: r.Message}
}
