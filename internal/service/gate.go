package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vbncursed/vkr/intent-gate/internal/models"
	"github.com/vbncursed/vkr/intent-gate/internal/util"
)

// TokenVerifier is satisfied by *Verifier.
type TokenVerifier interface {
	Verify(action models.ActionDescriptor, identity models.IdentityContext, token string) models.VerificationResult
}

// PolicyEvaluator is satisfied by *policy.Guardrail.
type PolicyEvaluator interface {
	Evaluate(action models.ActionDescriptor) models.PolicyResult
}

// Operation is the side effect a gate protects.
type Operation func(ctx context.Context, action models.ActionDescriptor) (string, error)

// GuardedCall is one attempt to run a guarded operation.
type GuardedCall struct {
	Action   models.ActionDescriptor
	Identity models.IdentityContext
	Token    string
}

// Gate sequences verification, policy and execution for a guarded call.
// A rejection at any stage is terminal for the call.
type Gate struct {
	verifier TokenVerifier
	policy   PolicyEvaluator
	replay   ReplayStore
	audit    AuditSink
	metrics  Metrics
	clock    Clock
	log      *slog.Logger
}

type GateOption func(*Gate)

func WithReplayStore(r ReplayStore) GateOption { return func(g *Gate) { g.replay = r } }
func WithAudit(a AuditSink) GateOption         { return func(g *Gate) { g.audit = a } }
func WithMetrics(m Metrics) GateOption         { return func(g *Gate) { g.metrics = m } }
func WithGateClock(c Clock) GateOption         { return func(g *Gate) { g.clock = c } }
func WithGateLogger(l *slog.Logger) GateOption { return func(g *Gate) { g.log = l } }

func NewGate(v TokenVerifier, p PolicyEvaluator, opts ...GateOption) *Gate {
	g := &Gate{verifier: v, policy: p, clock: RealClock{}, log: slog.Default()}
	for _, o := range opts {
		o(g)
	}
	g.log = g.log.With("component", "gate")
	return g
}

// Execute verifies the token, evaluates policy, consumes the token and runs
// op exactly once when everything passes. It never panics.
func (g *Gate) Execute(ctx context.Context, call GuardedCall, op Operation) models.ExecutionResult {
	state := models.StateReceived

	vr := g.verifier.Verify(call.Action, call.Identity, call.Token)
	if !vr.Outcome.Approved() {
		return g.finish(ctx, call, state, models.ExecutionResult{Outcome: vr.Outcome, Reason: vr.Reason})
	}
	state = models.StateTokenChecked

	if pr := g.policy.Evaluate(call.Action); !pr.Allowed {
		return g.finish(ctx, call, state, models.ExecutionResult{Outcome: models.OutcomePolicyViolation, Reason: pr.Reason})
	}
	state = models.StatePolicyChecked

	if op == nil {
		return g.finish(ctx, call, state, models.ExecutionResult{Outcome: models.OutcomeUpstreamFailure, Reason: "no operation bound"})
	}
	if g.replay != nil {
		first, err := g.replay.Consume(ctx, vr.ReplayKey, vr.ExpiresAt)
		if err != nil {
			g.log.ErrorContext(ctx, "replay store unavailable", "err", err)
			return g.finish(ctx, call, state, models.ExecutionResult{Outcome: models.OutcomeUpstreamFailure, Reason: "replay store unavailable"})
		}
		if !first {
			return g.finish(ctx, call, state, models.ExecutionResult{Outcome: models.OutcomeReplayed, Reason: "intent token already used"})
		}
	}

	out, err := run(ctx, op, call.Action)
	if err != nil {
		return g.finish(ctx, call, models.StateExecuted, models.ExecutionResult{Outcome: models.OutcomeUpstreamFailure, Reason: err.Error()})
	}
	return g.finish(ctx, call, models.StateExecuted, models.ExecutionResult{Outcome: models.OutcomeApproved, Output: out})
}

func run(ctx context.Context, op Operation, action models.ActionDescriptor) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	return op(ctx, action)
}

func (g *Gate) finish(ctx context.Context, call GuardedCall, reached models.GateState, res models.ExecutionResult) models.ExecutionResult {
	res.State = models.StateRejected
	if reached == models.StateExecuted {
		res.State = models.StateExecuted
	}
	res.AuditID = uuid.New().String()

	name := models.NormalizeActionName(call.Action.Name)
	rec := models.AuditRecord{
		ID:               res.AuditID,
		Action:           name,
		Params:           call.Action.ParamMap(),
		Identity:         call.Identity,
		Outcome:          res.Outcome,
		State:            res.State,
		Reason:           res.Reason,
		TokenFingerprint: util.TokenFingerprint(call.Token),
		At:               g.clock.Now().UTC(),
	}

	level := slog.LevelInfo
	if !res.Outcome.Approved() {
		level = slog.LevelWarn
	}
	g.log.Log(ctx, level, "guarded call finished",
		"audit_id", rec.ID,
		"action", name,
		"user_id", call.Identity.UserID,
		"agent_id", call.Identity.AgentID,
		"outcome", res.Outcome,
		"reached", reached,
		"reason", res.Reason,
		"token_fingerprint", rec.TokenFingerprint,
	)
	if g.audit != nil {
		if err := g.audit.Record(ctx, rec); err != nil {
			g.log.ErrorContext(ctx, "audit record failed", "audit_id", rec.ID, "err", err)
		}
	}
	if g.metrics != nil {
		g.metrics.RecordOutcome(ctx, name, res.Outcome)
	}
	return res
}
