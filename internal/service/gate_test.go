package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbncursed/vkr/intent-gate/internal/models"
	"github.com/vbncursed/vkr/intent-gate/internal/policy"
	"github.com/vbncursed/vkr/intent-gate/internal/util"
)

type memReplay struct {
	mu   sync.Mutex
	seen map[string]time.Time
	err  error
}

func (r *memReplay) Consume(_ context.Context, key string, until time.Time) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen == nil {
		r.seen = map[string]time.Time{}
	}
	if _, ok := r.seen[key]; ok {
		return false, nil
	}
	r.seen[key] = until
	return true, nil
}

type memAudit struct {
	mu   sync.Mutex
	recs []models.AuditRecord
}

func (a *memAudit) Record(_ context.Context, rec models.AuditRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recs = append(a.recs, rec)
	return nil
}

type memMetrics struct {
	mu     sync.Mutex
	counts map[models.Outcome]int
}

func (m *memMetrics) RecordOutcome(_ context.Context, _ string, o models.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = map[models.Outcome]int{}
	}
	m.counts[o]++
}

type gateFixture struct {
	clock   *fakeClock
	gate    *Gate
	audit   *memAudit
	metrics *memMetrics
	replay  *memReplay
	calls   atomic.Int64
}

func newGateFixture(t *testing.T, ceiling float64) *gateFixture {
	t.Helper()
	limits := policy.DefaultLimits()
	limits.MaxTransactionAmount = ceiling
	guard, err := policy.New(limits)
	require.NoError(t, err)

	f := &gateFixture{clock: newClock(t0), audit: &memAudit{}, metrics: &memMetrics{}, replay: &memReplay{}}
	f.gate = NewGate(NewVerifier(mustKey(t, secretA), f.clock), guard,
		WithReplayStore(f.replay), WithAudit(f.audit), WithMetrics(f.metrics), WithGateClock(f.clock))
	return f
}

func (f *gateFixture) op(_ context.Context, a models.ActionDescriptor) (string, error) {
	f.calls.Add(1)
	item, _ := a.Param("item")
	return "booked " + item.Str, nil
}

func TestGateScenarioApproved(t *testing.T) {
	f := newGateFixture(t, 100000)
	action := bookAction("FL123", 450)
	tok := issueLocal(t, secretA, f.clock, action, time.Hour)

	res := f.gate.Execute(context.Background(), GuardedCall{Action: action, Identity: alice, Token: tok}, f.op)
	assert.Equal(t, models.OutcomeApproved, res.Outcome)
	assert.Equal(t, models.StateExecuted, res.State)
	assert.Equal(t, "booked FL123", res.Output)
	assert.NotEmpty(t, res.AuditID)
	assert.EqualValues(t, 1, f.calls.Load())

	require.Len(t, f.audit.recs, 1)
	rec := f.audit.recs[0]
	assert.Equal(t, res.AuditID, rec.ID)
	assert.Equal(t, "book", rec.Action)
	assert.Equal(t, alice, rec.Identity)
	assert.Equal(t, models.OutcomeApproved, rec.Outcome)
	assert.Equal(t, t0, rec.At)
	assert.Equal(t, util.TokenFingerprint(tok), rec.TokenFingerprint)
	assert.False(t, strings.Contains(tok, rec.TokenFingerprint))

	// Tokens minted in the same second are told apart in the audit trail.
	other := issueLocal(t, secretA, f.clock, action, time.Hour)
	assert.NotEqual(t, util.TokenFingerprint(other), rec.TokenFingerprint)
}

func TestGateScenarioPolicyViolation(t *testing.T) {
	f := newGateFixture(t, 100000)
	action := bookAction("FL123", 150000)
	tok := issueLocal(t, secretA, f.clock, action, time.Hour)

	res := f.gate.Execute(context.Background(), GuardedCall{Action: action, Identity: alice, Token: tok}, f.op)
	assert.Equal(t, models.OutcomePolicyViolation, res.Outcome)
	assert.Equal(t, models.StateRejected, res.State)
	assert.Contains(t, res.Reason, "150000")
	assert.Zero(t, f.calls.Load())
	assert.ErrorIs(t, OutcomeErr(res.Outcome), ErrPolicyViolation)
}

func TestGateScenarioExpired(t *testing.T) {
	f := newGateFixture(t, 100000)
	action := bookAction("FL123", 450)
	tok := issueLocal(t, secretA, f.clock, action, time.Minute)
	f.clock.Advance(2 * time.Minute)

	res := f.gate.Execute(context.Background(), GuardedCall{Action: action, Identity: alice, Token: tok}, f.op)
	assert.Equal(t, models.OutcomeExpired, res.Outcome)
	assert.Zero(t, f.calls.Load())
}

func TestGateScenarioWrongSecret(t *testing.T) {
	f := newGateFixture(t, 100000)
	action := bookAction("FL123", 450)
	tok := issueLocal(t, secretB, f.clock, action, time.Hour)

	res := f.gate.Execute(context.Background(), GuardedCall{Action: action, Identity: alice, Token: tok}, f.op)
	assert.Equal(t, models.OutcomeInvalidSignature, res.Outcome)
	assert.Zero(t, f.calls.Load())
}

func TestGateScenarioEmptyToken(t *testing.T) {
	f := newGateFixture(t, 100000)
	res := f.gate.Execute(context.Background(), GuardedCall{Action: bookAction("FL123", 450), Identity: alice}, f.op)
	assert.Equal(t, models.OutcomeMalformed, res.Outcome)
	assert.Zero(t, f.calls.Load())
	require.Len(t, f.audit.recs, 1)
	assert.Empty(t, f.audit.recs[0].TokenFingerprint)
}

func TestGateReplayRejected(t *testing.T) {
	f := newGateFixture(t, 100000)
	action := bookAction("FL123", 450)
	tok := issueLocal(t, secretA, f.clock, action, time.Hour)
	call := GuardedCall{Action: action, Identity: alice, Token: tok}

	first := f.gate.Execute(context.Background(), call, f.op)
	require.Equal(t, models.OutcomeApproved, first.Outcome)

	// Same token, upper-cased hex: still the same token.
	call.Token = strings.ToUpper(tok)
	second := f.gate.Execute(context.Background(), call, f.op)
	assert.Equal(t, models.OutcomeReplayed, second.Outcome)
	assert.EqualValues(t, 1, f.calls.Load())
	assert.Equal(t, 1, f.metrics.counts[models.OutcomeReplayed])
}

func TestGatePolicyRejectionDoesNotConsumeToken(t *testing.T) {
	limits := policy.DefaultLimits()
	limits.Rules = []policy.Rule{{Name: "closed", Expr: "false"}}
	guard, err := policy.New(limits)
	require.NoError(t, err)
	replay := &memReplay{}
	clock := newClock(t0)
	g := NewGate(NewVerifier(mustKey(t, secretA), clock), guard, WithReplayStore(replay))

	action := bookAction("FL1", 10)
	tok := issueLocal(t, secretA, clock, action, time.Hour)
	res := g.Execute(context.Background(), GuardedCall{Action: action, Identity: alice, Token: tok}, func(context.Context, models.ActionDescriptor) (string, error) {
		t.Fatal("operation must not run")
		return "", nil
	})
	assert.Equal(t, models.OutcomePolicyViolation, res.Outcome)
	assert.Empty(t, replay.seen)
}

func TestGateReplayStoreFailureFailsClosed(t *testing.T) {
	f := newGateFixture(t, 100000)
	f.replay.err = errors.New("connection refused")
	action := bookAction("FL123", 450)
	tok := issueLocal(t, secretA, f.clock, action, time.Hour)

	res := f.gate.Execute(context.Background(), GuardedCall{Action: action, Identity: alice, Token: tok}, f.op)
	assert.Equal(t, models.OutcomeUpstreamFailure, res.Outcome)
	assert.Zero(t, f.calls.Load())
}

func TestGateOperationFailure(t *testing.T) {
	f := newGateFixture(t, 100000)
	action := bookAction("FL123", 450)
	tok := issueLocal(t, secretA, f.clock, action, time.Hour)

	res := f.gate.Execute(context.Background(), GuardedCall{Action: action, Identity: alice, Token: tok},
		func(context.Context, models.ActionDescriptor) (string, error) {
			return "", errors.New("provider returned 502")
		})
	assert.Equal(t, models.OutcomeUpstreamFailure, res.Outcome)
	assert.Equal(t, models.StateExecuted, res.State)
	assert.Contains(t, res.Reason, "502")
}

func TestGateOperationPanic(t *testing.T) {
	f := newGateFixture(t, 100000)
	action := bookAction("FL123", 450)
	tok := issueLocal(t, secretA, f.clock, action, time.Hour)

	var res models.ExecutionResult
	require.NotPanics(t, func() {
		res = f.gate.Execute(context.Background(), GuardedCall{Action: action, Identity: alice, Token: tok},
			func(context.Context, models.ActionDescriptor) (string, error) { panic("nil provider") })
	})
	assert.Equal(t, models.OutcomeUpstreamFailure, res.Outcome)
	assert.Contains(t, res.Reason, "panicked")
}

func TestGateNilOperation(t *testing.T) {
	f := newGateFixture(t, 100000)
	action := bookAction("FL123", 450)
	tok := issueLocal(t, secretA, f.clock, action, time.Hour)

	res := f.gate.Execute(context.Background(), GuardedCall{Action: action, Identity: alice, Token: tok}, nil)
	assert.Equal(t, models.OutcomeUpstreamFailure, res.Outcome)
	assert.Empty(t, f.replay.seen)
}

func TestGateConcurrentPresentationsRunOnce(t *testing.T) {
	f := newGateFixture(t, 100000)
	action := bookAction("FL123", 450)
	tok := issueLocal(t, secretA, f.clock, action, time.Hour)

	var wg sync.WaitGroup
	var approved atomic.Int64
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := f.gate.Execute(context.Background(), GuardedCall{Action: action, Identity: alice, Token: tok}, f.op)
			if res.Outcome.Approved() {
				approved.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, approved.Load())
	assert.EqualValues(t, 1, f.calls.Load())
}
