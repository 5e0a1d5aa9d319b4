package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbncursed/vkr/intent-gate/internal/models"
)

type memLedger struct {
	mu   sync.Mutex
	recs map[string]models.IntentRecord
	err  error
}

func (l *memLedger) InsertIntent(_ context.Context, rec models.IntentRecord) error {
	if l.err != nil {
		return l.err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.recs == nil {
		l.recs = map[string]models.IntentRecord{}
	}
	l.recs[rec.Reference] = rec
	return nil
}

func (l *memLedger) GetIntent(_ context.Context, ref string) (models.IntentRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.recs[ref]
	if !ok {
		return models.IntentRecord{}, ErrNotFound
	}
	return rec, nil
}

type signerFunc func(ctx context.Context, req IssueRequest) (models.IntentToken, error)

func (f signerFunc) Sign(ctx context.Context, req IssueRequest) (models.IntentToken, error) {
	return f(ctx, req)
}

func TestIssueMultiStepPlan(t *testing.T) {
	clock := newClock(t0)
	ledger := &memLedger{}
	iss := NewIssuer(NewLocalHMACSigner(mustKey(t, secretA)), staticPolicy{},
		WithIssuerClock(clock), WithLedger(ledger))

	search := models.ActionDescriptor{Name: "search_flights", Params: []models.Param{{Name: "to", Value: models.String("DEL")}}}
	plan := planFor(search, bookAction("FL123", 450))
	tok, err := iss.Issue(context.Background(), plan, alice, 0)
	require.NoError(t, err)

	assert.NotEmpty(t, tok.Reference)
	assert.Len(t, tok.PlanHash, 64)
	assert.Equal(t, "digest", tok.PolicyDigest)
	assert.Equal(t, t0, tok.IssuedAt)
	assert.Equal(t, t0.Add(DefaultTokenTTL), tok.ExpiresAt)
	require.Len(t, tok.Steps, 2)
	assert.Equal(t, "search_flights", tok.Steps[0].Action)
	assert.Equal(t, "book", tok.Steps[1].Action)
	assert.Equal(t, "travel", tok.Steps[1].Tool)
	assert.NotEqual(t, tok.Steps[0].Token, tok.Steps[1].Token)

	v := NewVerifier(mustKey(t, secretA), clock)
	assert.Equal(t, models.OutcomeApproved, v.Verify(search, alice, tok.Steps[0].Token).Outcome)
	assert.Equal(t, models.OutcomeApproved, v.Verify(bookAction("FL123", 450), alice, tok.Steps[1].Token).Outcome)
	// A step token authorizes its own step only.
	assert.Equal(t, models.OutcomeInvalidSignature, v.Verify(search, alice, tok.Steps[1].Token).Outcome)

	rec, err := iss.Lookup(context.Background(), tok.Reference)
	require.NoError(t, err)
	assert.Equal(t, "book a flight", rec.Goal)
	assert.Equal(t, 2, rec.StepCount)
	assert.Equal(t, alice, rec.Identity)
}

func TestIssueTwiceGivesIndependentTokens(t *testing.T) {
	clock := newClock(t0)
	iss := NewIssuer(NewLocalHMACSigner(mustKey(t, secretA)), staticPolicy{}, WithIssuerClock(clock))
	plan := planFor(bookAction("FL123", 450))

	a, err := iss.Issue(context.Background(), plan, alice, time.Hour)
	require.NoError(t, err)
	b, err := iss.Issue(context.Background(), plan, alice, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, a.Reference, b.Reference)
	assert.NotEqual(t, a.Steps[0].Token, b.Steps[0].Token)
	assert.Equal(t, a.PlanHash, b.PlanHash)

	v := NewVerifier(mustKey(t, secretA), clock)
	assert.True(t, v.Verify(bookAction("FL123", 450), alice, a.Steps[0].Token).Outcome.Approved())
	assert.True(t, v.Verify(bookAction("FL123", 450), alice, b.Steps[0].Token).Outcome.Approved())
}

func TestIssueValidation(t *testing.T) {
	iss := NewIssuer(NewLocalHMACSigner(mustKey(t, secretA)), staticPolicy{}, WithTTL(time.Hour, 2*time.Hour))
	ctx := context.Background()

	_, err := iss.Issue(ctx, models.IntentPlan{Goal: "nothing"}, alice, 0)
	require.ErrorIs(t, err, ErrInvalidPlan)

	_, err = iss.Issue(ctx, planFor(models.ActionDescriptor{Name: ""}), alice, 0)
	require.ErrorIs(t, err, ErrInvalidPlan)

	_, err = iss.Issue(ctx, planFor(bookAction("FL1", 1)), alice, -time.Second)
	require.ErrorIs(t, err, ErrInvalidPlan)

	_, err = iss.Issue(ctx, planFor(bookAction("FL1", 1)), alice, 3*time.Hour)
	require.ErrorIs(t, err, ErrTTLExceeded)

	big := models.IntentPlan{}
	for i := 0; i <= MaxPlanSteps; i++ {
		big.Steps = append(big.Steps, models.PlanStep{Action: bookAction("FL1", float64(i))})
	}
	_, err = iss.Issue(ctx, big, alice, 0)
	require.ErrorIs(t, err, ErrInvalidPlan)
}

func TestIssueSignerFailureReturnsNoToken(t *testing.T) {
	boom := errors.New("dial tcp: i/o timeout")
	iss := NewIssuer(signerFunc(func(context.Context, IssueRequest) (models.IntentToken, error) {
		return models.IntentToken{Reference: "partial"}, errors.Join(ErrUpstreamFailure, boom)
	}), staticPolicy{})

	tok, err := iss.Issue(context.Background(), planFor(bookAction("FL1", 1)), alice, 0)
	require.ErrorIs(t, err, ErrUpstreamFailure)
	assert.Equal(t, models.IntentToken{}, tok)
}

func TestIssueIncompleteTokenRejected(t *testing.T) {
	iss := NewIssuer(signerFunc(func(context.Context, IssueRequest) (models.IntentToken, error) {
		return models.IntentToken{Reference: "ref"}, nil
	}), staticPolicy{})

	tok, err := iss.Issue(context.Background(), planFor(bookAction("FL1", 1)), alice, 0)
	require.ErrorIs(t, err, ErrUpstreamFailure)
	assert.Equal(t, models.IntentToken{}, tok)
}

func TestIssueRejectsWidenedValidity(t *testing.T) {
	iss := NewIssuer(signerFunc(func(_ context.Context, req IssueRequest) (models.IntentToken, error) {
		return models.IntentToken{
			Reference: "ref",
			IssuedAt:  req.IssuedAt,
			ExpiresAt: req.IssuedAt.Add(9000 * time.Hour),
			Steps:     []models.StepToken{{Token: "x"}},
		}, nil
	}), staticPolicy{}, WithIssuerClock(newClock(t0)))

	tok, err := iss.Issue(context.Background(), planFor(bookAction("FL1", 1)), alice, 10*time.Minute)
	require.ErrorIs(t, err, ErrUpstreamFailure)
	assert.Equal(t, models.IntentToken{}, tok)
}

func TestIssuePassesPolicyMeta(t *testing.T) {
	var got IssueRequest
	iss := NewIssuer(signerFunc(func(_ context.Context, req IssueRequest) (models.IntentToken, error) {
		got = req
		return models.IntentToken{PlanHash: req.PlanHash, Steps: []models.StepToken{{Token: "x"}}}, nil
	}), staticPolicy{}, WithIssuerClock(newClock(t0)))

	_, err := iss.Issue(context.Background(), planFor(bookAction("FL1", 1)), alice, 90*time.Second)
	require.NoError(t, err)
	assert.Equal(t, PolicyMeta{RuleSetVersion: "1.0.0", Digest: "digest"}, got.Policy)
	assert.Equal(t, 90*time.Second, got.Validity)
	assert.Equal(t, t0, got.IssuedAt)
	assert.Equal(t, alice, got.Identity)
	assert.Len(t, got.PlanHash, 64)
}

func TestIssueLedgerFailure(t *testing.T) {
	iss := NewIssuer(NewLocalHMACSigner(mustKey(t, secretA)), staticPolicy{},
		WithLedger(&memLedger{err: errors.New("db down")}))
	tok, err := iss.Issue(context.Background(), planFor(bookAction("FL1", 1)), alice, 0)
	require.Error(t, err)
	assert.Equal(t, models.IntentToken{}, tok)
}

func TestIssueCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	iss := NewIssuer(NewLocalHMACSigner(mustKey(t, secretA)), staticPolicy{})
	tok, err := iss.Issue(ctx, planFor(bookAction("FL1", 1)), alice, 0)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.IntentToken{}, tok)
}

func TestLookupWithoutLedger(t *testing.T) {
	iss := NewIssuer(NewLocalHMACSigner(mustKey(t, secretA)), staticPolicy{})
	_, err := iss.Lookup(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
