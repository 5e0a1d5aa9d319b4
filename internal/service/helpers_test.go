package service

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vbncursed/vkr/intent-gate/internal/crypto"
	"github.com/vbncursed/vkr/intent-gate/internal/models"
)

var (
	secretA = bytes.Repeat([]byte("a"), crypto.MinSecretLen)
	secretB = bytes.Repeat([]byte("b"), crypto.MinSecretLen)
	t0      = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	alice   = models.IdentityContext{UserID: "u-1", AgentID: "travel-agent", ContextID: "session-1::run-1"}
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// countingMAC counts every MAC computation.
type countingMAC struct {
	crypto.MAC
	calls atomic.Int64
}

func (m *countingMAC) Sum(msg []byte) []byte {
	m.calls.Add(1)
	return m.MAC.Sum(msg)
}

func mustKey(t *testing.T, secret []byte) *crypto.Key {
	t.Helper()
	k, err := crypto.NewKey(secret)
	require.NoError(t, err)
	return k
}

func bookAction(item string, price float64) models.ActionDescriptor {
	return models.ActionDescriptor{
		Name: "book",
		Params: []models.Param{
			{Name: "item", Value: models.String(item)},
			{Name: "price", Value: models.Number(price)},
		},
	}
}

func planFor(actions ...models.ActionDescriptor) models.IntentPlan {
	p := models.IntentPlan{Goal: "book a flight"}
	for _, a := range actions {
		p.Steps = append(p.Steps, models.PlanStep{Tool: "travel", Action: a})
	}
	return p
}

type staticPolicy struct{}

func (staticPolicy) Digest() string         { return "digest" }
func (staticPolicy) RuleSetVersion() string { return "1.0.0" }

// issueLocal issues a single-step token for action under secret at clock time.
func issueLocal(t *testing.T, secret []byte, clock Clock, action models.ActionDescriptor, ttl time.Duration) string {
	t.Helper()
	iss := NewIssuer(NewLocalHMACSigner(mustKey(t, secret)), staticPolicy{}, WithIssuerClock(clock))
	tok, err := iss.Issue(context.Background(), planFor(action), alice, ttl)
	require.NoError(t, err)
	require.Len(t, tok.Steps, 1)
	return tok.Steps[0].Token
}
