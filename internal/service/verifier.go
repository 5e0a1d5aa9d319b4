package service

import (
	"errors"
	"time"

	"github.com/vbncursed/vkr/intent-gate/internal/canonical"
	"github.com/vbncursed/vkr/intent-gate/internal/crypto"
	"github.com/vbncursed/vkr/intent-gate/internal/models"
)

// DefaultClockSkew tolerates issuers whose clock runs slightly ahead.
const DefaultClockSkew = 30 * time.Second

// Verifier checks presented step tokens. It holds no mutable state.
type Verifier struct {
	mac   crypto.MAC
	clock Clock
	skew  time.Duration
}

func NewVerifier(mac crypto.MAC, clock Clock) *Verifier {
	if clock == nil {
		clock = RealClock{}
	}
	return &Verifier{mac: mac, clock: clock, skew: DefaultClockSkew}
}

// Verify runs format checks, then the MAC comparison, then the validity
// window. Format failures never reach the MAC.
func (v *Verifier) Verify(action models.ActionDescriptor, identity models.IdentityContext, token string) models.VerificationResult {
	env, err := crypto.Open(token)
	if err != nil {
		return reject(models.OutcomeMalformed, malformedReason(err))
	}
	msg, err := canonical.Build(action)
	if err != nil {
		return reject(models.OutcomeMalformed, "action is malformed: "+err.Error())
	}

	expected := v.mac.Sum(signingMessage(env.HeaderBytes(), identity, msg))
	if !crypto.Equal(expected, env.Tag) {
		return reject(models.OutcomeInvalidSignature, "intent token verification failed")
	}

	h := env.Header
	now := v.clock.Now()
	res := models.VerificationResult{IssuedAt: h.IssuedAt, ExpiresAt: h.ExpiresAt()}
	switch {
	case now.Add(v.skew).Before(h.IssuedAt):
		res.Outcome, res.Reason = models.OutcomeExpired, "intent token is not yet valid"
	case !now.Before(h.ExpiresAt()):
		res.Outcome, res.Reason = models.OutcomeExpired, "intent token expired"
	default:
		res.Outcome, res.ReplayKey = models.OutcomeApproved, env.ReplayKey()
	}
	return res
}

func reject(o models.Outcome, reason string) models.VerificationResult {
	return models.VerificationResult{Outcome: o, Reason: reason}
}

func malformedReason(err error) string {
	switch {
	case errors.Is(err, crypto.ErrTokenLength):
		return "intent token missing or wrong length"
	case errors.Is(err, crypto.ErrTokenFormat):
		return "intent token is not hexadecimal"
	case errors.Is(err, crypto.ErrTokenVersion):
		return "intent token version unsupported"
	}
	return "intent token malformed"
}
