package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/vbncursed/vkr/intent-gate/internal/canonical"
	"github.com/vbncursed/vkr/intent-gate/internal/models"
	"github.com/vbncursed/vkr/intent-gate/internal/util"
)

const (
	DefaultTokenTTL = time.Hour
	DefaultMaxTTL   = 24 * time.Hour
	MaxPlanSteps    = 256
)

// Issuer validates plans and delegates signing to the configured Signer.
type Issuer struct {
	signer     Signer
	policy     PolicyInfo
	intents    IntentRepository
	clock      Clock
	defaultTTL time.Duration
	maxTTL     time.Duration
	log        *slog.Logger
}

type IssuerOption func(*Issuer)

// WithLedger records every issued intent.
func WithLedger(r IntentRepository) IssuerOption { return func(i *Issuer) { i.intents = r } }

func WithTTL(def, maxTTL time.Duration) IssuerOption {
	return func(i *Issuer) {
		if def > 0 {
			i.defaultTTL = def
		}
		if maxTTL > 0 {
			i.maxTTL = maxTTL
		}
	}
}

func WithIssuerClock(c Clock) IssuerOption { return func(i *Issuer) { i.clock = c } }

func WithIssuerLogger(l *slog.Logger) IssuerOption { return func(i *Issuer) { i.log = l } }

func NewIssuer(signer Signer, policy PolicyInfo, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		signer:     signer,
		policy:     policy,
		clock:      RealClock{},
		defaultTTL: DefaultTokenTTL,
		maxTTL:     DefaultMaxTTL,
		log:        slog.Default(),
	}
	for _, o := range opts {
		o(i)
	}
	i.log = i.log.With("component", "issuer")
	return i
}

// Issue mints a token for plan, bound to identity, valid for ttl (zero
// selects the default). On any error the returned token is the zero value.
func (i *Issuer) Issue(ctx context.Context, plan models.IntentPlan, identity models.IdentityContext, ttl time.Duration) (models.IntentToken, error) {
	if err := validatePlan(plan); err != nil {
		return models.IntentToken{}, err
	}
	switch {
	case ttl < 0:
		return models.IntentToken{}, fmt.Errorf("%w: ttl must not be negative", ErrInvalidPlan)
	case ttl == 0:
		ttl = i.defaultTTL
	case ttl > i.maxTTL:
		return models.IntentToken{}, fmt.Errorf("%w: %s > %s", ErrTTLExceeded, ttl, i.maxTTL)
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	planHash, err := canonical.PlanHash(plan)
	if err != nil {
		return models.IntentToken{}, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}

	tok, err := i.signer.Sign(ctx, IssueRequest{
		Plan:     plan,
		Identity: identity,
		Validity: ttl,
		IssuedAt: i.clock.Now(),
		PlanHash: planHash,
		Policy:   PolicyMeta{RuleSetVersion: i.policy.RuleSetVersion(), Digest: i.policy.Digest()},
	})
	if err != nil {
		i.log.WarnContext(ctx, "issuance failed", "steps", len(plan.Steps), "err", err)
		return models.IntentToken{}, err
	}
	if len(tok.Steps) != len(plan.Steps) || (tok.Reference == "" && tok.PlanHash == "") {
		i.log.WarnContext(ctx, "issuer returned incomplete token", "steps", len(tok.Steps))
		return models.IntentToken{}, fmt.Errorf("%w: incomplete token", ErrUpstreamFailure)
	}
	if tok.ExpiresAt.Sub(tok.IssuedAt) > ttl {
		i.log.WarnContext(ctx, "issuer widened the validity window", "requested", ttl, "expires_at", tok.ExpiresAt)
		return models.IntentToken{}, fmt.Errorf("%w: validity exceeds requested %s", ErrUpstreamFailure, ttl)
	}

	if i.intents != nil && tok.Reference != "" {
		rec := models.IntentRecord{
			Reference:    tok.Reference,
			Goal:         plan.Goal,
			PlanHash:     tok.PlanHash,
			PolicyDigest: tok.PolicyDigest,
			Identity:     identity,
			StepCount:    len(tok.Steps),
			IssuedAt:     tok.IssuedAt,
			ExpiresAt:    tok.ExpiresAt,
		}
		if err := i.intents.InsertIntent(ctx, rec); err != nil {
			return models.IntentToken{}, fmt.Errorf("record intent: %w", err)
		}
	}

	i.log.InfoContext(ctx, "intent issued",
		"reference", tok.Reference,
		"steps", len(tok.Steps),
		"token_fingerprint", util.TokenFingerprint(tok.Steps[0].Token),
		"expires_at", tok.ExpiresAt,
	)
	return tok, nil
}

// Lookup returns the ledger entry for an issued intent.
func (i *Issuer) Lookup(ctx context.Context, reference string) (models.IntentRecord, error) {
	if i.intents == nil {
		return models.IntentRecord{}, ErrNotFound
	}
	return i.intents.GetIntent(ctx, reference)
}

func validatePlan(plan models.IntentPlan) error {
	if len(plan.Steps) == 0 {
		return fmt.Errorf("%w: plan has no steps", ErrInvalidPlan)
	}
	if len(plan.Steps) > MaxPlanSteps {
		return fmt.Errorf("%w: plan has more than %d steps", ErrInvalidPlan, MaxPlanSteps)
	}
	for idx, s := range plan.Steps {
		if _, err := canonical.Build(s.Action); err != nil {
			return fmt.Errorf("%w: step %d: %v", ErrInvalidPlan, idx, err)
		}
	}
	return nil
}

// SecondsToTTL converts a wire validity in seconds, refusing values that do
// not fit in a time.Duration.
func SecondsToTTL(seconds int64) (time.Duration, error) {
	if seconds > math.MaxInt64/int64(time.Second) {
		return 0, fmt.Errorf("%w: %d seconds", ErrTTLExceeded, seconds)
	}
	return time.Duration(seconds) * time.Second, nil
}
