package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/vbncursed/vkr/intent-gate/internal/canonical"
	"github.com/vbncursed/vkr/intent-gate/internal/crypto"
	"github.com/vbncursed/vkr/intent-gate/internal/models"
)

// RealClock is the production Clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// LocalHMACSigner signs every plan step with the shared HMAC key.
type LocalHMACSigner struct {
	mac  crypto.MAC
	rand io.Reader
}

func NewLocalHMACSigner(mac crypto.MAC) *LocalHMACSigner {
	return &LocalHMACSigner{mac: mac, rand: rand.Reader}
}

func (s *LocalHMACSigner) Sign(ctx context.Context, req IssueRequest) (models.IntentToken, error) {
	if err := ctx.Err(); err != nil {
		return models.IntentToken{}, err
	}
	if len(req.Plan.Steps) > MaxPlanSteps {
		return models.IntentToken{}, fmt.Errorf("%w: too many steps", ErrInvalidPlan)
	}
	var nonce [crypto.NonceLen]byte
	if _, err := io.ReadFull(s.rand, nonce[:]); err != nil {
		return models.IntentToken{}, fmt.Errorf("nonce: %w", err)
	}
	issuedAt := req.IssuedAt.UTC().Truncate(time.Second)
	validity := req.Validity.Truncate(time.Second)

	steps := make([]models.StepToken, len(req.Plan.Steps))
	for i, st := range req.Plan.Steps {
		msg, err := canonical.Build(st.Action)
		if err != nil {
			return models.IntentToken{}, fmt.Errorf("%w: step %d: %v", ErrInvalidPlan, i, err)
		}
		h := crypto.Header{IssuedAt: issuedAt, Validity: validity, Nonce: nonce, Step: uint16(i)}
		tag := s.mac.Sum(signingMessage(h.Bytes(), req.Identity, msg))
		steps[i] = models.StepToken{
			Action: models.NormalizeActionName(st.Action.Name),
			Tool:   models.NormalizeActionName(st.Tool),
			Token:  crypto.Seal(h, tag),
		}
	}
	return models.IntentToken{
		Reference:    uuid.New().String(),
		PlanHash:     req.PlanHash,
		PolicyDigest: req.Policy.Digest,
		IssuedAt:     issuedAt,
		ExpiresAt:    issuedAt.Add(validity),
		Steps:        steps,
	}, nil
}

// signingMessage is the exact byte string a step token's tag covers.
func signingMessage(header []byte, id models.IdentityContext, action []byte) []byte {
	ident := canonical.Identity(id)
	msg := make([]byte, 0, len(header)+len(ident)+len(action))
	msg = append(msg, header...)
	msg = append(msg, ident...)
	return append(msg, action...)
}
