package service

import (
	"context"
	"time"

	"github.com/vbncursed/vkr/intent-gate/internal/models"
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// Signer mints step tokens for a plan, locally or through a remote issuer.
type Signer interface {
	Sign(ctx context.Context, req IssueRequest) (models.IntentToken, error)
}

// PolicyInfo describes the active limits for the issuance payload.
type PolicyInfo interface {
	Digest() string
	RuleSetVersion() string
}

// IntentRepository is the intent ledger.
type IntentRepository interface {
	InsertIntent(ctx context.Context, rec models.IntentRecord) error
	GetIntent(ctx context.Context, reference string) (models.IntentRecord, error)
}

// ReplayStore records consumed tokens. Consume reports true only for the
// first use of key; entries may be dropped after until.
type ReplayStore interface {
	Consume(ctx context.Context, key string, until time.Time) (bool, error)
}

// AuditSink receives one record per gate terminal state.
type AuditSink interface {
	Record(ctx context.Context, rec models.AuditRecord) error
}

// AuditReader lists the most recent audit records, newest first.
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]models.AuditRecord, error)
}

// Metrics counts gate outcomes.
type Metrics interface {
	RecordOutcome(ctx context.Context, action string, outcome models.Outcome)
}

// PolicyMeta travels with an issuance request.
type PolicyMeta struct {
	RuleSetVersion string
	Digest         string
}

// IssueRequest is what a Signer signs.
type IssueRequest struct {
	Plan     models.IntentPlan
	Identity models.IdentityContext
	Validity time.Duration
	IssuedAt time.Time
	PlanHash string
	Policy   PolicyMeta
}
