package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/vbncursed/vkr/intent-gate/internal/models"
	"github.com/vbncursed/vkr/intent-gate/internal/service"
)

const (
	DefaultTimeout   = 10 * time.Second
	maxResponseBytes = 1 << 20
)

// Signer obtains step tokens from a remote issuer that shares the HMAC
// secret. Every returned step token is verified locally before it is
// accepted, so a misbehaving issuer cannot hand out tokens the gate would
// later reject.
type Signer struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
	verifier service.TokenVerifier
	schema   *jsonschema.Schema
	log      *slog.Logger
}

type Option func(*Signer)

func WithTimeout(d time.Duration) Option {
	return func(s *Signer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithHTTPClient(c *http.Client) Option { return func(s *Signer) { s.client = c } }
func WithLogger(l *slog.Logger) Option     { return func(s *Signer) { s.log = l } }

func NewSigner(baseURL string, verifier service.TokenVerifier, opts ...Option) (*Signer, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("remote issuer: empty url")
	}
	schema, err := compileResponseSchema()
	if err != nil {
		return nil, err
	}
	s := &Signer{
		endpoint: strings.TrimRight(baseURL, "/") + ProcessPath,
		client:   &http.Client{},
		timeout:  DefaultTimeout,
		verifier: verifier,
		schema:   schema,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("component", "remote_signer")
	return s, nil
}

// Sign posts the plan to the remote issuer. Any failure is reported as
// service.ErrUpstreamFailure with the zero token; there are no retries.
func (s *Signer) Sign(ctx context.Context, req service.IssueRequest) (models.IntentToken, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, err := json.Marshal(EncodeRequest(req))
	if err != nil {
		return models.IntentToken{}, fmt.Errorf("%w: %v", service.ErrInvalidPlan, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.IntentToken{}, upstream(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.client.Do(httpReq)
	if err != nil {
		s.log.WarnContext(ctx, "issuer unreachable", "endpoint", s.endpoint, "elapsed", time.Since(start), "err", err)
		return models.IntentToken{}, upstream(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return models.IntentToken{}, upstream(err)
	}
	if len(raw) > maxResponseBytes {
		return models.IntentToken{}, upstream(fmt.Errorf("response exceeds %d bytes", maxResponseBytes))
	}
	if resp.StatusCode/100 != 2 {
		s.log.WarnContext(ctx, "issuer rejected request", "status", resp.StatusCode)
		return models.IntentToken{}, upstream(fmt.Errorf("issuer returned status %d", resp.StatusCode))
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return models.IntentToken{}, upstream(fmt.Errorf("decode response: %w", err))
	}
	if err := s.schema.Validate(doc); err != nil {
		return models.IntentToken{}, upstream(fmt.Errorf("schema validation failed: %w", err))
	}
	var pr ProcessResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return models.IntentToken{}, upstream(fmt.Errorf("decode response: %w", err))
	}
	return s.accept(req, pr.Token)
}

func (s *Signer) accept(req service.IssueRequest, doc TokenDoc) (models.IntentToken, error) {
	if len(doc.StepTokens) != len(req.Plan.Steps) {
		return models.IntentToken{}, upstream(fmt.Errorf("issuer returned %d step tokens for %d steps", len(doc.StepTokens), len(req.Plan.Steps)))
	}
	if doc.PlanHash != "" && doc.PlanHash != req.PlanHash {
		return models.IntentToken{}, upstream(fmt.Errorf("plan hash mismatch"))
	}

	validity := req.Validity.Truncate(time.Second)

	tok := models.IntentToken{
		Reference:    doc.IntentReference,
		PlanHash:     req.PlanHash,
		PolicyDigest: req.Policy.Digest,
		Steps:        make([]models.StepToken, len(doc.StepTokens)),
	}
	for i, st := range doc.StepTokens {
		step := req.Plan.Steps[i]
		vr := s.verifier.Verify(step.Action, req.Identity, st.Token)
		if !vr.Outcome.Approved() {
			return models.IntentToken{}, upstream(fmt.Errorf("step %d token rejected: %s", i, vr.Reason))
		}
		// The window is fixed by the requester, not the issuer.
		if got := vr.ExpiresAt.Sub(vr.IssuedAt); got != validity {
			return models.IntentToken{}, upstream(fmt.Errorf("step %d validity %s, requested %s", i, got, validity))
		}
		if d := vr.IssuedAt.Sub(req.IssuedAt); d > service.DefaultClockSkew || d < -service.DefaultClockSkew {
			return models.IntentToken{}, upstream(fmt.Errorf("step %d issued_at off by %s", i, d))
		}
		if i == 0 {
			tok.IssuedAt, tok.ExpiresAt = vr.IssuedAt, vr.ExpiresAt
		}
		tok.Steps[i] = models.StepToken{
			Action: models.NormalizeActionName(step.Action.Name),
			Tool:   models.NormalizeActionName(step.Tool),
			Token:  strings.ToLower(st.Token),
		}
	}
	return tok, nil
}

func upstream(err error) error {
	return fmt.Errorf("%w: %w", service.ErrUpstreamFailure, err)
}
