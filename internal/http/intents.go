package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vbncursed/vkr/intent-gate/internal/http/dto"
	"github.com/vbncursed/vkr/intent-gate/internal/models"
	"github.com/vbncursed/vkr/intent-gate/internal/service"
)

// IntentIssuer is satisfied by *service.Issuer.
type IntentIssuer interface {
	Issue(ctx context.Context, plan models.IntentPlan, identity models.IdentityContext, ttl time.Duration) (models.IntentToken, error)
	Lookup(ctx context.Context, reference string) (models.IntentRecord, error)
}

// IssueIntent issues step tokens for a plan.
// @Summary     Issue an intent token
// @Tags        intents
// @Accept      json
// @Produce     json
// @Param       request body dto.IssueRequest true "Plan and identity"
// @Success     201 {object} dto.IssueResponse
// @Failure     400 {object} APIError
// @Failure     502 {object} APIError
// @Failure     504 {object} APIError
// @Router      /intents [post]
func IssueIntent(iss IntentIssuer) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req dto.IssueRequest
		if err := c.Bind(&req); err != nil {
			return malformed(c)
		}
		if err := req.Validate(); err != nil {
			return writeError(c, err)
		}
		plan, err := req.ToPlan()
		if err != nil {
			return writeError(c, err)
		}
		ttl, err := req.TTL()
		if err != nil {
			return writeError(c, err)
		}
		tok, err := iss.Issue(c.Request().Context(), plan, req.Identity.ToModel(), ttl)
		if err != nil {
			return writeError(c, err)
		}
		c.Response().Header().Set(echo.HeaderLocation, "/api/v1/intents/"+tok.Reference)
		return writeJSON(c, http.StatusCreated, dto.FromIntentToken(tok))
	}
}

// GetIntent returns the ledger record of an issued intent.
// @Summary     Look up an issued intent
// @Tags        intents
// @Produce     json
// @Param       ref path string true "Intent reference"
// @Success     200 {object} dto.IntentResponse
// @Failure     404 {object} APIError
// @Router      /intents/{ref} [get]
func GetIntent(iss IntentIssuer) echo.HandlerFunc {
	return func(c echo.Context) error {
		rec, err := iss.Lookup(c.Request().Context(), c.Param("ref"))
		if err != nil {
			return writeError(c, err)
		}
		return writeJSON(c, http.StatusOK, dto.FromIntentRecord(rec))
	}
}

// Verify checks a token against an action without consuming it. Every
// outcome is a 200; the outcome field carries the verdict.
// @Summary     Verify a step token
// @Tags        intents
// @Accept      json
// @Produce     json
// @Param       request body dto.VerifyRequest true "Action, identity and token"
// @Success     200 {object} dto.VerifyResponse
// @Failure     400 {object} APIError
// @Router      /verify [post]
func Verify(v service.TokenVerifier) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req dto.VerifyRequest
		if err := c.Bind(&req); err != nil {
			return malformed(c)
		}
		if err := req.Validate(); err != nil {
			return writeError(c, err)
		}
		action, err := req.Action.ToModel()
		if err != nil {
			return writeError(c, fmt.Errorf("%w: %v", service.ErrMalformed, err))
		}
		res := v.Verify(action, req.Identity.ToModel(), req.Token)
		return writeJSON(c, http.StatusOK, dto.FromVerification(res))
	}
}
