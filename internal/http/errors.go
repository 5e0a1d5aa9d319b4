package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vbncursed/vkr/intent-gate/internal/http/dto"
	"github.com/vbncursed/vkr/intent-gate/internal/service"
	"github.com/vbncursed/vkr/intent-gate/internal/tools"
)

// MapError translates domain and DTO errors into an HTTP status and body.
// Details never carry token material.
func MapError(err error) (int, APIError) {
	switch {
	// DTO validation
	case errors.Is(err, dto.ErrIdentityRequired),
		errors.Is(err, dto.ErrStepsRequired),
		errors.Is(err, dto.ErrActionRequired),
		errors.Is(err, dto.ErrTokenRequired),
		errors.Is(err, dto.ErrNegativeTTL):
		return http.StatusBadRequest, APIError{Code: "invalid_request", Message: err.Error()}

	// Service errors
	case errors.Is(err, service.ErrInvalidPlan):
		return http.StatusBadRequest, APIError{Code: "invalid_plan", Message: err.Error()}
	case errors.Is(err, service.ErrTTLExceeded):
		return http.StatusBadRequest, APIError{Code: "ttl_exceeded", Message: "requested validity exceeds max ttl"}
	case errors.Is(err, service.ErrMalformed):
		return http.StatusBadRequest, APIError{Code: "malformed", Message: "malformed request"}
	case errors.Is(err, service.ErrInvalidSignature):
		return http.StatusUnauthorized, APIError{Code: "invalid_token", Message: "token does not authorize this action"}
	case errors.Is(err, service.ErrExpired):
		return http.StatusUnauthorized, APIError{Code: "expired", Message: "token expired"}
	case errors.Is(err, service.ErrPolicyViolation):
		return http.StatusForbidden, APIError{Code: "policy_violation", Message: "blocked by policy"}
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, APIError{Code: "not_found", Message: "intent not found"}
	case errors.Is(err, tools.ErrUnknownTool):
		return http.StatusNotFound, APIError{Code: "unknown_tool", Message: err.Error()}
	case errors.Is(err, service.ErrReplayed):
		return http.StatusConflict, APIError{Code: "replayed", Message: "token already used"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, APIError{Code: "timeout", Message: "upstream timed out"}
	case errors.Is(err, service.ErrUpstreamFailure):
		return http.StatusBadGateway, APIError{Code: "upstream_failure", Message: "issuer unavailable"}
	}
	return http.StatusInternalServerError, APIError{Code: "internal", Message: "internal error"}
}

func writeError(c echo.Context, err error) error {
	status, body := MapError(err)
	return writeJSON(c, status, body)
}
