package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/vbncursed/vkr/intent-gate/internal/http/dto"
	"github.com/vbncursed/vkr/intent-gate/internal/models"
	"github.com/vbncursed/vkr/intent-gate/internal/observability"
	"github.com/vbncursed/vkr/intent-gate/internal/service"
)

// AuditLog returns the most recent gate decisions, newest first.
// @Summary     Recent gate decisions
// @Tags        audit
// @Produce     json
// @Param       limit query int false "Max records (default 50)"
// @Success     200 {object} dto.AuditResponse
// @Failure     400 {object} APIError
// @Router      /audit [get]
func AuditLog(r service.AuditReader) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := 0
		if s := c.QueryParam("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				return writeJSON(c, http.StatusBadRequest, APIError{Code: "invalid_request", Message: "limit must be a non-negative integer"})
			}
			limit = n
		}
		recs, err := r.Recent(c.Request().Context(), limit)
		if err != nil {
			return writeError(c, err)
		}
		if recs == nil {
			recs = []models.AuditRecord{}
		}
		return writeJSON(c, http.StatusOK, dto.AuditResponse{Records: recs})
	}
}

// MetricsSnapshotter is satisfied by *observability.Provider.
type MetricsSnapshotter interface {
	Snapshot(ctx context.Context) ([]observability.Point, error)
}

type MetricsResponse struct {
	Points []observability.Point `json:"points"`
}

// Metrics returns the current counter values.
// @Summary     Gate counters
// @Tags        meta
// @Produce     json
// @Success     200 {object} MetricsResponse
// @Router      /metrics [get]
func Metrics(m MetricsSnapshotter) echo.HandlerFunc {
	return func(c echo.Context) error {
		pts, err := m.Snapshot(c.Request().Context())
		if err != nil {
			return writeError(c, err)
		}
		if pts == nil {
			pts = []observability.Point{}
		}
		return writeJSON(c, http.StatusOK, MetricsResponse{Points: pts})
	}
}
