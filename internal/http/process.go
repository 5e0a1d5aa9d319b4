package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vbncursed/vkr/intent-gate/internal/remote"
)

// Process serves the issuer wire protocol used by remote signers.
// @Summary     Issue step tokens (issuer protocol)
// @Tags        issuer
// @Accept      json
// @Produce     json
// @Param       request body remote.ProcessRequest true "Plan, policy and identity"
// @Success     200 {object} remote.ProcessResponse
// @Failure     400 {object} APIError
// @Failure     409 {object} APIError
// @Router      /iap/process [post]
func Process(iss IntentIssuer, policyDigest string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req remote.ProcessRequest
		if err := c.Bind(&req); err != nil {
			return malformed(c)
		}
		if d := req.Policy.Global.Metadata.Digest; d != "" && d != policyDigest {
			return writeJSON(c, http.StatusConflict, APIError{Code: "policy_mismatch", Message: "policy digest differs from issuer policy"})
		}
		plan, identity, ttl, err := req.Decode()
		if err != nil {
			return writeError(c, err)
		}
		tok, err := iss.Issue(c.Request().Context(), plan, identity, ttl)
		if err != nil {
			return writeError(c, err)
		}
		return writeJSON(c, http.StatusOK, remote.EncodeToken(tok))
	}
}
