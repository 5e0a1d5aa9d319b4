package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vbncursed/vkr/intent-gate/internal/http/dto"
	"github.com/vbncursed/vkr/intent-gate/internal/models"
	"github.com/vbncursed/vkr/intent-gate/internal/tools"
)

// ToolInvoker is satisfied by *tools.Registry.
type ToolInvoker interface {
	Invoke(ctx context.Context, name string, identity models.IdentityContext, args map[string]any, token string) (tools.Result, error)
	Names() []string
}

type ToolsResponse struct {
	Tools []string `json:"tools"`
}

// ListTools lists the guarded tools.
// @Summary     List guarded tools
// @Tags        tools
// @Produce     json
// @Success     200 {object} ToolsResponse
// @Router      /tools [get]
func ListTools(reg ToolInvoker) echo.HandlerFunc {
	return func(c echo.Context) error {
		return writeJSON(c, http.StatusOK, ToolsResponse{Tools: reg.Names()})
	}
}

// InvokeTool runs a guarded tool. Gate rejections are reported in the body
// with a 200, like the tool's own result string.
// @Summary     Invoke a guarded tool
// @Tags        tools
// @Accept      json
// @Produce     json
// @Param       name path string true "Tool name"
// @Param       request body dto.ToolRequest true "Arguments and armor token"
// @Success     200 {object} dto.ToolResponse
// @Failure     400 {object} APIError
// @Failure     404 {object} APIError
// @Router      /tools/{name} [post]
func InvokeTool(reg ToolInvoker) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req dto.ToolRequest
		if err := c.Bind(&req); err != nil {
			return malformed(c)
		}
		if err := req.Validate(); err != nil {
			return writeError(c, err)
		}
		res, err := reg.Invoke(c.Request().Context(), c.Param("name"), req.Identity.ToModel(), req.Params, req.ArmorToken)
		if err != nil {
			return writeError(c, err)
		}
		return writeJSON(c, http.StatusOK, dto.FromToolResult(res))
	}
}
