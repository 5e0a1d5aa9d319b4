package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	"github.com/vbncursed/vkr/intent-gate/internal/config"
	"github.com/vbncursed/vkr/intent-gate/internal/service"
)

// Deps are the wired services behind the API.
type Deps struct {
	Issuer       IntentIssuer
	Verifier     service.TokenVerifier
	Tools        ToolInvoker
	Audit        service.AuditReader
	Metrics      MetricsSnapshotter
	PolicyDigest string
	// Ready maps a dependency name to its readiness check.
	Ready map[string]Pinger
	Log   *slog.Logger
}

func Router(deps Deps, cfg config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(requestLogger(deps.Log))
	e.Binder = StrictJSONBinder{}
	e.HTTPErrorHandler = DefaultHTTPErrorHandler

	// Swagger UI (ENABLE_SWAGGER=1)
	if cfg.EnableSwagger {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	v1 := e.Group("/api/v1")
	v1.GET("/healthz", Healthz)
	v1.GET("/readyz", Readyz(deps.Ready))

	issueLimit := issueRateLimiter(cfg)
	v1.POST("/intents", IssueIntent(deps.Issuer), issueLimit)
	v1.GET("/intents/:ref", GetIntent(deps.Issuer))
	v1.POST("/verify", Verify(deps.Verifier))
	v1.GET("/tools", ListTools(deps.Tools))
	v1.POST("/tools/:name", InvokeTool(deps.Tools))
	if deps.Audit != nil {
		v1.GET("/audit", AuditLog(deps.Audit))
	}
	if deps.Metrics != nil {
		v1.GET("/metrics", Metrics(deps.Metrics))
	}

	// Issuer wire protocol for remote signers.
	e.POST("/iap/process", Process(deps.Issuer, deps.PolicyDigest), issueLimit)

	return e
}

func issueRateLimiter(cfg config.Config) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.IssueRate),
		Burst:     cfg.IssueBurst,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return writeJSON(c, http.StatusTooManyRequests, APIError{Code: "rate_limited", Message: "too many issuance requests"})
		},
	})
}

func requestLogger(log *slog.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "http")
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"path", v.URIPath,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				log.WarnContext(c.Request().Context(), "request", append(attrs, "err", v.Error)...)
				return nil
			}
			log.InfoContext(c.Request().Context(), "request", attrs...)
			return nil
		},
	})
}
