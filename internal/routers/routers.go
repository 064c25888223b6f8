// Package routers
package routers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"reasoner-api/internal/config"
	"reasoner-api/internal/ctx"
	"reasoner-api/internal/shared"
)

// CompletionService is the orchestrator surface the routes consume.
type CompletionService interface {
	CreateCompletion(ctx context.Context, reqID string, req *shared.ChatCompletionRequest, mc *config.ModelConfig) (*shared.ChatCompletion, error)
	StreamCompletion(ctx context.Context, reqID string, req *shared.ChatCompletionRequest, mc *config.ModelConfig, out chan<- []byte) error
}

type ReasonerRouter struct {
	cfg *config.Config
	svc CompletionService
	log *zap.SugaredLogger
}

func RegisterReasonerRoutes(e *echo.Group, cfg *config.Config, svc CompletionService, log *zap.SugaredLogger) {
	rr := &ReasonerRouter{cfg: cfg, svc: svc, log: log}

	v1 := e.Group("/v1")
	v1.GET("/models", rr.GetModels)
	v1.POST("/chat/completions", rr.ChatCompletion)
}

func setupSSEHeaders(c *ctx.Context) {
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)
}

func openAIError(c *ctx.Context, status int, message string) error {
	errType := "InternalError"
	if status < 500 {
		errType = "BadRequest"
	}
	return c.JSON(status, shared.OpenAIError{
		Message: message,
		Object:  "error",
		Type:    errType,
		Code:    status,
	})
}
