package routers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/labstack/echo/v4"

	"reasoner-api/internal/config"
	"reasoner-api/internal/ctx"
	"reasoner-api/internal/metrics"
	"reasoner-api/internal/shared"
)

func (rr *ReasonerRouter) GetModels(cc echo.Context) error {
	names := rr.cfg.ModelNames()
	models := make([]shared.Model, 0, len(names))
	for _, name := range names {
		models = append(models, shared.Model{
			ID:      name,
			Object:  shared.ObjectModel,
			Created: 0,
			OwnedBy: shared.ModelOwner,
		})
	}
	return cc.JSON(200, shared.ModelList{Object: shared.ObjectList, Data: models})
}

func (rr *ReasonerRouter) ChatCompletion(cc echo.Context) error {
	c := cc.(*ctx.Context)

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		c.LogValues.AddError(errors.Join(errors.New("failed to read request body"), err))
		return openAIError(c, 400, "failed to read request body")
	}

	var req shared.ChatCompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.LogValues.AddError(errors.Join(shared.ErrInvalidRequest, err))
		return openAIError(c, 400, "invalid request body")
	}

	mc, err := rr.cfg.Model(req.Model)
	if err != nil {
		c.LogValues.AddError(err)
		return openAIError(c, shared.HTTPStatus(err), fmt.Sprintf("unknown model %q", req.Model))
	}

	c.LogValues.CompletionInfo = &ctx.CompletionInfo{
		ModelName:   req.Model,
		UpstreamURL: mc.APIURL,
		Stream:      req.Stream,
	}

	mode := "sync"
	if req.Stream {
		mode = "stream"
	}
	start := time.Now()
	defer func() {
		metrics.RequestDuration.WithLabelValues(req.Model, mode).Observe(time.Since(start).Seconds())
	}()

	if req.Stream {
		return rr.streamCompletion(c, &req, mc)
	}
	return rr.createCompletion(c, &req, mc)
}

func (rr *ReasonerRouter) createCompletion(c *ctx.Context, req *shared.ChatCompletionRequest, mc *config.ModelConfig) error {
	completion, err := rr.svc.CreateCompletion(c.Request().Context(), c.Reqid, req, mc)
	if err != nil {
		c.LogValues.AddError(err)
		c.LogValues.LogLevel = "ERROR"
		metrics.RequestCount.WithLabelValues(req.Model, "sync", "error").Inc()
		metrics.ErrorCount.WithLabelValues(req.Model, "sync", "orchestrator").Inc()
		status := shared.HTTPStatus(err)
		return openAIError(c, status, errorMessage(err, status))
	}

	metrics.RequestCount.WithLabelValues(req.Model, "sync", "success").Inc()
	return c.JSON(200, completion)
}

// streamCompletion drains the orchestrator's bounded channel into the
// response. Errors after the first frame cannot change already-sent bytes;
// they end up in the request log only.
func (rr *ReasonerRouter) streamCompletion(c *ctx.Context, req *shared.ChatCompletionRequest, mc *config.ModelConfig) error {
	setupSSEHeaders(c)

	rctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	out := make(chan []byte, shared.ChannelBufferSize)
	errc := make(chan error, 1)
	go func() {
		errc <- rr.svc.StreamCompletion(rctx, c.Reqid, req, mc, out)
	}()

	for frame := range out {
		if _, err := c.Response().Write(frame); err != nil {
			// client write failed; stop the orchestrator, then drain so it
			// never blocks on a channel nobody reads
			cancel()
			for range out {
			}
			break
		}
		c.Response().Flush()
	}

	if err := <-errc; err != nil {
		c.LogValues.AddError(err)
		if !errors.Is(err, shared.ErrClientGone) {
			c.LogValues.LogLevel = "ERROR"
			metrics.ErrorCount.WithLabelValues(req.Model, "stream", "orchestrator").Inc()
		}
		metrics.RequestCount.WithLabelValues(req.Model, "stream", "error").Inc()
		return nil
	}

	metrics.RequestCount.WithLabelValues(req.Model, "stream", "success").Inc()
	return nil
}

// errorMessage keeps upstream detail out of 5xx responses but lets the
// client see exactly why a request was rejected.
func errorMessage(err error, status int) string {
	if status >= 500 {
		if errors.Is(err, shared.ErrAPI) || errors.Is(err, shared.ErrNetwork) || errors.Is(err, shared.ErrParse) {
			return "upstream error"
		}
		return "internal server error"
	}
	var rerr *shared.RequestError
	if errors.As(err, &rerr) {
		return rerr.Err.Error()
	}
	return err.Error()
}
