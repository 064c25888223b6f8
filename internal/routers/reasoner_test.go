package routers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"reasoner-api/internal/config"
	"reasoner-api/internal/ctx"
	"reasoner-api/internal/shared"
)

// stubService cans the orchestrator so the route logic is tested alone.
type stubService struct {
	completion *shared.ChatCompletion
	err        error
	frames     [][]byte
	streamErr  error

	gotReq *shared.ChatCompletionRequest
	gotMC  *config.ModelConfig
}

func (s *stubService) CreateCompletion(_ context.Context, _ string, req *shared.ChatCompletionRequest, mc *config.ModelConfig) (*shared.ChatCompletion, error) {
	s.gotReq = req
	s.gotMC = mc
	return s.completion, s.err
}

func (s *stubService) StreamCompletion(_ context.Context, _ string, req *shared.ChatCompletionRequest, mc *config.ModelConfig, out chan<- []byte) error {
	defer close(out)
	s.gotReq = req
	s.gotMC = mc
	for _, frame := range s.frames {
		out <- frame
	}
	return s.streamErr
}

func testConfig() *config.Config {
	return &config.Config{Models: map[string]config.ModelConfig{
		"served-model": {
			ModelName:       "upstream-model",
			APIURL:          "http://upstream.test/v1",
			ReasoningBudget: 4096,
			ReasoningFormat: config.FormatInline,
		},
	}}
}

func newRouter(svc CompletionService) *ReasonerRouter {
	return &ReasonerRouter{cfg: testConfig(), svc: svc, log: zap.NewNop().Sugar()}
}

func newContext(method, target, body string) (*ctx.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return &ctx.Context{
		Context:   e.NewContext(req, rec),
		Log:       zap.NewNop().Sugar(),
		Reqid:     "req_test",
		LogValues: &ctx.ContextLogValues{RequestID: "req_test"},
	}, rec
}

func TestGetModels(t *testing.T) {
	rr := newRouter(&stubService{})
	c, rec := newContext(http.MethodGet, "/v1/models", "")

	require.NoError(t, rr.GetModels(c))
	assert.Equal(t, 200, rec.Code)

	var list shared.ModelList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, shared.ObjectList, list.Object)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "served-model", list.Data[0].ID)
	assert.Equal(t, shared.ModelOwner, list.Data[0].OwnedBy)
}

func TestChatCompletionSync(t *testing.T) {
	svc := &stubService{completion: &shared.ChatCompletion{
		ID:     "cmpl-1",
		Object: shared.ObjectChatCompletion,
		Model:  "served-model",
	}}
	rr := newRouter(svc)
	c, rec := newContext(http.MethodPost, "/v1/chat/completions",
		`{"model":"served-model","messages":[{"role":"user","content":"hi"}]}`)

	require.NoError(t, rr.ChatCompletion(c))
	assert.Equal(t, 200, rec.Code)

	var res shared.ChatCompletion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "cmpl-1", res.ID)
	require.NotNil(t, svc.gotMC)
	assert.Equal(t, "upstream-model", svc.gotMC.ModelName)
}

func TestChatCompletionInvalidJSON(t *testing.T) {
	rr := newRouter(&stubService{})
	c, rec := newContext(http.MethodPost, "/v1/chat/completions", "{not json")

	require.NoError(t, rr.ChatCompletion(c))
	assert.Equal(t, 400, rec.Code)

	var oaiErr shared.OpenAIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &oaiErr))
	assert.Equal(t, "BadRequest", oaiErr.Type)
}

func TestChatCompletionUnknownModel(t *testing.T) {
	rr := newRouter(&stubService{})
	c, rec := newContext(http.MethodPost, "/v1/chat/completions",
		`{"model":"ghost","messages":[{"role":"user","content":"hi"}]}`)

	require.NoError(t, rr.ChatCompletion(c))
	assert.Equal(t, 400, rec.Code)
	assert.Contains(t, rec.Body.String(), `unknown model \"ghost\"`)
}

func TestChatCompletionUpstreamFailure(t *testing.T) {
	svc := &stubService{err: shared.ErrAPI}
	rr := newRouter(svc)
	c, rec := newContext(http.MethodPost, "/v1/chat/completions",
		`{"model":"served-model","messages":[{"role":"user","content":"hi"}]}`)

	require.NoError(t, rr.ChatCompletion(c))
	assert.Equal(t, 502, rec.Code)

	var oaiErr shared.OpenAIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &oaiErr))
	// upstream detail never leaks into a 5xx body
	assert.Equal(t, "upstream error", oaiErr.Message)
	assert.Equal(t, "InternalError", oaiErr.Type)
	assert.Equal(t, "ERROR", c.LogValues.LogLevel)
}

func TestChatCompletionValidationError(t *testing.T) {
	svc := &stubService{err: shared.ErrValidation}
	rr := newRouter(svc)
	c, rec := newContext(http.MethodPost, "/v1/chat/completions",
		`{"model":"served-model","messages":[]}`)

	require.NoError(t, rr.ChatCompletion(c))
	assert.Equal(t, 400, rec.Code)
}

func TestChatCompletionStream(t *testing.T) {
	svc := &stubService{frames: [][]byte{
		[]byte("data: {\"id\":\"cmpl-1\"}\n\n"),
		[]byte("data: [DONE]\n\n"),
	}}
	rr := newRouter(svc)
	c, rec := newContext(http.MethodPost, "/v1/chat/completions",
		`{"model":"served-model","messages":[{"role":"user","content":"hi"}],"stream":true}`)

	require.NoError(t, rr.ChatCompletion(c))
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "data: {\"id\":\"cmpl-1\"}\n\ndata: [DONE]\n\n", rec.Body.String())
	require.NotNil(t, svc.gotReq)
	assert.True(t, svc.gotReq.Stream)
}

func TestChatCompletionStreamErrorAfterHeaders(t *testing.T) {
	svc := &stubService{
		frames:    [][]byte{[]byte("data: [DONE]\n\n")},
		streamErr: shared.ErrParse,
	}
	rr := newRouter(svc)
	c, rec := newContext(http.MethodPost, "/v1/chat/completions",
		`{"model":"served-model","messages":[{"role":"user","content":"hi"}],"stream":true}`)

	// mid-stream failures are logged, never turned into a late status change
	require.NoError(t, rr.ChatCompletion(c))
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "ERROR", c.LogValues.LogLevel)
	assert.ErrorIs(t, c.LogValues.Error, shared.ErrParse)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "upstream error", errorMessage(shared.ErrAPI, 502))
	assert.Equal(t, "internal server error", errorMessage(assertableErr{}, 500))
	assert.Equal(t, "validation error: empty messages",
		errorMessage(fmt.Errorf("%w: empty messages", shared.ErrValidation), 400))
}

type assertableErr struct{}

func (assertableErr) Error() string { return "secret internals" }
