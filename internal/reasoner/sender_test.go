package reasoner

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"reasoner-api/internal/config"
	"reasoner-api/internal/shared"
)

// fakeSender plays upstream: one queued body per expected call, in order.
type fakeSender struct {
	mu     sync.Mutex
	calls  []sentCall
	bodies []io.Reader
	errs   []error
}

type sentCall struct {
	req         *shared.ChatCompletionRequest
	contentType string
}

func (f *fakeSender) Send(_ context.Context, _ *config.ModelConfig, _ string, req *shared.ChatCompletionRequest, expectContentType string) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := len(f.calls)
	f.calls = append(f.calls, sentCall{req: req, contentType: expectContentType})
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.bodies) {
		return nil, errors.New("unexpected upstream call")
	}
	return &http.Response{StatusCode: 200, Body: io.NopCloser(f.bodies[i])}, nil
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeSender) call(i int) sentCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

// chunkedReader returns one configured fragment per Read so tests control
// exactly how the stream bytes arrive.
type chunkedReader struct {
	chunks [][]byte
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	if n < len(c.chunks[0]) {
		c.chunks[0] = c.chunks[0][n:]
	} else {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}
