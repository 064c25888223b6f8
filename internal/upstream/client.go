// Package upstream sends phase requests to the provider and validates the
// raw response before the reasoner touches it.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"reasoner-api/internal/config"
	"reasoner-api/internal/shared"
)

const (
	completionsPath = "/chat/completions"

	maxErrorBodyBytes = 8 * 1024
)

type Client struct {
	log          *zap.SugaredLogger
	httpClients  map[string]*http.Client
	clientsMutex sync.RWMutex
}

func NewClient(log *zap.SugaredLogger) *Client {
	return &Client{
		log:         log,
		httpClients: make(map[string]*http.Client),
	}
}

func (c *Client) getHTTPClient(apiURL string) *http.Client {
	parsedURL, err := url.Parse(apiURL)
	if err != nil {
		c.log.Warnw("Failed to parse upstream URL, using full URL as key", "url", apiURL, "error", err)
		parsedURL = &url.URL{Host: apiURL}
	}
	host := parsedURL.Host

	c.clientsMutex.RLock()
	if client, exists := c.httpClients[host]; exists {
		c.clientsMutex.RUnlock()
		return client
	}
	c.clientsMutex.RUnlock()

	c.clientsMutex.Lock()
	defer c.clientsMutex.Unlock()

	if client, exists := c.httpClients[host]; exists {
		return client
	}

	tr := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: shared.DefaultConnectTimeout,
		}).DialContext,
		TLSHandshakeTimeout:   shared.DefaultConnectTimeout,
		ResponseHeaderTimeout: shared.DefaultReadTimeout,
		DisableKeepAlives:     false,
	}
	client := &http.Client{Transport: tr, Timeout: shared.DefaultRequestTimeout}

	c.httpClients[host] = client
	c.log.Infow("Created new HTTP client for host", "host", host, "full_url", apiURL)

	return client
}

// Send posts one phase request and hands back the raw response. The status
// and declared content type are checked here so the reasoner only ever sees
// a response matching what it asked for. The caller owns closing the body.
func (c *Client) Send(ctx context.Context, mc *config.ModelConfig, reqID string, req *shared.ChatCompletionRequest, expectContentType string) (*http.Response, error) {
	body, err := encodeBody(req, mc.Extra)
	if err != nil {
		return nil, errors.Join(shared.ErrParse, err)
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, mc.APIURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Join(shared.ErrNetwork, err)
	}
	r.Header.Set("Content-Type", shared.ContentTypeJSON)
	r.Header.Set("Connection", "keep-alive")
	r.Header.Set("X-Request-ID", reqID)
	if mc.APIKey != "" {
		r.Header.Set("Authorization", "Bearer "+mc.APIKey)
	}

	res, err := c.getHTTPClient(mc.APIURL).Do(r)
	if err != nil {
		return nil, errors.Join(shared.ErrNetwork, err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBodyBytes))
		_ = res.Body.Close()
		return nil, errors.Join(shared.ErrAPI,
			fmt.Errorf("upstream status %d: %s", res.StatusCode, string(text)))
	}

	contentType, _, err := mime.ParseMediaType(res.Header.Get("Content-Type"))
	if err != nil || contentType != expectContentType {
		_ = res.Body.Close()
		return nil, errors.Join(shared.ErrAPI,
			fmt.Errorf("upstream content-type %q, expected %q", res.Header.Get("Content-Type"), expectContentType))
	}

	return res, nil
}

// encodeBody marshals the request and folds in provider-specific extras from
// the model config. Extras never override fields the reasoner set.
func encodeBody(req *shared.ChatCompletionRequest, extra map[string]any) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return body, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(body, &merged); err != nil {
		return nil, err
	}
	for key, value := range extra {
		if _, taken := merged[key]; taken {
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		merged[key] = raw
	}
	return json.Marshal(merged)
}
