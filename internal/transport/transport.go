// Package transport is a small HTTP client used by provider adapters. It
// handles JSON request bodies, default headers, request IDs, retry with
// exponential backoff for single-shot calls, and unbuffered response bodies
// for streaming calls.
package transport

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig controls DoJSON retries. Streaming requests are never retried.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 250 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
	}
}

type Client struct {
	HTTPClient *http.Client
	BaseURL    *url.URL

	DefaultHeaders http.Header
	UserAgent      string
	Logger         *slog.Logger
	Retry          RetryConfig
}

func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		HTTPClient:     httpClient,
		BaseURL:        u,
		DefaultHeaders: make(http.Header),
		UserAgent:      "unified-llm/1",
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Retry:          DefaultRetry(),
	}, nil
}

func (c *Client) Clone() *Client {
	out := *c
	out.DefaultHeaders = c.DefaultHeaders.Clone()
	return &out
}

func (c *Client) Resolve(path string) string {
	// url.JoinPath would clean too aggressively for some base URLs with paths.
	u := *c.BaseURL
	u.Path = joinPath(u.Path, path)
	return u.String()
}

func joinPath(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if a[len(a)-1] == '/' {
		if b[0] == '/' {
			return a + b[1:]
		}
		return a + b
	}
	if b[0] == '/' {
		return a + b
	}
	return a + "/" + b
}

type jsonResult struct {
	resp *http.Response
	raw  []byte
}

// DoJSON posts a JSON body and reads the whole response. Retryable failures
// (network errors, 408/429/5xx) are retried per the client's RetryConfig.
func (c *Client) DoJSON(ctx context.Context, method, path string, hdr http.Header, reqBody any) (*http.Response, []byte, error) {
	var bodyBytes []byte
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return nil, nil, err
		}
		bodyBytes = b
	}

	attempts := c.Retry.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	bo := backoff.NewExponentialBackOff()
	if c.Retry.InitialBackoff > 0 {
		bo.InitialInterval = c.Retry.InitialBackoff
	}
	if c.Retry.MaxBackoff > 0 {
		bo.MaxInterval = c.Retry.MaxBackoff
	}

	attempt := 0
	res, err := backoff.Retry(ctx, func() (jsonResult, error) {
		attempt++
		resp, raw, err := c.doOnce(ctx, method, path, hdr, bodyBytes)
		if err == nil {
			return jsonResult{resp: resp, raw: raw}, nil
		}
		if !shouldRetry(err) {
			return jsonResult{raw: raw}, backoff.Permanent(err)
		}
		c.Logger.DebugContext(ctx, "llm http retry", "attempt", attempt, "err", err)
		return jsonResult{raw: raw}, err
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(uint(attempts)))
	if err != nil {
		return nil, res.raw, err
	}
	return res.resp, res.raw, nil
}

// DoStream posts a JSON body and returns the response with its body open for
// the caller to consume. No retries: a stream that already emitted events
// cannot be safely replayed.
func (c *Client) DoStream(ctx context.Context, method, path string, hdr http.Header, body any) (*http.Response, error) {
	var bodyBytes []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyBytes = b
	}
	return c.doStreamOnce(ctx, method, path, hdr, bodyBytes)
}

func (c *Client) doOnce(ctx context.Context, method, path string, hdr http.Header, bodyBytes []byte) (*http.Response, []byte, error) {
	req, err := c.newRequest(ctx, method, path, hdr, bodyBytes)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, raw, nil
	}
	return nil, raw, &HTTPStatusError{StatusCode: resp.StatusCode, Body: raw, Header: resp.Header.Clone()}
}

func (c *Client) doStreamOnce(ctx context.Context, method, path string, hdr http.Header, bodyBytes []byte) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, hdr, bodyBytes)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Body: raw, Header: resp.Header.Clone()}
}

func (c *Client) newRequest(ctx context.Context, method, path string, hdr http.Header, bodyBytes []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.Resolve(path), bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	mergeHeaders(req.Header, c.DefaultHeaders)
	mergeHeaders(req.Header, hdr)
	if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if req.Header.Get("X-Request-Id") == "" {
		req.Header.Set("X-Request-Id", randomID())
	}
	if method == http.MethodPost && req.Header.Get("Idempotency-Key") == "" {
		req.Header.Set("Idempotency-Key", req.Header.Get("X-Request-Id"))
	}
	return req, nil
}

type HTTPStatusError struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

func (e *HTTPStatusError) Error() string {
	return http.StatusText(e.StatusCode)
}

func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *HTTPStatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusTooManyRequests, http.StatusRequestTimeout:
			return true
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	}
	// network / io errors are generally retryable
	return true
}

func mergeHeaders(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

func randomID() string {
	var b [16]byte
	_, err := rand.Read(b[:])
	if err != nil {
		return ""
	}
	return hex.EncodeToString(b[:])
}
