package openailike

import (
	"log/slog"
	"net/http"

	unifiedllm "github.com/s-aravindh/unified-llm"
	"github.com/s-aravindh/unified-llm/internal/transport"
)

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	baseURL    string
	path       string
	apiKey     string
	model      string
	httpClient *http.Client
	headers    http.Header
	logger     *slog.Logger
	retry      *transport.RetryConfig
	aggOpts    []unifiedllm.AggregatorOption
}

// WithBaseURL sets the API base URL, e.g. "https://api.openai.com/v1".
func WithBaseURL(u string) Option {
	return func(o *clientOptions) { o.baseURL = u }
}

// WithPath overrides the chat completions path (default "/chat/completions").
func WithPath(p string) Option {
	return func(o *clientOptions) { o.path = p }
}

// WithAPIKey sets the bearer token sent with each request.
func WithAPIKey(key string) Option {
	return func(o *clientOptions) { o.apiKey = key }
}

// WithModel sets the default model for requests that do not name one.
func WithModel(model string) Option {
	return func(o *clientOptions) { o.model = model }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = hc }
}

// WithHeader adds a default header to every request.
func WithHeader(key, value string) Option {
	return func(o *clientOptions) {
		if o.headers == nil {
			o.headers = make(http.Header)
		}
		o.headers.Add(key, value)
	}
}

// WithLogger sets the logger for transport-level events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = logger }
}

// WithRetry overrides the retry policy for single-shot requests.
func WithRetry(rc transport.RetryConfig) Option {
	return func(o *clientOptions) { o.retry = &rc }
}

// WithAggregatorOptions sets the aggregation options applied to every
// response, e.g. unifiedllm.WithReasoningMode(unifiedllm.ReasoningAuto).
func WithAggregatorOptions(opts ...unifiedllm.AggregatorOption) Option {
	return func(o *clientOptions) { o.aggOpts = opts }
}
