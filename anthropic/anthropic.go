// Package anthropic implements changescope.Analyzer using the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/buger/jsonparser"
	"github.com/fwojciec/changescope"
)

// Messages API defaults.
const (
	DefaultModel      = "claude-3-sonnet-20240229"
	DefaultMaxTokens  = 4096
	DefaultTimeout    = 120 * time.Second
	DefaultMaxRetries = 2
	APIVersion        = "2023-06-01"
)

// Compile-time interface verification.
var _ changescope.Analyzer = (*Analyzer)(nil)

// Analyzer implements changescope.Analyzer with a single-message request.
type Analyzer struct {
	client    sdk.Client
	model     string
	maxTokens int64
	timeout   time.Duration

	baseURL    string
	httpClient *http.Client
	maxRetries int
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithTimeout sets the timeout for API calls. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(a *Analyzer) {
		if model != "" {
			a.model = model
		}
	}
}

// WithMaxTokens overrides the default completion limit.
func WithMaxTokens(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxTokens = int64(n)
		}
	}
}

// WithBaseURL points the client at a different API host.
func WithBaseURL(url string) Option {
	return func(a *Analyzer) {
		a.baseURL = url
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Analyzer) {
		a.httpClient = c
	}
}

// WithMaxRetries sets how often rate-limited and overloaded requests are retried.
func WithMaxRetries(n int) Option {
	return func(a *Analyzer) {
		if n >= 0 {
			a.maxRetries = n
		}
	}
}

// NewAnalyzer creates a new Analyzer. An empty apiKey yields
// changescope.ErrMissingAPIKey.
func NewAnalyzer(apiKey string, opts ...Option) (*Analyzer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: %w", changescope.ErrMissingAPIKey)
	}
	a := &Analyzer{
		model:      DefaultModel,
		maxTokens:  DefaultMaxTokens,
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(a)
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHeader("anthropic-version", APIVersion),
		option.WithMaxRetries(a.maxRetries),
	}
	if a.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(a.baseURL))
	}
	if a.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(a.httpClient))
	}
	a.client = sdk.NewClient(clientOpts...)
	return a, nil
}

// Model returns the model requests are sent to.
func (a *Analyzer) Model() string {
	return a.model
}

// Analyze sends prompt as a user message and returns the first text block of the reply.
func (a *Analyzer) Analyze(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	msg, err := a.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("anthropic: %w", ctxErr)
		}
		return "", wrapError(err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("anthropic: response %s has no text content", msg.ID)
}

// wrapError converts SDK errors to APIError so callers can inspect the
// status code without importing the SDK.
func wrapError(err error) error {
	var sdkErr *sdk.Error
	if !errors.As(err, &sdkErr) {
		return fmt.Errorf("anthropic: %w", err)
	}
	apiErr := &APIError{StatusCode: sdkErr.StatusCode, Message: http.StatusText(sdkErr.StatusCode)}
	raw := []byte(sdkErr.RawJSON())
	if typ, err := jsonparser.GetString(raw, "error", "type"); err == nil {
		apiErr.Type = typ
	}
	if message, err := jsonparser.GetString(raw, "error", "message"); err == nil && message != "" {
		apiErr.Message = message
	}
	return apiErr
}

// APIError represents an error response from the Anthropic API.
type APIError struct {
	StatusCode int
	Type       string // e.g. "authentication_error", "overloaded_error"
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("anthropic API error (HTTP %d, %s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("anthropic API error (HTTP %d): %s", e.StatusCode, e.Message)
}
