// Package openai implements changescope.Analyzer for OpenAI-compatible chat
// completion APIs.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fwojciec/changescope"
	goopenai "github.com/sashabaranov/go-openai"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = goopenai.GPT4

// DefaultTimeout is the default timeout for a single analyze call.
const DefaultTimeout = 120 * time.Second

// Compile-time interface verification.
var _ changescope.Analyzer = (*Analyzer)(nil)

// Analyzer implements changescope.Analyzer with a chat completion request
// holding an optional system message and the prompt as the user message.
type Analyzer struct {
	apiKey     string
	baseURL    string
	model      string
	system     string
	maxTokens  int
	timeout    time.Duration
	httpClient *http.Client
	name       string

	client *goopenai.Client
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

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(a *Analyzer) {
		a.baseURL = url
	}
}

// WithSystemPrompt adds a system message before the prompt.
func WithSystemPrompt(s string) Option {
	return func(a *Analyzer) {
		a.system = s
	}
}

// WithMaxTokens caps the completion length. Zero leaves it to the API.
func WithMaxTokens(n int) Option {
	return func(a *Analyzer) {
		a.maxTokens = n
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Analyzer) {
		a.httpClient = c
	}
}

// WithName sets the provider name used in error messages.
func WithName(name string) Option {
	return func(a *Analyzer) {
		a.name = name
	}
}

// NewAnalyzer creates a new Analyzer. An empty apiKey yields
// changescope.ErrMissingAPIKey.
func NewAnalyzer(apiKey string, opts ...Option) (*Analyzer, error) {
	a := &Analyzer{
		apiKey:  apiKey,
		model:   DefaultModel,
		timeout: DefaultTimeout,
		name:    "openai",
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.apiKey == "" {
		return nil, fmt.Errorf("%s: %w", a.name, changescope.ErrMissingAPIKey)
	}

	cfg := goopenai.DefaultConfig(a.apiKey)
	if a.baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(a.baseURL, "/")
	}
	if a.httpClient != nil {
		cfg.HTTPClient = a.httpClient
	}
	a.client = goopenai.NewClientWithConfig(cfg)
	return a, nil
}

// Model returns the configured model.
func (a *Analyzer) Model() string {
	return a.model
}

// Analyze sends prompt and returns the content of the first choice.
func (a *Analyzer) Analyze(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var messages []goopenai.ChatCompletionMessage
	if a.system != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: a.system,
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := a.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:     a.model,
		Messages:  messages,
		MaxTokens: a.maxTokens,
	})
	if err != nil {
		return "", a.wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: response has no choices", a.name)
	}
	return resp.Choices[0].Message.Content, nil
}

func (a *Analyzer) wrapError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			Provider:   a.name,
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			err:        err,
		}
	}
	return fmt.Errorf("%s: %w", a.name, err)
}

// APIError represents an error response from the API.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string

	err error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (HTTP %d): %s", e.Provider, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.err
}
