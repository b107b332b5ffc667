// Package gemini implements changescope.Analyzer using Google Gemini.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/changescope"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// DefaultTimeout is the default timeout for a single analyze call.
const DefaultTimeout = 120 * time.Second

// finishStop is the finish reason of a normally completed candidate.
const finishStop = "STOP"

// Compile-time interface verification.
var _ changescope.Analyzer = (*Analyzer)(nil)

// Analyzer implements changescope.Analyzer using Google Gemini.
type Analyzer struct {
	client      GenerativeClient
	model       string
	timeout     time.Duration
	temperature *float32
	system      string
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

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(a *Analyzer) {
		a.temperature = &t
	}
}

// WithSystemInstruction sets a system instruction sent with every prompt.
func WithSystemInstruction(s string) Option {
	return func(a *Analyzer) {
		a.system = s
	}
}

// NewAnalyzer creates a new Analyzer.
func NewAnalyzer(client GenerativeClient, opts ...Option) *Analyzer {
	a := &Analyzer{
		client:  client,
		model:   DefaultModel,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze sends prompt as a single user message and returns the reply text.
func (a *Analyzer) Analyze(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	contents := []*Content{{
		Parts: []*Part{{Text: prompt}},
	}}

	config := &GenerateContentConfig{Temperature: a.temperature}
	if a.system != "" {
		config.SystemInstruction = &Content{Parts: []*Part{{Text: a.system}}}
	}

	resp, err := a.client.GenerateContent(ctx, a.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	if resp == nil {
		return "", errors.New("gemini: returned nil response")
	}
	if resp.Text == "" && resp.FinishReason != "" && resp.FinishReason != finishStop {
		return "", fmt.Errorf("gemini: empty response (finish reason %s)", resp.FinishReason)
	}
	return resp.Text, nil
}

// GenerativeClient abstracts the Gemini API for testing.
type GenerativeClient interface {
	GenerateContent(ctx context.Context, model string, contents []*Content, config *GenerateContentConfig) (*GenerateContentResponse, error)
}

// Content represents a message in a Gemini conversation.
type Content struct {
	Parts []*Part
}

// Part represents a part of a message.
type Part struct {
	Text string
}

// GenerateContentConfig holds configuration for content generation.
type GenerateContentConfig struct {
	SystemInstruction *Content
	Temperature       *float32
	MaxOutputTokens   int32
	ResponseMIMEType  string
}

// GenerateContentResponse holds the response from content generation.
type GenerateContentResponse struct {
	Text         string
	FinishReason string // Finish reason of the first candidate, e.g. "STOP" or "MAX_TOKENS"
	TotalTokens  int32
}

// MockGenerativeClient is a mock implementation of GenerativeClient for testing.
type MockGenerativeClient struct {
	GenerateContentFn func(ctx context.Context, model string, contents []*Content, config *GenerateContentConfig) (*GenerateContentResponse, error)
}

func (m *MockGenerativeClient) GenerateContent(ctx context.Context, model string, contents []*Content, config *GenerateContentConfig) (*GenerateContentResponse, error) {
	return m.GenerateContentFn(ctx, model, contents, config)
}

// APIError represents an error from the Gemini API with HTTP status code.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}
