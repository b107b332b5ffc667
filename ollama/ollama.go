// Package ollama implements changescope.Analyzer using a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/changescope"
	"github.com/ollama/ollama/api"
)

// DefaultModel is the local model used when none is configured.
const DefaultModel = "qwen2.5-coder"

// DefaultTimeout is the default timeout for a single analyze call.
// Local inference is slower than hosted APIs.
const DefaultTimeout = 300 * time.Second

// Compile-time interface verification.
var (
	_ changescope.Analyzer = (*Analyzer)(nil)
	_ ChatClient           = (*api.Client)(nil)
)

// ChatClient abstracts the Ollama API for testing.
type ChatClient interface {
	Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error
}

// Analyzer implements changescope.Analyzer with a non-streaming chat request.
type Analyzer struct {
	client      ChatClient
	model       string
	timeout     time.Duration
	temperature float64
	numCtx      int
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
func WithTemperature(t float64) Option {
	return func(a *Analyzer) {
		a.temperature = t
	}
}

// NewAnalyzer creates a new Analyzer using client.
func NewAnalyzer(client ChatClient, opts ...Option) *Analyzer {
	a := &Analyzer{
		client:      client,
		model:       DefaultModel,
		timeout:     DefaultTimeout,
		temperature: 0.1,
		numCtx:      4096,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewAnalyzerFromEnvironment creates an Analyzer for the server named by OLLAMA_HOST.
func NewAnalyzerFromEnvironment(opts ...Option) (*Analyzer, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("could not create ollama client: %w", err)
	}
	return NewAnalyzer(client, opts...), nil
}

// Analyze sends prompt as a user message and returns the assistant reply.
func (a *Analyzer) Analyze(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	// Size the context window to the prompt, at roughly four bytes per token.
	numCtx := len(prompt)/4 + 1000
	if numCtx < a.numCtx {
		numCtx = a.numCtx
	}

	stream := false
	req := &api.ChatRequest{
		Model:    a.model,
		Messages: []api.Message{{Role: "user", Content: prompt}},
		Stream:   &stream,
		Options: map[string]any{
			"temperature": a.temperature,
			"num_ctx":     numCtx,
		},
	}

	var content strings.Builder
	err := a.client.Chat(ctx, req, func(res api.ChatResponse) error {
		content.WriteString(res.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat failed: %w", err)
	}
	return content.String(), nil
}
