// Package deepseek configures an OpenAI-compatible analyzer for the DeepSeek API.
package deepseek

import (
	"github.com/fwojciec/changescope/openai"
)

// DeepSeek API defaults.
const (
	DefaultBaseURL      = "https://api.deepseek.com/v1"
	DefaultModel        = "deepseek-coder"
	DefaultSystemPrompt = "You are a helpful code assistant."
	DefaultMaxTokens    = 1000
)

// NewAnalyzer returns an analyzer for the DeepSeek chat completion API.
// Options are applied after the DeepSeek defaults and may override them.
func NewAnalyzer(apiKey string, opts ...openai.Option) (*openai.Analyzer, error) {
	defaults := []openai.Option{
		openai.WithName("deepseek"),
		openai.WithBaseURL(DefaultBaseURL),
		openai.WithModel(DefaultModel),
		openai.WithSystemPrompt(DefaultSystemPrompt),
		openai.WithMaxTokens(DefaultMaxTokens),
	}
	return openai.NewAnalyzer(apiKey, append(defaults, opts...)...)
}
