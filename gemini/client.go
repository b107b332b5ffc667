package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// ErrBlocked is returned when Gemini refuses the prompt itself.
var ErrBlocked = errors.New("prompt blocked")

// Compile-time check that Client implements GenerativeClient.
var _ GenerativeClient = (*Client)(nil)

// Client adapts genai.Client to GenerativeClient.
type Client struct {
	client *genai.Client
}

// NewClient creates a Client for the Gemini API backend.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Client{client: client}, nil
}

// GenerateContent sends contents as user turns and flattens the first
// candidate into a GenerateContentResponse.
func (c *Client) GenerateContent(ctx context.Context, model string, contents []*Content, config *GenerateContentConfig) (*GenerateContentResponse, error) {
	turns := make([]*genai.Content, len(contents))
	for i, content := range contents {
		turns[i] = toGenaiContent(content, genai.RoleUser)
	}

	result, err := c.client.Models.GenerateContent(ctx, model, turns, toGenaiConfig(config))
	if err != nil {
		return nil, wrapAPIError(err)
	}
	if fb := result.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return nil, fmt.Errorf("%w: %s %s", ErrBlocked, fb.BlockReason, fb.BlockReasonMessage)
	}

	resp := &GenerateContentResponse{Text: result.Text()}
	if len(result.Candidates) > 0 {
		resp.FinishReason = string(result.Candidates[0].FinishReason)
	}
	if u := result.UsageMetadata; u != nil {
		resp.TotalTokens = u.TotalTokenCount
	}
	return resp, nil
}

func toGenaiConfig(config *GenerateContentConfig) *genai.GenerateContentConfig {
	if config == nil {
		return nil
	}
	out := &genai.GenerateContentConfig{
		ResponseMIMEType: config.ResponseMIMEType,
		Temperature:      config.Temperature,
	}
	if config.MaxOutputTokens > 0 {
		out.MaxOutputTokens = config.MaxOutputTokens
	}
	if config.SystemInstruction != nil {
		out.SystemInstruction = toGenaiContent(config.SystemInstruction, "")
	}
	return out
}

func toGenaiContent(content *Content, role string) *genai.Content {
	parts := make([]*genai.Part, len(content.Parts))
	for i, part := range content.Parts {
		parts[i] = &genai.Part{Text: part.Text}
	}
	return &genai.Content{Role: role, Parts: parts}
}

// wrapAPIError converts genai.APIError to APIError so callers can inspect
// the status code without importing genai.
func wrapAPIError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var ptr *genai.APIError
		if !errors.As(err, &ptr) {
			return err
		}
		apiErr = *ptr
	}
	return &APIError{
		StatusCode: apiErr.Code,
		Message:    fmt.Sprintf("gemini API error (HTTP %d): %s", apiErr.Code, apiErr.Message),
	}
}
