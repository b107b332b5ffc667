package gemini_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fwojciec/changescope/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzer_Analyze_ReturnsResponseText(t *testing.T) {
	t.Parallel()

	var (
		gotModel    string
		gotContents []*gemini.Content
		gotConfig   *gemini.GenerateContentConfig
	)
	mockClient := &gemini.MockGenerativeClient{
		GenerateContentFn: func(_ context.Context, model string, contents []*gemini.Content, config *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error) {
			gotModel = model
			gotContents = contents
			gotConfig = config
			return &gemini.GenerateContentResponse{Text: `{"impact_analysis": ["none"]}`}, nil
		},
	}

	a := gemini.NewAnalyzer(mockClient,
		gemini.WithModel("gemini-test"),
		gemini.WithTemperature(0.2),
		gemini.WithSystemInstruction("Be brief."))

	got, err := a.Analyze(context.Background(), "what changes?")

	require.NoError(t, err)
	assert.Equal(t, `{"impact_analysis": ["none"]}`, got)
	assert.Equal(t, "gemini-test", gotModel)
	require.Len(t, gotContents, 1)
	assert.Equal(t, "what changes?", gotContents[0].Parts[0].Text)
	require.NotNil(t, gotConfig.Temperature)
	assert.InDelta(t, 0.2, *gotConfig.Temperature, 0.0001)
	require.NotNil(t, gotConfig.SystemInstruction)
	assert.Equal(t, "Be brief.", gotConfig.SystemInstruction.Parts[0].Text)
}

func TestAnalyzer_Analyze_DefaultModel(t *testing.T) {
	t.Parallel()

	var gotModel string
	mockClient := &gemini.MockGenerativeClient{
		GenerateContentFn: func(_ context.Context, model string, _ []*gemini.Content, config *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error) {
			gotModel = model
			assert.Nil(t, config.SystemInstruction)
			return &gemini.GenerateContentResponse{Text: "ok"}, nil
		},
	}

	_, err := gemini.NewAnalyzer(mockClient, gemini.WithModel("")).Analyze(context.Background(), "p")

	require.NoError(t, err)
	assert.Equal(t, gemini.DefaultModel, gotModel)
}

func TestAnalyzer_Analyze_PropagatesAPIError(t *testing.T) {
	t.Parallel()

	apiErr := &gemini.APIError{StatusCode: 429, Message: "rate limited"}
	mockClient := &gemini.MockGenerativeClient{
		GenerateContentFn: func(context.Context, string, []*gemini.Content, *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error) {
			return nil, apiErr
		},
	}

	_, err := gemini.NewAnalyzer(mockClient).Analyze(context.Background(), "p")

	var got *gemini.APIError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 429, got.StatusCode)
}

func TestAnalyzer_Analyze_NilResponse(t *testing.T) {
	t.Parallel()

	mockClient := &gemini.MockGenerativeClient{
		GenerateContentFn: func(context.Context, string, []*gemini.Content, *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error) {
			return nil, nil
		},
	}

	_, err := gemini.NewAnalyzer(mockClient).Analyze(context.Background(), "p")

	assert.Error(t, err)
}

func TestAnalyzer_Analyze_AppliesTimeout(t *testing.T) {
	t.Parallel()

	mockClient := &gemini.MockGenerativeClient{
		GenerateContentFn: func(ctx context.Context, _ string, _ []*gemini.Content, _ *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error) {
			deadline, ok := ctx.Deadline()
			assert.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
			return &gemini.GenerateContentResponse{Text: "ok"}, nil
		},
	}

	_, err := gemini.NewAnalyzer(mockClient, gemini.WithTimeout(time.Minute)).Analyze(context.Background(), "p")

	require.NoError(t, err)
}

func TestAnalyzer_Analyze_TruncatedEmptyResponse(t *testing.T) {
	t.Parallel()

	mockClient := &gemini.MockGenerativeClient{
		GenerateContentFn: func(context.Context, string, []*gemini.Content, *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error) {
			return &gemini.GenerateContentResponse{FinishReason: "SAFETY"}, nil
		},
	}

	_, err := gemini.NewAnalyzer(mockClient).Analyze(context.Background(), "p")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAFETY")
}

func TestAnalyzer_Analyze_EmptyStopIsNotAnError(t *testing.T) {
	t.Parallel()

	mockClient := &gemini.MockGenerativeClient{
		GenerateContentFn: func(context.Context, string, []*gemini.Content, *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error) {
			return &gemini.GenerateContentResponse{FinishReason: "STOP"}, nil
		},
	}

	got, err := gemini.NewAnalyzer(mockClient).Analyze(context.Background(), "p")

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWithTimeout_IgnoresNonPositive(t *testing.T) {
	t.Parallel()

	mockClient := &gemini.MockGenerativeClient{
		GenerateContentFn: func(ctx context.Context, _ string, _ []*gemini.Content, _ *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error) {
			deadline, ok := ctx.Deadline()
			assert.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(gemini.DefaultTimeout), deadline, 5*time.Second)
			return &gemini.GenerateContentResponse{Text: "ok"}, nil
		},
	}

	got, err := gemini.NewAnalyzer(mockClient, gemini.WithTimeout(0)).Analyze(context.Background(), "p")

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}
