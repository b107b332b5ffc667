package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fwojciec/changescope"
	"github.com/fwojciec/changescope/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newServer(t *testing.T, status int, body string, got *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if got != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAnalyzer_Analyze(t *testing.T) {
	t.Parallel()

	t.Run("returns first choice content", func(t *testing.T) {
		t.Parallel()

		var req chatRequest
		srv := newServer(t, http.StatusOK,
			`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"impact_analysis\": []}"},"finish_reason":"stop"}]}`,
			&req)

		a, err := openai.NewAnalyzer("test-key", openai.WithBaseURL(srv.URL+"/v1/"))
		require.NoError(t, err)

		got, err := a.Analyze(context.Background(), "describe the change")

		require.NoError(t, err)
		assert.Equal(t, `{"impact_analysis": []}`, got)
		assert.Equal(t, openai.DefaultModel, req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "describe the change", req.Messages[0].Content)
	})

	t.Run("sends system prompt and max tokens", func(t *testing.T) {
		t.Parallel()

		var req chatRequest
		srv := newServer(t, http.StatusOK,
			`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`, &req)

		a, err := openai.NewAnalyzer("test-key",
			openai.WithBaseURL(srv.URL+"/v1"),
			openai.WithModel("custom-model"),
			openai.WithSystemPrompt("Be helpful."),
			openai.WithMaxTokens(64))
		require.NoError(t, err)

		_, err = a.Analyze(context.Background(), "p")

		require.NoError(t, err)
		assert.Equal(t, "custom-model", req.Model)
		assert.Equal(t, 64, req.MaxTokens)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "Be helpful.", req.Messages[0].Content)
	})

	t.Run("no choices is an error", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, http.StatusOK, `{"choices":[]}`, nil)
		a, err := openai.NewAnalyzer("test-key", openai.WithBaseURL(srv.URL+"/v1"))
		require.NoError(t, err)

		_, err = a.Analyze(context.Background(), "p")

		assert.Error(t, err)
	})

	t.Run("API errors carry the status code", func(t *testing.T) {
		t.Parallel()

		srv := newServer(t, http.StatusUnauthorized,
			`{"error":{"message":"Incorrect API key","type":"invalid_request_error","code":"invalid_api_key"}}`, nil)
		a, err := openai.NewAnalyzer("test-key", openai.WithBaseURL(srv.URL+"/v1"), openai.WithName("deepseek"))
		require.NoError(t, err)

		_, err = a.Analyze(context.Background(), "p")

		var apiErr *openai.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, "deepseek", apiErr.Provider)
		assert.Contains(t, err.Error(), "Incorrect API key")
	})
}

func TestNewAnalyzer_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := openai.NewAnalyzer("")

	assert.ErrorIs(t, err, changescope.ErrMissingAPIKey)
}

func TestWithTimeout_IgnoresNonPositive(t *testing.T) {
	t.Parallel()

	srv := newServer(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`, nil)

	for _, d := range []time.Duration{0, -time.Second} {
		a, err := openai.NewAnalyzer("test-key", openai.WithBaseURL(srv.URL+"/v1"), openai.WithTimeout(d))
		require.NoError(t, err)

		got, err := a.Analyze(context.Background(), "p")

		require.NoError(t, err, "timeout %v", d)
		assert.Equal(t, "ok", got)
	}
}
