package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/emerald-altar/pkg/chat"
)

func TestOpenAIClient_NotConfigured(t *testing.T) {
	c := NewOpenAIClient(OpenAIConfig{}, testLogger())
	assert.False(t, c.Configured())

	_, err := c.GenerateText(context.Background(), TextRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = c.GenerateImage(context.Background(), ImageRequest{Prompt: "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestOpenAIClient_GenerateText(t *testing.T) {
	var got struct {
		Model          string `json:"model"`
		Messages       []chat.ChatMessage
		ResponseFormat *struct {
			Type string `json:"type"`
		} `json:"response_format"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4",
			"choices":[{"index":0,"message":{"role":"assistant","content":"The plaza is silent."},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1"}, testLogger())
	out, err := c.GenerateText(context.Background(), TextRequest{
		System: "You are the DM.",
		Turns:  []chat.ChatMessage{{Role: chat.ChatRoleUser, Content: "Where am I?"}},
		JSON:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "The plaza is silent.", out)

	assert.Equal(t, "gpt-4", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, chat.ChatRoleSystem, got.Messages[0].Role)
	assert.Equal(t, "Where am I?", got.Messages[1].Content)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestOpenAIClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{
			name:   "rate limit",
			status: http.StatusTooManyRequests,
			check: func(t *testing.T, err error) {
				assert.True(t, isRateLimit(err))
			},
		},
		{
			name:   "client error",
			status: http.StatusBadRequest,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.True(t, apiErr.IsClientError())
				assert.False(t, isRateLimit(err))
			},
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.True(t, apiErr.IsServerError())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"test","code":null}}`))
			}))
			defer srv.Close()

			c := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/v1"}, testLogger())
			_, err := c.GenerateText(context.Background(), TextRequest{System: "s"})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestOpenAIClient_ConnectionRefusedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: url + "/v1"}, testLogger())
	_, err := c.GenerateText(context.Background(), TextRequest{System: "s"})
	require.Error(t, err)
	assert.True(t, isTransient(err), "got %v", err)
}

func TestOpenAIClient_GenerateImage(t *testing.T) {
	var models []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		var body struct {
			Model   string `json:"model"`
			Quality string `json:"quality"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		models = append(models, body.Model+":"+body.Quality)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created":1,"data":[{"url":"https://img.example/a.png"}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/v1"}, testLogger())

	url, err := c.GenerateImage(context.Background(), ImageRequest{Prompt: "mask", Tier: ImageTierHigh})
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/a.png", url)

	_, err = c.GenerateImage(context.Background(), ImageRequest{Prompt: "mask", Tier: ImageTierStandard})
	require.NoError(t, err)

	assert.Equal(t, []string{"dall-e-3:hd", "dall-e-2:"}, models)
}
