package services

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

// recordingSleeper records requested delays without waiting.
type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func fixedJitter(RetryPolicy) time.Duration { return 100 * time.Millisecond }

func newTestClient(mock *MockLLM) (*RetryingClient, *recordingSleeper) {
	sleeper := &recordingSleeper{}
	c := NewRetryingClient(mock, mock, testLogger()).
		WithSleeper(sleeper.sleep).
		WithJitter(fixedJitter)
	return c, sleeper
}

var rateLimited = &APIError{StatusCode: 429, Message: "Rate limit reached"}

func TestRetryingClient_SucceedsOnThirdAttempt(t *testing.T) {
	mock := NewMockLLM().
		QueueTextError(rateLimited).
		QueueTextError(rateLimited).
		QueueText("The jaguar stirs.")
	c, sleeper := newTestClient(mock)

	out, err := c.GenerateText(context.Background(), TextRequest{System: "s"})
	require.NoError(t, err)
	assert.Equal(t, "The jaguar stirs.", out)
	assert.Equal(t, 3, mock.TextCallCount())

	require.Len(t, sleeper.delays, 2)
	assert.Equal(t, 2*time.Second+100*time.Millisecond, sleeper.delays[0])
	assert.Equal(t, 4*time.Second+100*time.Millisecond, sleeper.delays[1])
	assert.Greater(t, sleeper.delays[1], sleeper.delays[0])
}

func TestRetryingClient_RateLimitExhausted(t *testing.T) {
	mock := NewMockLLM()
	mock.GenerateTextFunc = func(context.Context, TextRequest) (string, error) {
		return "", rateLimited
	}
	c, sleeper := newTestClient(mock)

	_, err := c.GenerateText(context.Background(), TextRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.NotErrorIs(t, err, ErrTransient)
	assert.Equal(t, 4, mock.TextCallCount(), "one call plus three retries")
	assert.Len(t, sleeper.delays, 3)

	var exhausted *RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 4, exhausted.Attempts)
}

func TestRetryingClient_TransientExhausted(t *testing.T) {
	mock := NewMockLLM()
	mock.GenerateTextFunc = func(context.Context, TextRequest) (string, error) {
		return "", &TransientError{Err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}}
	}
	c, _ := newTestClient(mock)

	_, err := c.GenerateText(context.Background(), TextRequest{})
	assert.ErrorIs(t, err, ErrTransient)
	assert.Equal(t, 4, mock.TextCallCount())
}

func TestRetryingClient_NoRetry(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		client bool
		server bool
	}{
		{name: "bad request", err: &APIError{StatusCode: 400, Message: "bad"}, client: true},
		{name: "unauthorized", err: &APIError{StatusCode: 401, Message: "key"}, client: true},
		{name: "server error", err: &APIError{StatusCode: 500, Message: "boom"}, server: true},
		{name: "not configured", err: ErrNotConfigured},
		{name: "empty response", err: ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockLLM().QueueTextError(tt.err)
			c, sleeper := newTestClient(mock)

			_, err := c.GenerateText(context.Background(), TextRequest{})
			require.Error(t, err)
			assert.Equal(t, 1, mock.TextCallCount())
			assert.Empty(t, sleeper.delays)

			var apiErr *APIError
			if tt.client || tt.server {
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.client, apiErr.IsClientError())
				assert.Equal(t, tt.server, apiErr.IsServerError())
			} else {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestRetryingClient_ContextCancelledDuringBackoff(t *testing.T) {
	mock := NewMockLLM().QueueTextError(rateLimited)
	c := NewRetryingClient(mock, mock, testLogger()).WithJitter(fixedJitter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GenerateText(ctx, TextRequest{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, mock.TextCallCount())
}

func TestRetryingClient_ImageFallback(t *testing.T) {
	t.Run("overloaded high tier falls back to standard", func(t *testing.T) {
		mock := NewMockLLM()
		mock.GenerateImageFunc = func(_ context.Context, req ImageRequest) (string, error) {
			if req.Tier == ImageTierHigh {
				return "", &APIError{StatusCode: 503, Message: "That model is currently overloaded with other requests."}
			}
			return "https://img/standard.png", nil
		}
		c, sleeper := newTestClient(mock)

		url, err := c.GenerateImage(context.Background(), ImageRequest{Prompt: "a jade mask"})
		require.NoError(t, err)
		assert.Equal(t, "https://img/standard.png", url)
		assert.Equal(t, 2, mock.ImageCallCount())
		assert.Empty(t, sleeper.delays)
	})

	t.Run("rate limit on both tiers backs off and gives up", func(t *testing.T) {
		mock := NewMockLLM()
		mock.GenerateImageFunc = func(context.Context, ImageRequest) (string, error) {
			return "", rateLimited
		}
		c, sleeper := newTestClient(mock)

		_, err := c.GenerateImage(context.Background(), ImageRequest{Prompt: "a jade mask"})
		assert.ErrorIs(t, err, ErrRateLimited)
		assert.Equal(t, 6, mock.ImageCallCount(), "three attempts of two tiers each")
		assert.Len(t, sleeper.delays, 2)
	})

	t.Run("client error is not retried", func(t *testing.T) {
		mock := NewMockLLM()
		mock.GenerateImageFunc = func(context.Context, ImageRequest) (string, error) {
			return "", &APIError{StatusCode: 400, Message: "content policy"}
		}
		c, _ := newTestClient(mock)

		_, err := c.GenerateImage(context.Background(), ImageRequest{Prompt: "x"})
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 400, apiErr.StatusCode)
		assert.Equal(t, 1, mock.ImageCallCount())
	})
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := TextRetryPolicy()
	assert.Equal(t, 2*time.Second, p.Delay(1, 0))
	assert.Equal(t, 8*time.Second+300*time.Millisecond, p.Delay(3, 300*time.Millisecond))

	for i := 0; i < 100; i++ {
		j := uniformJitter(p)
		assert.GreaterOrEqual(t, j, 100*time.Millisecond)
		assert.LessOrEqual(t, j, 500*time.Millisecond)
	}
}
