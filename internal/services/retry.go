package services

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"
)

// RetryPolicy controls backoff. The delay before retry n (1-based) is
// BaseDelay*2^n plus a uniform jitter in [JitterMin, JitterMax].
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	JitterMin  time.Duration
	JitterMax  time.Duration
}

// TextRetryPolicy is the default for chat completions.
func TextRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, JitterMin: 100 * time.Millisecond, JitterMax: 500 * time.Millisecond}
}

// ImageRetryPolicy is the default for image generation.
func ImageRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, BaseDelay: time.Second, JitterMin: 100 * time.Millisecond, JitterMax: 500 * time.Millisecond}
}

// Delay returns the wait before the given retry.
func (p RetryPolicy) Delay(retry int, jitter time.Duration) time.Duration {
	return p.BaseDelay*time.Duration(1<<retry) + jitter
}

// RetryingClient wraps a text and an image generator with bounded retries on
// rate limits and transient network failures. Other failures return at once.
type RetryingClient struct {
	text        TextGenerator
	images      ImageGenerator
	textPolicy  RetryPolicy
	imagePolicy RetryPolicy
	sleep       func(ctx context.Context, d time.Duration) error
	jitter      func(p RetryPolicy) time.Duration
	logger      *slog.Logger
}

var (
	_ TextGenerator  = (*RetryingClient)(nil)
	_ ImageGenerator = (*RetryingClient)(nil)
)

func NewRetryingClient(text TextGenerator, images ImageGenerator, logger *slog.Logger) *RetryingClient {
	return &RetryingClient{
		text:        text,
		images:      images,
		textPolicy:  TextRetryPolicy(),
		imagePolicy: ImageRetryPolicy(),
		sleep:       sleepContext,
		jitter:      uniformJitter,
		logger:      logger,
	}
}

// WithPolicies overrides the text and image retry policies.
func (c *RetryingClient) WithPolicies(text, image RetryPolicy) *RetryingClient {
	c.textPolicy = text
	c.imagePolicy = image
	return c
}

// WithSleeper replaces the wait between attempts, mainly for tests.
func (c *RetryingClient) WithSleeper(sleep func(ctx context.Context, d time.Duration) error) *RetryingClient {
	c.sleep = sleep
	return c
}

// WithJitter replaces the jitter source, mainly for tests.
func (c *RetryingClient) WithJitter(jitter func(p RetryPolicy) time.Duration) *RetryingClient {
	c.jitter = jitter
	return c
}

func (c *RetryingClient) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	for attempt := 0; ; attempt++ {
		out, err := c.text.GenerateText(ctx, req)
		if err == nil {
			modelRequestsTotal.WithLabelValues("text", "success").Inc()
			return out, nil
		}
		if err := c.backoff(ctx, "text", c.textPolicy, attempt, err); err != nil {
			return "", err
		}
	}
}

// GenerateImage tries the high tier first and falls back to the standard
// tier when the high tier is rate limited or overloaded. A rate limit on the
// standard tier triggers the backoff.
func (c *RetryingClient) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	if req.Tier == "" {
		req.Tier = ImageTierHigh
	}
	for attempt := 0; ; attempt++ {
		url, err := c.images.GenerateImage(ctx, req)
		if err == nil {
			modelRequestsTotal.WithLabelValues("image", "success").Inc()
			return url, nil
		}

		if req.Tier == ImageTierHigh && isOverloaded(err) {
			c.logger.Info("High tier image model unavailable, falling back", "error", err, "attempt", attempt+1)
			url, err = c.images.GenerateImage(ctx, ImageRequest{Prompt: req.Prompt, Tier: ImageTierStandard})
			if err == nil {
				modelRequestsTotal.WithLabelValues("image", "fallback").Inc()
				return url, nil
			}
		}

		if err := c.backoff(ctx, "image", c.imagePolicy, attempt, err); err != nil {
			return "", err
		}
	}
}

// backoff returns nil when another attempt should be made, after waiting.
// Otherwise it returns the error to give the caller.
func (c *RetryingClient) backoff(ctx context.Context, kind string, p RetryPolicy, attempt int, err error) error {
	var reason string
	var exhaustedKind error
	switch {
	case isRateLimit(err):
		reason, exhaustedKind = "rate_limit", ErrRateLimited
	case isTransient(err):
		reason, exhaustedKind = "transient", ErrTransient
	default:
		modelRequestsTotal.WithLabelValues(kind, outcomeLabel(err)).Inc()
		return err
	}

	if attempt >= p.MaxRetries {
		modelRequestsTotal.WithLabelValues(kind, reason).Inc()
		c.logger.Warn("Model retries exhausted", "kind", kind, "reason", reason, "attempts", attempt+1, "error", err)
		return &RetryExhaustedError{Attempts: attempt + 1, Last: err, kind: exhaustedKind}
	}

	delay := p.Delay(attempt+1, c.jitter(p))
	modelRetriesTotal.WithLabelValues(kind, reason).Inc()
	c.logger.Info("Retrying model request", "kind", kind, "reason", reason, "retry", attempt+1, "delay", delay)
	if serr := c.sleep(ctx, delay); serr != nil {
		return serr
	}
	return nil
}

func outcomeLabel(err error) string {
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	case errors.As(err, &apiErr) && apiErr.IsServerError():
		return "server_error"
	case errors.As(err, &apiErr):
		return "client_error"
	default:
		return "error"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func uniformJitter(p RetryPolicy) time.Duration {
	span := p.JitterMax - p.JitterMin
	if span <= 0 {
		return p.JitterMin
	}
	return p.JitterMin + rand.N(span+1)
}
