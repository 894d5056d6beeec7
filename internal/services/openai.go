package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures the OpenAI adapter. BaseURL may point at any
// OpenAI-compatible provider.
type OpenAIConfig struct {
	APIKey             string
	BaseURL            string
	TextModel          string
	ImageModelHigh     string
	ImageModelStandard string
	HTTPClient         *http.Client
}

// OpenAIClient implements TextGenerator and ImageGenerator with go-openai.
// It makes exactly one request per call; retries live in RetryingClient.
type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
	logger *slog.Logger
}

var (
	_ TextGenerator  = (*OpenAIClient)(nil)
	_ ImageGenerator = (*OpenAIClient)(nil)
)

// NewOpenAIClient builds the adapter. Without an API key every call fails
// with ErrNotConfigured.
func NewOpenAIClient(cfg OpenAIConfig, logger *slog.Logger) *OpenAIClient {
	if cfg.TextModel == "" {
		cfg.TextModel = openai.GPT4
	}
	if cfg.ImageModelHigh == "" {
		cfg.ImageModelHigh = openai.CreateImageModelDallE3
	}
	if cfg.ImageModelStandard == "" {
		cfg.ImageModelStandard = openai.CreateImageModelDallE2
	}

	c := &OpenAIClient{cfg: cfg, logger: logger}
	if cfg.APIKey == "" {
		return c
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	} else {
		clientCfg.HTTPClient = &http.Client{Timeout: 2 * time.Minute}
	}
	c.client = openai.NewClientWithConfig(clientCfg)
	return c
}

// Configured reports whether an API key was provided.
func (c *OpenAIClient) Configured() bool {
	return c.client != nil
}

func (c *OpenAIClient) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	if c.client == nil {
		return "", ErrNotConfigured
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Turns)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, t := range req.Turns {
		messages = append(messages, openai.ChatCompletionMessage{Role: t.Role, Content: t.Content})
	}

	ccr := openai.ChatCompletionRequest{
		Model:       c.cfg.TextModel,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.JSON {
		ccr.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, ccr)
	modelRequestDuration.WithLabelValues("text").Observe(time.Since(start).Seconds())
	if err != nil {
		err = convertOpenAIError(ctx, err)
		c.logger.Debug("Chat completion failed", "model", c.cfg.TextModel, "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("Chat completion received",
		"model", c.cfg.TextModel,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"duration", time.Since(start))
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	if c.client == nil {
		return "", ErrNotConfigured
	}

	ir := openai.ImageRequest{
		Prompt:         req.Prompt,
		Model:          c.cfg.ImageModelStandard,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	}
	if req.Tier == ImageTierHigh {
		ir.Model = c.cfg.ImageModelHigh
		ir.Quality = openai.CreateImageQualityHD
	}

	start := time.Now()
	resp, err := c.client.CreateImage(ctx, ir)
	modelRequestDuration.WithLabelValues("image").Observe(time.Since(start).Seconds())
	if err != nil {
		err = convertOpenAIError(ctx, err)
		c.logger.Debug("Image generation failed", "model", ir.Model, "error", err)
		return "", err
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", ErrEmptyResponse
	}
	return resp.Data[0].URL, nil
}

// convertOpenAIError maps go-openai errors onto APIError or TransientError.
func convertOpenAIError(ctx context.Context, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		msg := reqErr.HTTPStatus
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &APIError{StatusCode: reqErr.HTTPStatusCode, Message: msg}
	}
	if classified := classifyTransport(ctx, err); isTransient(classified) {
		return classified
	}
	return fmt.Errorf("model request failed: %w", err)
}
