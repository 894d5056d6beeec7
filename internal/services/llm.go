package services

import (
	"context"

	"github.com/jwebster45206/emerald-altar/pkg/chat"
)

// TextRequest is a system prompt plus ordered conversation turns.
type TextRequest struct {
	System      string
	Turns       []chat.ChatMessage
	MaxTokens   int
	Temperature float32
	// JSON asks the model for a single JSON object.
	JSON bool
}

// ImageTier selects the image model quality.
type ImageTier string

const (
	ImageTierHigh     ImageTier = "high"
	ImageTierStandard ImageTier = "standard"
)

type ImageRequest struct {
	Prompt string
	Tier   ImageTier
}

// TextGenerator produces a chat completion.
type TextGenerator interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
}

// ImageGenerator produces an image and returns where it can be fetched.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (string, error)
}
