package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/emerald-altar/pkg/chat"
	"github.com/jwebster45206/emerald-altar/pkg/game"
)

// Prompt is a system prompt plus the ordered conversation turns.
type Prompt struct {
	System string
	Turns  []chat.ChatMessage
}

// Builder assembles the narrator prompt for one turn using a fluent interface.
type Builder struct {
	character     *game.Character
	inventory     []game.InventoryEntry
	history       []chat.ChatMessage
	historyLimit  int
	contentRating string
}

// New creates a new prompt builder with default settings.
func New() *Builder {
	return &Builder{
		historyLimit: 20,
	}
}

func (b *Builder) WithCharacter(c *game.Character) *Builder {
	b.character = c
	return b
}

func (b *Builder) WithInventory(inventory []game.InventoryEntry) *Builder {
	b.inventory = inventory
	return b
}

// WithHistory sets the conversation so far, oldest first.
func (b *Builder) WithHistory(history []chat.ChatMessage) *Builder {
	b.history = history
	return b
}

// WithHistoryLimit sets the chat history window size.
func (b *Builder) WithHistoryLimit(limit int) *Builder {
	b.historyLimit = limit
	return b
}

func (b *Builder) WithContentRating(rating string) *Builder {
	b.contentRating = rating
	return b
}

// Build renders the prompt. The scene-opening instruction is added when the
// conversation is just starting, and a stand-in player turn is added when
// the window holds no player message.
func (b *Builder) Build() (Prompt, error) {
	if b.character == nil {
		return Prompt{}, fmt.Errorf("character is required")
	}

	var sb strings.Builder
	sb.WriteString(SystemPrompt(b.character, b.inventory))
	sb.WriteString("\n\n### Content rating\n")
	sb.WriteString(ContentRatingPrompt(b.contentRating))
	sb.WriteString("\n\n")
	sb.WriteString(DirectiveInstructions)
	if chat.IsOpening(b.history) {
		sb.WriteString("\n\n")
		sb.WriteString(SceneOpeningInstruction)
	}

	turns := b.window()
	if !chat.HasUserTurn(turns) {
		turns = append(turns, chat.ChatMessage{Role: chat.ChatRoleUser, Content: DefaultOpeningTurn})
	}

	return Prompt{System: sb.String(), Turns: turns}, nil
}

func (b *Builder) window() []chat.ChatMessage {
	h := b.history
	if b.historyLimit > 0 && len(h) > b.historyLimit {
		h = h[len(h)-b.historyLimit:]
	}
	out := make([]chat.ChatMessage, len(h))
	copy(out, h)
	return out
}

// FromHistory converts persisted chat messages into model turns.
func FromHistory(messages []game.ChatMessage) []chat.ChatMessage {
	out := make([]chat.ChatMessage, 0, len(messages))
	for _, m := range messages {
		role := chat.ChatRoleAgent
		if m.IsUser {
			role = chat.ChatRoleUser
		}
		out = append(out, chat.ChatMessage{Role: role, Content: m.Content})
	}
	return out
}
