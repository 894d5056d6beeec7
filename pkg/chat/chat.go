package chat

import (
	"fmt"
	"strings"
)

const (
	ChatRoleUser   = "user"      // Player
	ChatRoleAgent  = "assistant" // Dungeon master
	ChatRoleSystem = "system"    // Instructions
)

// ChatMessage is a single turn sent to the model.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ChatRequest is the body of a chat turn posted by a player.
type ChatRequest struct {
	Message string `json:"message"`
}

func (cr *ChatRequest) Validate() error {
	if len(cr.Message) > MaxMessageLength {
		return fmt.Errorf("message cannot exceed %d characters", MaxMessageLength)
	}
	return nil
}

// MaxMessageLength bounds a single player message.
const MaxMessageLength = 4000

// IsOpening reports whether a turn is the first of a conversation: either no
// history yet, or only the player's first message.
func IsOpening(history []ChatMessage) bool {
	if len(history) == 0 {
		return true
	}
	return len(history) == 1 && history[0].Role == ChatRoleUser
}

// HasUserTurn reports whether any message in history came from the player.
func HasUserTurn(history []ChatMessage) bool {
	for _, m := range history {
		if m.Role == ChatRoleUser && strings.TrimSpace(m.Content) != "" {
			return true
		}
	}
	return false
}
