package narrative

import (
	"errors"

	"github.com/jwebster45206/emerald-altar/internal/services"
)

// Replies shown in place of narration when the model call fails. They are
// never stored in the chat history.
const (
	ApologyNotConfigured = "The narrator is unavailable: no model API key is configured. Set OPENAI_API_KEY and restart the server."
	ApologyRateLimited   = "The narrator pauses, lost in thought. The spirits are crowded tonight; try again in a moment."
	ApologyGeneric       = "Sorry, I'm having trouble responding right now. Please try again later."
)

// Apology picks the reply for a failed model call.
func Apology(err error) string {
	switch {
	case errors.Is(err, services.ErrNotConfigured):
		return ApologyNotConfigured
	case errors.Is(err, services.ErrRateLimited):
		return ApologyRateLimited
	default:
		return ApologyGeneric
	}
}
