// Package narrative runs narrator turns and the generators around them:
// quests, backstories and avatars.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jwebster45206/emerald-altar/internal/services"
	"github.com/jwebster45206/emerald-altar/pkg/chat"
	"github.com/jwebster45206/emerald-altar/pkg/directive"
	"github.com/jwebster45206/emerald-altar/pkg/game"
	"github.com/jwebster45206/emerald-altar/pkg/prompts"
	"github.com/jwebster45206/emerald-altar/pkg/state"
	"github.com/jwebster45206/emerald-altar/pkg/storage"
	"github.com/jwebster45206/emerald-altar/pkg/textfilter"
)

// Config tunes the pipeline. Zero values fall back to defaults.
type Config struct {
	HistoryLimit  int
	ContentRating string
	MaxTokens     int
	Temperature   float32
	// ModelTimeout bounds one model call including its retries.
	ModelTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 20
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 500
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.ModelTimeout <= 0 {
		c.ModelTimeout = 2 * time.Minute
	}
	return c
}

// AvatarDrawer draws a character portrait and returns its reference.
type AvatarDrawer interface {
	Avatar(ctx context.Context, c *game.Character) (string, error)
}

// Pipeline turns a player message into narration and applied game state.
type Pipeline struct {
	store     storage.Storage
	text      services.TextGenerator
	mutator   *state.Mutator
	locker    services.CharacterLocker
	avatars   AvatarDrawer
	sanitizer *textfilter.Sanitizer
	cfg       Config
	logger    *slog.Logger
}

func NewPipeline(
	store storage.Storage,
	text services.TextGenerator,
	mutator *state.Mutator,
	locker services.CharacterLocker,
	logger *slog.Logger,
) *Pipeline {
	p := &Pipeline{
		store:   store,
		text:    text,
		mutator: mutator,
		locker:  locker,
		logger:  logger,
	}
	return p.WithConfig(Config{})
}

func (p *Pipeline) WithConfig(cfg Config) *Pipeline {
	p.cfg = cfg.withDefaults()
	p.sanitizer = textfilter.NewSanitizer(p.cfg.ContentRating)
	return p
}

func (p *Pipeline) WithAvatars(avatars AvatarDrawer) *Pipeline {
	p.avatars = avatars
	return p
}

// TurnResult is what a player sees after one turn.
type TurnResult struct {
	Message    string             `json:"message"`
	Effects    []state.Effect     `json:"effects,omitempty"`
	Defects    []directive.Defect `json:"defects,omitempty"`
	Suppressed int                `json:"suppressed,omitempty"`
	Character  *game.Character    `json:"character"`
	// Failed is set when the model call failed and Message is an apology.
	Failed bool `json:"failed,omitempty"`
}

// Turn runs one narrator turn for a character. An empty message asks the
// narrator to continue (or open the scene on a new adventure). Only storage
// failures before the model call are returned as errors; a failed model call
// yields an apology.
func (p *Pipeline) Turn(ctx context.Context, characterID int64, message string) (*TurnResult, error) {
	unlock, err := p.locker.Lock(ctx, characterID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, err := p.store.GetCharacter(ctx, characterID)
	if err != nil {
		return nil, err
	}

	if message = strings.TrimSpace(message); message != "" {
		if err := p.store.AppendChatMessage(ctx, &game.ChatMessage{
			CharacterID: characterID, Content: message, IsUser: true,
		}); err != nil {
			return nil, fmt.Errorf("failed to save player message: %w", err)
		}
	}

	history, err := p.store.ListChatMessages(ctx, characterID, p.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	inventory, err := p.store.ListInventory(ctx, characterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}

	prompt, err := prompts.New().
		WithCharacter(c).
		WithInventory(inventory).
		WithHistory(prompts.FromHistory(history)).
		WithHistoryLimit(p.cfg.HistoryLimit).
		WithContentRating(p.cfg.ContentRating).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	modelCtx, cancel := context.WithTimeout(ctx, p.cfg.ModelTimeout)
	defer cancel()

	p.logger.Debug("Sending narrator request", "character_id", characterID, "turns", len(prompt.Turns))
	reply, err := p.text.GenerateText(modelCtx, services.TextRequest{
		System:      prompt.System,
		Turns:       prompt.Turns,
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
	})
	if err != nil {
		p.logger.Error("Narrator request failed", "character_id", characterID, "error", err)
		return &TurnResult{Message: Apology(err), Character: c, Failed: true}, nil
	}

	res := directive.Extract(reply)
	for _, d := range res.Defects {
		p.logger.Warn("Malformed directive", "character_id", characterID,
			"kind", d.Kind, "reason", d.Reason, "raw", d.Raw)
		services.RecordDirective(string(d.Kind), "malformed")
	}
	if res.Suppressed > 0 {
		p.logger.Info("Extra single-use directives ignored", "character_id", characterID, "count", res.Suppressed)
	}

	effects := p.mutator.ApplyAll(ctx, characterID, res.Directives)
	for _, e := range effects {
		outcome := "applied"
		if !e.Applied {
			outcome = "skipped"
		}
		services.RecordDirective(string(e.Kind), outcome)
	}

	// Summaries quote model text, so they are cleaned with the narration.
	text, scrubbed := p.sanitizer.Clean(appendSummaries(res.Text, effects))
	if len(scrubbed) > 0 {
		p.logger.Warn("Scrubbed tag syntax from narration", "character_id", characterID, "spans", scrubbed)
	}

	if err := p.store.AppendChatMessage(ctx, &game.ChatMessage{
		CharacterID: characterID, Content: text, IsUser: false,
	}); err != nil {
		return nil, fmt.Errorf("failed to save narration: %w", err)
	}

	if fresh, err := p.store.GetCharacter(ctx, characterID); err == nil {
		c = fresh
	} else {
		p.logger.Warn("Failed to reload character", "character_id", characterID, "error", err)
	}

	return &TurnResult{
		Message:    text,
		Effects:    effects,
		Defects:    res.Defects,
		Suppressed: res.Suppressed,
		Character:  c,
	}, nil
}

func appendSummaries(text string, effects []state.Effect) string {
	var lines []string
	for _, e := range effects {
		if e.Narrates() {
			lines = append(lines, e.Summary)
		}
	}
	if len(lines) == 0 {
		return text
	}
	if text == "" {
		return strings.Join(lines, "\n")
	}
	return text + "\n\n" + strings.Join(lines, "\n")
}

// History returns a character's conversation, oldest first.
func (p *Pipeline) History(ctx context.Context, characterID int64, limit int) ([]game.ChatMessage, error) {
	if _, err := p.store.GetCharacter(ctx, characterID); err != nil {
		return nil, err
	}
	return p.store.ListChatMessages(ctx, characterID, limit)
}

// userTurn wraps a single prompt as the only conversation turn.
func userTurn(content string) []chat.ChatMessage {
	return []chat.ChatMessage{{Role: chat.ChatRoleUser, Content: content}}
}

// IsModelError reports whether err came from the model client rather than
// storage or validation.
func IsModelError(err error) bool {
	var apiErr *services.APIError
	return errors.Is(err, services.ErrNotConfigured) ||
		errors.Is(err, services.ErrRateLimited) ||
		errors.Is(err, services.ErrTransient) ||
		errors.Is(err, services.ErrEmptyResponse) ||
		errors.As(err, &apiErr)
}
