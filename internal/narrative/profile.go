package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jwebster45206/emerald-altar/internal/services"
	"github.com/jwebster45206/emerald-altar/pkg/game"
	"github.com/jwebster45206/emerald-altar/pkg/prompts"
)

var ErrNameRequired = errors.New("character name is required")

// GenerateBio writes a backstory for a character that may not exist yet.
func (p *Pipeline) GenerateBio(ctx context.Context, name, className string) (string, error) {
	name, className = strings.TrimSpace(name), strings.TrimSpace(className)
	if name == "" {
		return "", ErrNameRequired
	}
	if className == "" {
		className = "wanderer"
	}

	modelCtx, cancel := context.WithTimeout(ctx, p.cfg.ModelTimeout)
	defer cancel()

	bio, err := p.text.GenerateText(modelCtx, services.TextRequest{
		System:      prompts.BioSystemPrompt,
		Turns:       userTurn(fmt.Sprintf(prompts.BioPrompt, name, className)),
		MaxTokens:   200,
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}
	bio, _ = p.sanitizer.Clean(bio)
	return bio, nil
}

// GenerateAvatar draws a portrait for the character and stores its
// reference.
func (p *Pipeline) GenerateAvatar(ctx context.Context, characterID int64) (*game.Character, error) {
	if p.avatars == nil {
		return nil, services.ErrNotConfigured
	}
	c, err := p.store.GetCharacter(ctx, characterID)
	if err != nil {
		return nil, err
	}

	modelCtx, cancel := context.WithTimeout(ctx, p.cfg.ModelTimeout)
	defer cancel()

	url, err := p.avatars.Avatar(modelCtx, c)
	if err != nil {
		return nil, err
	}
	if err := p.store.SetAvatarURL(ctx, characterID, url); err != nil {
		return nil, err
	}
	c.AvatarURL = url

	p.logger.Info("Avatar generated", "character_id", characterID)
	return c, nil
}
