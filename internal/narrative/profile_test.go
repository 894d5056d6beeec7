package narrative

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/emerald-altar/internal/services"
)

func TestGenerateBio(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.llm.QueueText("Born under an eclipse, Ixchel hears the old gods. [NPC:x|y|z|w|v]")

	bio, err := f.pipeline.GenerateBio(ctx, "Ixchel", "Rogue")
	require.NoError(t, err)
	assert.Equal(t, "Born under an eclipse, Ixchel hears the old gods.", bio)

	call := f.llm.TextCalls[0]
	assert.Contains(t, call.Turns[0].Content, "Ixchel, a Rogue")

	_, err = f.pipeline.GenerateBio(ctx, "  ", "Rogue")
	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestGenerateAvatar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.pipeline.GenerateAvatar(ctx, f.charID)
	assert.ErrorIs(t, err, services.ErrNotConfigured)

	f.pipeline.WithAvatars(services.NewIllustrator(f.llm, nil))
	c, err := f.pipeline.GenerateAvatar(ctx, f.charID)
	require.NoError(t, err)
	assert.Equal(t, "https://images.example/mock.png", c.AvatarURL)

	stored, _ := f.store.GetCharacter(ctx, f.charID)
	assert.Equal(t, c.AvatarURL, stored.AvatarURL)
	assert.Contains(t, f.llm.ImageCalls[0].Prompt, "Human Rogue")
}
