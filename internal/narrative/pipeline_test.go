package narrative

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/emerald-altar/internal/services"
	sqlitestore "github.com/jwebster45206/emerald-altar/internal/storage"
	"github.com/jwebster45206/emerald-altar/pkg/chat"
	"github.com/jwebster45206/emerald-altar/pkg/directive"
	"github.com/jwebster45206/emerald-altar/pkg/game"
	"github.com/jwebster45206/emerald-altar/pkg/prompts"
	"github.com/jwebster45206/emerald-altar/pkg/state"
	"github.com/jwebster45206/emerald-altar/pkg/storage"
)

type fixture struct {
	pipeline *Pipeline
	store    *sqlitestore.SQLiteStore
	llm      *services.MockLLM
	charID   int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := sqlitestore.Open(ctx, filepath.Join(t.TempDir(), "narrative.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	u := &game.User{Username: "player", Email: "p@example.com", PasswordHash: "x"}
	require.NoError(t, store.CreateUser(ctx, u))
	c := game.NewCharacter(u.ID, "Ixchel", "Human", "Rogue")
	require.NoError(t, store.CreateCharacter(ctx, c))

	llm := services.NewMockLLM()
	p := NewPipeline(store, llm, state.NewMutator(store, logger), services.NewLocalLocker(), logger).
		WithConfig(Config{ContentRating: "R"})

	return &fixture{pipeline: p, store: store, llm: llm, charID: c.ID}
}

func TestTurn_FirstTurnPurchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.llm.QueueText("You stand in the Zócalo at dusk. [ITEM:Lantern|misc|Lights the dark] " +
		"A vendor presses it into your hands. [TRANSACTION:5|bought the lantern]")

	res, err := f.pipeline.Turn(ctx, f.charID, "")
	require.NoError(t, err)
	assert.False(t, res.Failed)
	assert.NotContains(t, res.Message, "[")
	assert.Contains(t, res.Message, "A vendor presses it into your hands.")
	require.Len(t, res.Effects, 2)
	assert.Equal(t, "Lantern", res.Effects[1].RelatedItem)
	assert.Equal(t, 10, res.Character.Money)

	inv, err := f.store.ListInventory(ctx, f.charID)
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, "Lantern", inv[0].Item.Name)

	require.Len(t, f.llm.TextCalls, 1)
	call := f.llm.TextCalls[0]
	assert.Contains(t, call.System, prompts.SceneOpeningInstruction)
	assert.Contains(t, call.System, "Money: 15")
	require.Len(t, call.Turns, 1)
	assert.Equal(t, prompts.DefaultOpeningTurn, call.Turns[0].Content)

	history, err := f.store.ListChatMessages(ctx, f.charID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].IsUser)
	assert.Equal(t, res.Message, history[0].Content)
}

func TestTurn_HistoryBecomesTurns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.llm.QueueText("The plaza is quiet.").QueueText("A dog barks.")

	_, err := f.pipeline.Turn(ctx, f.charID, "I look around.")
	require.NoError(t, err)
	_, err = f.pipeline.Turn(ctx, f.charID, "I listen.")
	require.NoError(t, err)

	require.Len(t, f.llm.TextCalls, 2)
	second := f.llm.TextCalls[1]
	assert.NotContains(t, second.System, prompts.SceneOpeningInstruction)
	require.Len(t, second.Turns, 3)
	assert.Equal(t, chat.ChatRoleUser, second.Turns[0].Role)
	assert.Equal(t, chat.ChatRoleAgent, second.Turns[1].Role)
	assert.Equal(t, "I listen.", second.Turns[2].Content)
}

func TestTurn_ModelFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not configured", services.ErrNotConfigured, ApologyNotConfigured},
		{"rate limited", fmt.Errorf("gave up: %w", services.ErrRateLimited), ApologyRateLimited},
		{"server error", &services.APIError{StatusCode: 500, Message: "boom"}, ApologyGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.llm.QueueTextError(tt.err)

			res, err := f.pipeline.Turn(ctx, f.charID, "Hello?")
			require.NoError(t, err)
			assert.True(t, res.Failed)
			assert.Equal(t, tt.want, res.Message)

			history, _ := f.store.ListChatMessages(ctx, f.charID, 0)
			require.Len(t, history, 1)
			assert.True(t, history[0].IsUser)
		})
	}
}

func TestTurn_VitalsSummary(t *testing.T) {
	f := newFixture(t)
	f.llm.QueueText("The goblin's blade finds you. [DAMAGE:30|goblin] [MP_USED:10|shield spell]")

	res, err := f.pipeline.Turn(context.Background(), f.charID, "I block.")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Message, "The goblin's blade finds you.\n\n"))
	assert.Contains(t, res.Message, "You take 30 damage from goblin. HP 70/100.")
	assert.Contains(t, res.Message, "You spend 10 MP on shield spell. MP 90/100.")
	assert.Equal(t, 70, res.Character.HP)
}

func TestTurn_SummariesAreSanitized(t *testing.T) {
	f := newFixture(t)
	f.pipeline.WithConfig(Config{ContentRating: "PG"})
	f.llm.QueueText("The floor gives way. [DAMAGE:5|a damn trap [ITEM :Cursed Idol|trinket|whispers]]")

	res, err := f.pipeline.Turn(context.Background(), f.charID, "I step forward.")
	require.NoError(t, err)
	require.Len(t, res.Effects, 1)
	assert.True(t, res.Effects[0].Applied)

	_, leftover := directive.Scrub(res.Message)
	assert.Empty(t, leftover)
	assert.NotContains(t, res.Message, "Cursed Idol")
	assert.NotContains(t, res.Message, "damn")
	assert.Contains(t, res.Message, "HP 95/100.")

	history, err := f.store.ListChatMessages(context.Background(), f.charID, 0)
	require.NoError(t, err)
	assert.Equal(t, res.Message, history[len(history)-1].Content)
}

func TestTurn_MalformedAndRejected(t *testing.T) {
	f := newFixture(t)
	f.llm.QueueText("You haggle. [TRANSACTION:lots|a horse] The stablehand laughs. [TRANSACTION:50|a horse]")

	res, err := f.pipeline.Turn(context.Background(), f.charID, "I buy a horse.")
	require.NoError(t, err)
	assert.NotContains(t, res.Message, "TRANSACTION")
	require.Len(t, res.Defects, 1)
	require.Len(t, res.Effects, 1)
	assert.ErrorIs(t, res.Effects[0].Err, state.ErrInsufficientFunds)
	assert.Equal(t, game.DefaultMoney, res.Character.Money)
}

func TestTurn_UnknownCharacter(t *testing.T) {
	f := newFixture(t)
	_, err := f.pipeline.Turn(context.Background(), 999, "hi")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Zero(t, f.llm.TextCallCount())
}

func TestApology(t *testing.T) {
	assert.Equal(t, ApologyNotConfigured, Apology(fmt.Errorf("wrap: %w", services.ErrNotConfigured)))
	assert.Equal(t, ApologyGeneric, Apology(fmt.Errorf("anything")))
}
