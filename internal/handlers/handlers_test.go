package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/emerald-altar/internal/auth"
	"github.com/jwebster45206/emerald-altar/internal/middleware"
	"github.com/jwebster45206/emerald-altar/internal/narrative"
	"github.com/jwebster45206/emerald-altar/internal/services"
	sqlitestore "github.com/jwebster45206/emerald-altar/internal/storage"
	"github.com/jwebster45206/emerald-altar/pkg/game"
	"github.com/jwebster45206/emerald-altar/pkg/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type apiFixture struct {
	server *httptest.Server
	store  *sqlitestore.SQLiteStore
	llm    *services.MockLLM
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger := testLogger()
	store, err := sqlitestore.Open(context.Background(), filepath.Join(t.TempDir(), "api.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	llm := services.NewMockLLM()
	pipeline := narrative.NewPipeline(store, llm, state.NewMutator(store, logger), services.NewLocalLocker(), logger).
		WithConfig(narrative.Config{ContentRating: "PG13"}).
		WithAvatars(services.NewIllustrator(llm, nil))

	tokens := auth.NewTokens("test-secret", time.Hour)
	mux := http.NewServeMux()
	mux.Handle("GET /health", NewHealthHandler(map[string]Pinger{"database": store}, logger))
	Register(mux, tokens, NewAuthHandler(store, tokens, logger), NewCharacterHandler(store, pipeline, logger))

	srv := httptest.NewServer(middleware.Logger(logger, mux))
	t.Cleanup(srv.Close)
	return &apiFixture{server: srv, store: store, llm: llm}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, f.server.URL+path, rdr)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (f *apiFixture) register(t *testing.T, username string) string {
	t.Helper()
	resp, body := f.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"username": username, "email": username + "@example.com", "password": "correct horse",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var tok tokenResponse
	require.NoError(t, json.Unmarshal(body, &tok))
	return tok.Token
}

func (f *apiFixture) createCharacter(t *testing.T, token, name string) game.Character {
	t.Helper()
	resp, body := f.do(t, http.MethodPost, "/v1/characters", token, map[string]string{
		"name": name, "race": "Elf", "class": "Ranger",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var c game.Character
	require.NoError(t, json.Unmarshal(body, &c))
	return c
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func TestAuth_RegisterAndLogin(t *testing.T) {
	f := newAPIFixture(t)
	f.register(t, "aria")

	tests := []struct {
		name   string
		path   string
		body   map[string]string
		status int
	}{
		{"login ok", "/v1/auth/login", map[string]string{"username": "aria", "password": "correct horse"}, http.StatusOK},
		{"wrong password", "/v1/auth/login", map[string]string{"username": "aria", "password": "wrong horse"}, http.StatusUnauthorized},
		{"unknown user", "/v1/auth/login", map[string]string{"username": "nobody", "password": "correct horse"}, http.StatusUnauthorized},
		{"duplicate username", "/v1/auth/register", map[string]string{"username": "aria", "email": "other@example.com", "password": "correct horse"}, http.StatusConflict},
		{"short password", "/v1/auth/register", map[string]string{"username": "bo", "email": "bo@example.com", "password": "short"}, http.StatusBadRequest},
		{"bad email", "/v1/auth/register", map[string]string{"username": "bo", "email": "nope", "password": "correct horse"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.do(t, http.MethodPost, tt.path, "", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
			if tt.status == http.StatusOK {
				assert.NotEmpty(t, decode[tokenResponse](t, body).Token)
			} else {
				assert.NotEmpty(t, decode[errorResponse](t, body).Error)
			}
		})
	}
}

func TestCharacters_Ownership(t *testing.T) {
	f := newAPIFixture(t)
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	c := f.createCharacter(t, alice, "Ixchel")
	assert.Equal(t, game.DefaultMoney, c.Money)

	resp, body := f.do(t, http.MethodGet, "/v1/characters", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]game.Character](t, body), 1)

	resp, body = f.do(t, http.MethodGet, "/v1/characters", bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", string(body))

	path := fmt.Sprintf("/v1/characters/%d", c.ID)
	resp, _ = f.do(t, http.MethodGet, path, alice, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = f.do(t, http.MethodGet, path, bob, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = f.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = f.do(t, http.MethodGet, "/v1/characters/abc", alice, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/v1/characters", alice, map[string]string{"name": " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCharacters_PatchVitalsClamps(t *testing.T) {
	f := newAPIFixture(t)
	tok := f.register(t, "aria")
	c := f.createCharacter(t, tok, "Ixchel")
	path := fmt.Sprintf("/v1/characters/%d/vitals", c.ID)

	resp, body := f.do(t, http.MethodPatch, path, tok, game.VitalsChange{HP: -150, MP: -10})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	report := decode[game.VitalsReport](t, body)
	assert.Equal(t, 0, report.HP)
	assert.Equal(t, -100, report.HPDelta)
	assert.Equal(t, 90, report.MP)
	assert.True(t, report.Incapacitated)

	resp, body = f.do(t, http.MethodPatch, path, tok, game.VitalsChange{HP: 500})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report = decode[game.VitalsReport](t, body)
	assert.Equal(t, report.MaxHP, report.HP)
	assert.False(t, report.Incapacitated)

	resp, body = f.do(t, http.MethodPatch, path, tok, game.VitalsChange{HP: math.MaxInt, MP: math.MaxInt})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	report = decode[game.VitalsReport](t, body)
	assert.Equal(t, report.MaxHP, report.HP)
	assert.Equal(t, report.MaxMP, report.MP)
	assert.False(t, report.Incapacitated)
}

func TestChat_TurnAppliesDirectives(t *testing.T) {
	f := newAPIFixture(t)
	tok := f.register(t, "aria")
	c := f.createCharacter(t, tok, "Ixchel")
	base := fmt.Sprintf("/v1/characters/%d", c.ID)

	f.llm.QueueText("A smith hands you a blade. [ITEM:Jade Sword|weapon|Cuts through fog] [TRANSACTION:5|bought the sword]")
	resp, body := f.do(t, http.MethodPost, base+"/chat", tok, map[string]string{"message": "I buy the sword"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	turn := decode[narrative.TurnResult](t, body)
	assert.False(t, turn.Failed)
	assert.NotContains(t, turn.Message, "[")
	assert.Equal(t, 10, turn.Character.Money)

	resp, body = f.do(t, http.MethodGet, base+"/inventory", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	inv := decode[[]game.InventoryEntry](t, body)
	require.Len(t, inv, 1)
	assert.Equal(t, "Jade Sword", inv[0].Item.Name)

	resp, body = f.do(t, http.MethodPost, fmt.Sprintf("%s/items/%d/equip", base, inv[0].Item.ID), tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.True(t, decode[game.InventoryEntry](t, body).Item.IsEquipped)

	resp, body = f.do(t, http.MethodGet, base+"/chat?limit=1", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decode[[]game.ChatMessage](t, body)
	require.Len(t, history, 1)
	assert.False(t, history[0].IsUser)

	resp, _ = f.do(t, http.MethodGet, base+"/chat?limit=-1", tok, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChat_EquipRejectsMiscItems(t *testing.T) {
	f := newAPIFixture(t)
	tok := f.register(t, "aria")
	c := f.createCharacter(t, tok, "Ixchel")
	base := fmt.Sprintf("/v1/characters/%d", c.ID)

	f.llm.QueueText("You find a rope. [ITEM:Rope|misc|Fifty feet]")
	resp, _ := f.do(t, http.MethodPost, base+"/chat", tok, map[string]string{"message": "search"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	inv, err := f.store.ListInventory(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, inv, 1)

	resp, _ = f.do(t, http.MethodPost, fmt.Sprintf("%s/items/%d/equip", base, inv[0].Item.ID), tok, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPost, base+"/items/999/equip", tok, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChat_ModelFailureApologizes(t *testing.T) {
	f := newAPIFixture(t)
	tok := f.register(t, "aria")
	c := f.createCharacter(t, tok, "Ixchel")

	f.llm.QueueTextError(services.ErrNotConfigured)
	resp, body := f.do(t, http.MethodPost, fmt.Sprintf("/v1/characters/%d/chat", c.ID), tok, map[string]string{"message": "hello"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	turn := decode[narrative.TurnResult](t, body)
	assert.True(t, turn.Failed)
	assert.Equal(t, narrative.ApologyNotConfigured, turn.Message)
}

const questJSON = `{"title":"The Drowned Bell","description":"Recover the bell from the cenote.",
"objectives":["Dive","Return"],"reward_money":40,
"reward_item":{"name":"Bell Clapper","type":"trinket","description":"Rings underwater","rarity":"rare"}}`

func TestQuests_GenerateAndComplete(t *testing.T) {
	f := newAPIFixture(t)
	tok := f.register(t, "aria")
	c := f.createCharacter(t, tok, "Ixchel")
	base := fmt.Sprintf("/v1/characters/%d/quests", c.ID)

	f.llm.QueueText(questJSON)
	resp, body := f.do(t, http.MethodPost, base, tok, map[string]string{"difficulty": "hard"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	quest := decode[game.Quest](t, body)
	assert.Equal(t, "The Drowned Bell", quest.Title)

	resp, body = f.do(t, http.MethodGet, base, tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]game.Quest](t, body), 1)

	completePath := fmt.Sprintf("%s/%d/complete", base, quest.ID)
	resp, body = f.do(t, http.MethodPost, completePath, tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	done := decode[narrative.QuestCompletion](t, body)
	assert.Equal(t, 55, done.Character.Money)
	assert.Equal(t, "Bell Clapper", done.ItemGranted)

	resp, _ = f.do(t, http.MethodPost, completePath, tok, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	f.llm.QueueText("no quest here")
	resp, _ = f.do(t, http.MethodPost, base, tok, nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestBioAndAvatar(t *testing.T) {
	f := newAPIFixture(t)
	tok := f.register(t, "aria")
	c := f.createCharacter(t, tok, "Ixchel")

	f.llm.QueueText("Raised among the ceibas, Ixchel learned to read the stars.")
	resp, body := f.do(t, http.MethodPost, "/v1/bio", tok, map[string]string{"name": "Ixchel", "class": "Ranger"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, decode[bioResponse](t, body).Bio, "ceibas")

	resp, _ = f.do(t, http.MethodPost, "/v1/bio", tok, map[string]string{"class": "Ranger"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = f.do(t, http.MethodPost, fmt.Sprintf("/v1/characters/%d/avatar", c.ID), tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.NotEmpty(t, decode[game.Character](t, body).AvatarURL)
}

func TestHealth_WithStore(t *testing.T) {
	f := newAPIFixture(t)
	resp, body := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", decode[HealthResponse](t, body).Status)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
}
