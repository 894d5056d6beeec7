package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jwebster45206/emerald-altar/pkg/game"
)

var errUnauthorized = errors.New("invalid username or password")

type ErrorResponse struct {
	Error string `json:"error"`
}

type tokenResponse struct {
	Token string     `json:"token"`
	User  *game.User `json:"user"`
}

// effect is the part of an applied directive the console shows.
type effect struct {
	Kind    string `json:"kind"`
	Applied bool   `json:"applied"`
	Summary string `json:"summary"`
}

type turnResponse struct {
	Message   string          `json:"message"`
	Effects   []effect        `json:"effects"`
	Character *game.Character `json:"character"`
	Failed    bool            `json:"failed"`
}

// apiClient talks to the game API with a bearer token once logged in.
type apiClient struct {
	http    *http.Client
	baseURL string
	token   string
}

func (c *apiClient) testConnection() bool {
	resp, err := c.http.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	return resp.StatusCode == http.StatusOK
}

// do sends body as JSON and decodes the reply into out when the status is
// wantStatus.
func (c *apiClient) do(method, path string, body any, wantStatus int, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return errUnauthorized
	}
	if resp.StatusCode != wantStatus {
		var errorResp ErrorResponse
		if err := json.Unmarshal(data, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
		}
		return errors.New(errorResp.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *apiClient) login(username, password string) error {
	var tok tokenResponse
	err := c.do(http.MethodPost, "/v1/auth/login",
		map[string]string{"username": username, "password": password}, http.StatusOK, &tok)
	if err != nil {
		return err
	}
	c.token = tok.Token
	return nil
}

func (c *apiClient) register(username, email, password string) error {
	var tok tokenResponse
	err := c.do(http.MethodPost, "/v1/auth/register",
		map[string]string{"username": username, "email": email, "password": password}, http.StatusCreated, &tok)
	if err != nil {
		return err
	}
	c.token = tok.Token
	return nil
}

func (c *apiClient) listCharacters() ([]game.Character, error) {
	var chars []game.Character
	err := c.do(http.MethodGet, "/v1/characters", nil, http.StatusOK, &chars)
	return chars, err
}

func (c *apiClient) createCharacter(name, race, class string) (*game.Character, error) {
	var ch game.Character
	err := c.do(http.MethodPost, "/v1/characters",
		map[string]string{"name": name, "race": race, "class": class}, http.StatusCreated, &ch)
	return &ch, err
}

func (c *apiClient) history(characterID int64, limit int) ([]game.ChatMessage, error) {
	var msgs []game.ChatMessage
	err := c.do(http.MethodGet, fmt.Sprintf("/v1/characters/%d/chat?limit=%d", characterID, limit), nil, http.StatusOK, &msgs)
	return msgs, err
}

func (c *apiClient) sendChat(characterID int64, message string) (*turnResponse, error) {
	var turn turnResponse
	err := c.do(http.MethodPost, fmt.Sprintf("/v1/characters/%d/chat", characterID),
		map[string]string{"message": message}, http.StatusOK, &turn)
	return &turn, err
}

func (c *apiClient) inventory(characterID int64) ([]game.InventoryEntry, error) {
	var inv []game.InventoryEntry
	err := c.do(http.MethodGet, fmt.Sprintf("/v1/characters/%d/inventory", characterID), nil, http.StatusOK, &inv)
	return inv, err
}
