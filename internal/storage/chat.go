package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jwebster45206/emerald-altar/pkg/game"
)

func (s *SQLiteStore) AppendChatMessage(ctx context.Context, m *game.ChatMessage) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (character_id, content, is_user, created_at) VALUES (?, ?, ?, ?)`,
		m.CharacterID, m.Content, m.IsUser, toMillis(m.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append chat message: %w", err)
	}
	m.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStore) ListChatMessages(ctx context.Context, characterID int64, limit int) ([]game.ChatMessage, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, character_id, content, is_user, created_at FROM (
			SELECT * FROM chat_messages WHERE character_id = ?
			ORDER BY created_at DESC, id DESC LIMIT ?
		) ORDER BY created_at, id`, characterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	out := []game.ChatMessage{}
	for rows.Next() {
		var m game.ChatMessage
		var created int64
		if err := rows.Scan(&m.ID, &m.CharacterID, &m.Content, &m.IsUser, &created); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		m.CreatedAt = fromMillis(created)
		out = append(out, m)
	}
	return out, rows.Err()
}
