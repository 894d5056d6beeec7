package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jwebster45206/emerald-altar/pkg/game"
)

const questColumns = `id, character_id, title, description, objectives, completed, reward_money, reward_item_id`

func scanQuest(row rowScanner) (*game.Quest, error) {
	var q game.Quest
	var objectives string
	var rewardItem sql.NullInt64
	if err := row.Scan(&q.ID, &q.CharacterID, &q.Title, &q.Description, &objectives,
		&q.Completed, &q.RewardMoney, &rewardItem); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(objectives), &q.Objectives); err != nil {
		return nil, fmt.Errorf("failed to decode quest objectives: %w", err)
	}
	if rewardItem.Valid {
		id := rewardItem.Int64
		q.RewardItemID = &id
	}
	return &q, nil
}

func (q queries) CreateQuest(ctx context.Context, quest *game.Quest) error {
	if err := quest.Validate(); err != nil {
		return err
	}
	objectives := quest.Objectives
	if objectives == nil {
		objectives = []string{}
	}
	encoded, err := json.Marshal(objectives)
	if err != nil {
		return fmt.Errorf("failed to encode quest objectives: %w", err)
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO quests (character_id, title, description, objectives, completed, reward_money, reward_item_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		quest.CharacterID, quest.Title, quest.Description, string(encoded), quest.Completed,
		quest.RewardMoney, quest.RewardItemID,
	)
	if err != nil {
		return fmt.Errorf("failed to create quest: %w", err)
	}
	quest.ID, err = res.LastInsertId()
	return err
}

func (q queries) GetQuest(ctx context.Context, characterID, questID int64) (*game.Quest, error) {
	quest, err := scanQuest(q.db.QueryRowContext(ctx,
		`SELECT `+questColumns+` FROM quests WHERE id = ? AND character_id = ?`, questID, characterID))
	if err != nil {
		return nil, notFound(err, "quest")
	}
	return quest, nil
}

func (q queries) SetQuestCompleted(ctx context.Context, questID int64) error {
	res, err := q.db.ExecContext(ctx, `UPDATE quests SET completed = 1 WHERE id = ?`, questID)
	if err != nil {
		return fmt.Errorf("failed to complete quest: %w", err)
	}
	return requireRow(res, "quest")
}

func (s *SQLiteStore) ListQuests(ctx context.Context, characterID int64) ([]game.Quest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questColumns+` FROM quests WHERE character_id = ? ORDER BY id`, characterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quests: %w", err)
	}
	defer rows.Close()

	out := []game.Quest{}
	for rows.Next() {
		quest, err := scanQuest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quest: %w", err)
		}
		out = append(out, *quest)
	}
	return out, rows.Err()
}
