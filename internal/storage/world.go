package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jwebster45206/emerald-altar/pkg/game"
)

// Enemies, moves and NPCs are global; nothing links them to a character.

func (q queries) CreateEnemy(ctx context.Context, e *game.Enemy) error {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO enemies (name, description, lore_description, hp, mp, armor_class, str, dex,
			speed, wisdom, intelligence, constitution, charisma, initiative)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Name, e.Description, e.Lore, e.HP, e.MP, e.ArmorClass, e.Strength, e.Dexterity,
		e.Speed, e.Wisdom, e.Intelligence, e.Constitution, e.Charisma, e.Initiative,
	)
	if err != nil {
		return fmt.Errorf("failed to create enemy: %w", err)
	}
	e.ID, err = res.LastInsertId()
	return err
}

func (q queries) CreateMove(ctx context.Context, m *game.Move) error {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO moves (name, description, lore_description, damage, mana_cost, status_effect, condition)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.Name, m.Description, m.Lore, m.Damage, m.ManaCost, m.StatusEffect, m.Condition,
	)
	if err != nil {
		return fmt.Errorf("failed to create move: %w", err)
	}
	m.ID, err = res.LastInsertId()
	return err
}

func (q queries) CreateNPC(ctx context.Context, n *game.NPC) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO npcs (name, description, lore_description, role, affiliation, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.Name, n.Description, n.Lore, n.Role, n.Affiliation, toMillis(n.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create npc: %w", err)
	}
	n.ID, err = res.LastInsertId()
	return err
}
