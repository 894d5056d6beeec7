package storage

import (
	"context"
	"fmt"

	"github.com/jwebster45206/emerald-altar/pkg/game"
	"github.com/jwebster45206/emerald-altar/pkg/storage"
)

const itemColumns = `i.id, i.name, i.type, i.weight, i.effect_description, i.lore_description, i.image_url,
	i.armor_class, i.str, i.dex, i.speed, i.wisdom, i.intelligence, i.constitution, i.charisma,
	i.initiative, i.equippable, i.is_equipped`

func itemDest(it *game.Item) []any {
	return []any{&it.ID, &it.Name, &it.Type, &it.Weight, &it.EffectDescription, &it.LoreDescription,
		&it.ImageURL, &it.ArmorClass, &it.Strength, &it.Dexterity, &it.Speed, &it.Wisdom,
		&it.Intelligence, &it.Constitution, &it.Charisma, &it.Initiative, &it.Equippable, &it.IsEquipped}
}

func (q queries) ListInventory(ctx context.Context, characterID int64) ([]game.InventoryEntry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT inv.id, inv.character_id, `+itemColumns+`
		FROM inventories inv JOIN items i ON i.id = inv.item_id
		WHERE inv.character_id = ? ORDER BY inv.id`, characterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	defer rows.Close()

	out := []game.InventoryEntry{}
	for rows.Next() {
		var e game.InventoryEntry
		dest := append([]any{&e.ID, &e.CharacterID}, itemDest(&e.Item)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan inventory entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q queries) GetItem(ctx context.Context, id int64) (*game.Item, error) {
	var it game.Item
	err := q.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items i WHERE i.id = ?`, id).
		Scan(itemDest(&it)...)
	if err != nil {
		return nil, notFound(err, "item")
	}
	return &it, nil
}

func (q queries) CreateItem(ctx context.Context, it *game.Item) error {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO items (name, type, weight, effect_description, lore_description, image_url,
			armor_class, str, dex, speed, wisdom, intelligence, constitution, charisma, initiative,
			equippable, is_equipped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.Name, string(it.Type), it.Weight, it.EffectDescription, it.LoreDescription, it.ImageURL,
		it.ArmorClass, it.Strength, it.Dexterity, it.Speed, it.Wisdom, it.Intelligence,
		it.Constitution, it.Charisma, it.Initiative, it.Equippable, it.IsEquipped,
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	it.ID, err = res.LastInsertId()
	return err
}

func (q queries) AddInventoryEntry(ctx context.Context, characterID, itemID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO inventories (character_id, item_id) VALUES (?, ?)`, characterID, itemID)
	if err != nil {
		return 0, fmt.Errorf("failed to add inventory entry: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) SetItemEquipped(ctx context.Context, characterID, itemID int64, equipped bool) (*game.InventoryEntry, error) {
	var entry *game.InventoryEntry
	err := s.inTx(ctx, func(q queries) error {
		inv, err := q.ListInventory(ctx, characterID)
		if err != nil {
			return err
		}
		for i := range inv {
			if inv[i].Item.ID == itemID {
				entry = &inv[i]
				break
			}
		}
		if entry == nil {
			return fmt.Errorf("item %d: %w", itemID, storage.ErrNotFound)
		}
		if equipped && !entry.Item.Equippable {
			return fmt.Errorf("%s: %w", entry.Item.Name, game.ErrNotEquippable)
		}

		// One equipped item per category.
		if equipped {
			for _, other := range inv {
				if other.Item.ID == itemID || !other.Item.IsEquipped || other.Item.Type != entry.Item.Type {
					continue
				}
				if _, err := q.db.ExecContext(ctx,
					`UPDATE items SET is_equipped = 0 WHERE id = ?`, other.Item.ID); err != nil {
					return fmt.Errorf("failed to unequip %s: %w", other.Item.Name, err)
				}
			}
		}

		if _, err := q.db.ExecContext(ctx,
			`UPDATE items SET is_equipped = ? WHERE id = ?`, equipped, itemID); err != nil {
			return fmt.Errorf("failed to equip item: %w", err)
		}
		entry.Item.IsEquipped = equipped
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}
