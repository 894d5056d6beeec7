package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jwebster45206/emerald-altar/pkg/game"
	"github.com/jwebster45206/emerald-altar/pkg/storage"
)

// User operations

func (s *SQLiteStore) CreateUser(ctx context.Context, u *game.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.Username, strings.ToLower(u.Email), u.PasswordHash, toMillis(u.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %q: %w", u.Username, storage.ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*game.User, error) {
	var u game.User
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE username = ?`, username,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &created)
	if err != nil {
		return nil, notFound(err, "user")
	}
	u.CreatedAt = fromMillis(created)
	return &u, nil
}

// Character operations

const characterColumns = `id, user_id, name, race, class_name, exp, money, hp, max_hp, mp, max_mp,
	description, avatar_url, incapacitated, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCharacter(row rowScanner) (*game.Character, error) {
	var c game.Character
	var created int64
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Race, &c.ClassName, &c.Exp, &c.Money,
		&c.HP, &c.MaxHP, &c.MP, &c.MaxMP, &c.Description, &c.AvatarURL, &c.Incapacitated, &created); err != nil {
		return nil, err
	}
	c.CreatedAt = fromMillis(created)
	return &c, nil
}

func (s *SQLiteStore) CreateCharacter(ctx context.Context, c *game.Character) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO characters (user_id, name, race, class_name, exp, money, hp, max_hp, mp, max_mp,
			description, avatar_url, incapacitated, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, c.Name, c.Race, c.ClassName, c.Exp, c.Money, c.HP, c.MaxHP, c.MP, c.MaxMP,
		c.Description, c.AvatarURL, c.Incapacitated, toMillis(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create character: %w", err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStore) ListCharacters(ctx context.Context, userID int64) ([]game.Character, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	defer rows.Close()

	out := []game.Character{}
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan character: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SetAvatarURL(ctx context.Context, characterID int64, url string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE characters SET avatar_url = ? WHERE id = ?`, url, characterID)
	if err != nil {
		return fmt.Errorf("failed to set avatar: %w", err)
	}
	return requireRow(res, "character")
}

func (s *SQLiteStore) AdjustVitals(ctx context.Context, characterID int64, change game.VitalsChange) (game.VitalsReport, error) {
	var report game.VitalsReport
	err := s.inTx(ctx, func(q queries) error {
		c, err := q.GetCharacter(ctx, characterID)
		if err != nil {
			return err
		}
		report = c.ApplyVitals(change)
		return q.SaveVitals(ctx, c)
	})
	return report, err
}

func (q queries) GetCharacter(ctx context.Context, id int64) (*game.Character, error) {
	c, err := scanCharacter(q.db.QueryRowContext(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "character")
	}
	return c, nil
}

func (q queries) SetMoney(ctx context.Context, characterID int64, money int) error {
	res, err := q.db.ExecContext(ctx, `UPDATE characters SET money = ? WHERE id = ?`, money, characterID)
	if err != nil {
		return fmt.Errorf("failed to set money: %w", err)
	}
	return requireRow(res, "character")
}

func (q queries) SaveVitals(ctx context.Context, c *game.Character) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE characters SET hp = ?, mp = ?, incapacitated = ? WHERE id = ?`,
		c.HP, c.MP, c.Incapacitated, c.ID)
	if err != nil {
		return fmt.Errorf("failed to save vitals: %w", err)
	}
	return requireRow(res, "character")
}
