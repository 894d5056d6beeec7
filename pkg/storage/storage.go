package storage

import (
	"context"
	"errors"

	"github.com/jwebster45206/emerald-altar/pkg/game"
)

var (
	// ErrNotFound is returned when a requested row does not exist or is not
	// owned by the caller.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique field (username, email) is taken.
	ErrConflict = errors.New("already exists")
)

// Queries are the operations that may run inside a transaction. Every
// mutation the narrative pipeline performs goes through them.
type Queries interface {
	GetCharacter(ctx context.Context, id int64) (*game.Character, error)
	SetMoney(ctx context.Context, characterID int64, money int) error
	// SaveVitals writes hp, mp and the incapacitated flag.
	SaveVitals(ctx context.Context, c *game.Character) error

	ListInventory(ctx context.Context, characterID int64) ([]game.InventoryEntry, error)
	GetItem(ctx context.Context, id int64) (*game.Item, error)
	CreateItem(ctx context.Context, item *game.Item) error
	AddInventoryEntry(ctx context.Context, characterID, itemID int64) (int64, error)

	CreateEnemy(ctx context.Context, e *game.Enemy) error
	CreateMove(ctx context.Context, m *game.Move) error
	CreateNPC(ctx context.Context, n *game.NPC) error

	CreateQuest(ctx context.Context, q *game.Quest) error
	// GetQuest returns ErrNotFound unless the quest belongs to characterID.
	GetQuest(ctx context.Context, characterID, questID int64) (*game.Quest, error)
	SetQuestCompleted(ctx context.Context, questID int64) error
}

// Storage is the persistence surface of the game.
type Storage interface {
	Queries

	// InTx runs fn in one write transaction. fn's error or a panic rolls
	// the transaction back.
	InTx(ctx context.Context, fn func(q Queries) error) error

	Ping(ctx context.Context) error
	Close() error

	CreateUser(ctx context.Context, u *game.User) error
	GetUserByUsername(ctx context.Context, username string) (*game.User, error)

	CreateCharacter(ctx context.Context, c *game.Character) error
	ListCharacters(ctx context.Context, userID int64) ([]game.Character, error)
	SetAvatarURL(ctx context.Context, characterID int64, url string) error
	// AdjustVitals applies a clamped HP/MP change in its own transaction.
	AdjustVitals(ctx context.Context, characterID int64, change game.VitalsChange) (game.VitalsReport, error)
	// SetItemEquipped flags an item in the character's inventory. Equipping
	// unequips any other item of the same category.
	SetItemEquipped(ctx context.Context, characterID, itemID int64, equipped bool) (*game.InventoryEntry, error)

	AppendChatMessage(ctx context.Context, m *game.ChatMessage) error
	// ListChatMessages returns the newest limit messages, oldest first.
	// A limit of zero or less returns the whole history.
	ListChatMessages(ctx context.Context, characterID int64, limit int) ([]game.ChatMessage, error)

	ListQuests(ctx context.Context, characterID int64) ([]game.Quest, error)
}
