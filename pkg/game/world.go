package game

import (
	"fmt"
	"time"
)

// Enemy is a hostile creature introduced by the narrator.
type Enemy struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Lore         string `json:"lore_description"`
	HP           int    `json:"hp"`
	MP           int    `json:"mp"`
	ArmorClass   int    `json:"armor_class"`
	Strength     int    `json:"str"`
	Dexterity    int    `json:"dex"`
	Speed        int    `json:"speed"`
	Wisdom       int    `json:"wisdom"`
	Intelligence int    `json:"intelligence"`
	Constitution int    `json:"constitution"`
	Charisma     int    `json:"charisma"`
	Initiative   int    `json:"initiative"`
}

// Attributes returns the ability scores keyed the way d20 actors expect.
func (e *Enemy) Attributes() map[string]int {
	return map[string]int{
		"strength":     e.Strength,
		"dexterity":    e.Dexterity,
		"constitution": e.Constitution,
		"intelligence": e.Intelligence,
		"wisdom":       e.Wisdom,
		"charisma":     e.Charisma,
		"speed":        e.Speed,
		"initiative":   e.Initiative,
	}
}

// Move is a named enemy ability.
type Move struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Lore         string `json:"lore_description"`
	Damage       int    `json:"damage"`
	ManaCost     int    `json:"mana_cost"`
	StatusEffect string `json:"status_effect,omitempty"`
	Condition    string `json:"condition,omitempty"`
}

type NPC struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Lore        string    `json:"lore"`
	Role        string    `json:"role"`
	Affiliation string    `json:"affiliation"`
	CreatedAt   time.Time `json:"created_at"`
}

// Quest is a generated objective with an optional reward item.
type Quest struct {
	ID           int64    `json:"id"`
	CharacterID  int64    `json:"character_id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Objectives   []string `json:"objectives"`
	Completed    bool     `json:"completed"`
	RewardMoney  int      `json:"reward_money"`
	RewardItemID *int64   `json:"reward_item_id,omitempty"`
}

func (q *Quest) Validate() error {
	if q.Title == "" {
		return fmt.Errorf("quest title is required")
	}
	if q.Description == "" {
		return fmt.Errorf("quest description is required")
	}
	if q.RewardMoney < 0 {
		return fmt.Errorf("quest reward cannot be negative")
	}
	return nil
}

// ChatMessage is one persisted turn of a character's conversation.
type ChatMessage struct {
	ID          int64     `json:"id"`
	CharacterID int64     `json:"character_id"`
	Content     string    `json:"content"`
	IsUser      bool      `json:"is_user"`
	CreatedAt   time.Time `json:"timestamp"`
}
