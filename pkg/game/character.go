package game

import (
	"fmt"
	"math"
	"time"
)

const (
	DefaultMoney = 15
	DefaultHP    = 100
	DefaultMP    = 100
)

// User is an account that owns characters.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Character is a player character. Money, HP and MP are the fields the
// narrative pipeline mutates.
type Character struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Name          string    `json:"name"`
	Race          string    `json:"race"`
	ClassName     string    `json:"class"`
	Exp           int       `json:"exp"`
	Money         int       `json:"money"`
	HP            int       `json:"hp"`
	MaxHP         int       `json:"max_hp"`
	MP            int       `json:"mp"`
	MaxMP         int       `json:"max_mp"`
	Description   string    `json:"description,omitempty"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	Incapacitated bool      `json:"incapacitated"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewCharacter returns a character with starting money and full vitals.
func NewCharacter(userID int64, name, race, className string) *Character {
	return &Character{
		UserID:    userID,
		Name:      name,
		Race:      race,
		ClassName: className,
		Money:     DefaultMoney,
		HP:        DefaultHP,
		MaxHP:     DefaultHP,
		MP:        DefaultMP,
		MaxMP:     DefaultMP,
	}
}

// Level is derived from experience, one level per 100 exp.
func (c *Character) Level() int {
	if c.Exp < 0 {
		return 1
	}
	return c.Exp/100 + 1
}

func (c *Character) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("character name is required")
	}
	if c.Money < 0 {
		return fmt.Errorf("money cannot be negative")
	}
	if c.MaxHP <= 0 || c.MaxMP < 0 {
		return fmt.Errorf("max hp must be positive and max mp cannot be negative")
	}
	return nil
}

// VitalsChange is a signed adjustment to HP and MP.
type VitalsChange struct {
	HP int `json:"hp"`
	MP int `json:"mp"`
}

// VitalsReport describes the outcome of a clamped vitals update.
type VitalsReport struct {
	HP            int  `json:"hp"`
	MaxHP         int  `json:"max_hp"`
	MP            int  `json:"mp"`
	MaxMP         int  `json:"max_mp"`
	HPDelta       int  `json:"hp_delta"`
	MPDelta       int  `json:"mp_delta"`
	Incapacitated bool `json:"incapacitated"`
}

// ApplyVitals adjusts HP and MP, clamping both to [0, max]. HP at zero marks
// the character incapacitated; any HP above zero clears it.
func (c *Character) ApplyVitals(change VitalsChange) VitalsReport {
	oldHP, oldMP := c.HP, c.MP
	// A change never needs to exceed the pool it applies to.
	c.HP = clamp(c.HP+clamp(change.HP, -c.MaxHP, c.MaxHP), 0, c.MaxHP)
	c.MP = clamp(c.MP+clamp(change.MP, -c.MaxMP, c.MaxMP), 0, c.MaxMP)
	c.Incapacitated = c.HP == 0

	return VitalsReport{
		HP:            c.HP,
		MaxHP:         c.MaxHP,
		MP:            c.MP,
		MaxMP:         c.MaxMP,
		HPDelta:       c.HP - oldHP,
		MPDelta:       c.MP - oldMP,
		Incapacitated: c.Incapacitated,
	}
}

// AddMoney credits amount to balance, saturating at math.MaxInt.
func AddMoney(balance, amount int) int {
	if amount > 0 && balance > math.MaxInt-amount {
		return math.MaxInt
	}
	return balance + amount
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
