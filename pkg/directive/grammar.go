// Package directive parses the bracket tags the narrator embeds in its replies
// to request game state changes, e.g. [ITEM:Rusty Key|key-item|Opens the crypt].
package directive

import (
	"errors"
	"fmt"
	"sort"
)

// Kind is a tag name as it appears after the opening bracket.
type Kind string

const (
	KindItem        Kind = "ITEM"
	KindTransaction Kind = "TRANSACTION"
	KindReward      Kind = "REWARD"
	KindDamage      Kind = "DAMAGE"
	KindHealing     Kind = "HEALING"
	KindMPUsed      Kind = "MP_USED"
	KindDamageDealt Kind = "DAMAGE_DEALT"
	KindEnemy       Kind = "ENEMY"
	KindEnemyMove   Kind = "ENEMY_MOVE"
	KindNPC         Kind = "NPC"
)

// ErrMalformed is matched by every Defect.
var ErrMalformed = errors.New("malformed directive")

type fieldType int

const (
	fieldText     fieldType = iota // free text, may be empty
	fieldName                      // text, must be non-empty
	fieldInt                       // any base-10 integer
	fieldAmount                    // non-negative base-10 integer
)

type field struct {
	name string
	typ  fieldType
}

type schema struct {
	kind   Kind
	fields []field
	// group orders kinds during extraction; equal groups keep text order.
	group int
}

// freeTail reports whether extra '|' separators can be folded into the last
// field, which only makes sense when that field is free text.
func (s schema) freeTail() bool {
	last := s.fields[len(s.fields)-1]
	return last.typ == fieldText || last.typ == fieldName
}

var schemas = map[Kind]schema{
	KindItem: {kind: KindItem, group: 0, fields: []field{
		{"name", fieldName}, {"type", fieldText}, {"effect", fieldText},
	}},
	KindTransaction: {kind: KindTransaction, group: 1, fields: []field{
		{"amount", fieldAmount}, {"description", fieldText},
	}},
	KindReward: {kind: KindReward, group: 2, fields: []field{
		{"amount", fieldAmount}, {"description", fieldText},
	}},
	KindDamage: {kind: KindDamage, group: 3, fields: []field{
		{"amount", fieldAmount}, {"source", fieldText},
	}},
	KindHealing: {kind: KindHealing, group: 3, fields: []field{
		{"amount", fieldAmount}, {"source", fieldText},
	}},
	KindMPUsed: {kind: KindMPUsed, group: 3, fields: []field{
		{"amount", fieldAmount}, {"source", fieldText},
	}},
	KindDamageDealt: {kind: KindDamageDealt, group: 3, fields: []field{
		{"amount", fieldAmount}, {"target", fieldText},
	}},
	KindEnemy: {kind: KindEnemy, group: 4, fields: []field{
		{"name", fieldName}, {"description", fieldText}, {"lore", fieldText},
		{"hp", fieldInt}, {"mp", fieldInt}, {"ac", fieldInt},
		{"str", fieldInt}, {"dex", fieldInt}, {"spd", fieldInt}, {"wis", fieldInt},
		{"int", fieldInt}, {"con", fieldInt}, {"cha", fieldInt}, {"init", fieldInt},
	}},
	KindEnemyMove: {kind: KindEnemyMove, group: 5, fields: []field{
		{"name", fieldName}, {"description", fieldText}, {"lore", fieldText},
		{"damage", fieldInt}, {"mana_cost", fieldInt},
		{"status_effect", fieldText}, {"condition", fieldText},
	}},
	KindNPC: {kind: KindNPC, group: 6, fields: []field{
		{"name", fieldName}, {"description", fieldText}, {"lore", fieldText},
		{"role", fieldText}, {"affiliation", fieldText},
	}},
}

// kindsLongestFirst lets DAMAGE_DEALT win over DAMAGE and ENEMY_MOVE over ENEMY.
var kindsLongestFirst = func() []Kind {
	kinds := make([]Kind, 0, len(schemas))
	for k := range schemas {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		if len(kinds[i]) != len(kinds[j]) {
			return len(kinds[i]) > len(kinds[j])
		}
		return kinds[i] < kinds[j]
	})
	return kinds
}()

// Kinds returns every known tag name.
func Kinds() []Kind {
	out := make([]Kind, len(kindsLongestFirst))
	copy(out, kindsLongestFirst)
	return out
}

// Arity returns the number of fields a tag of kind k carries.
func Arity(k Kind) int {
	return len(schemas[k].fields)
}

// Directive is one parsed, well-formed tag.
type Directive interface {
	Kind() Kind
}

// Item grants an item to the character.
type Item struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Effect string `json:"effect"`
}

// Transaction debits money.
type Transaction struct {
	Amount      int    `json:"amount"`
	Description string `json:"description"`
}

// Reward credits money.
type Reward struct {
	Amount      int    `json:"amount"`
	Description string `json:"description"`
}

// Vital is a DAMAGE, HEALING, MP_USED or DAMAGE_DEALT tag. Source holds the
// target for DAMAGE_DEALT.
type Vital struct {
	Type   Kind   `json:"type"`
	Amount int    `json:"amount"`
	Source string `json:"source"`
}

// Enemy introduces a hostile creature with a full stat block.
type Enemy struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Lore         string `json:"lore"`
	HP           int    `json:"hp"`
	MP           int    `json:"mp"`
	AC           int    `json:"ac"`
	Strength     int    `json:"str"`
	Dexterity    int    `json:"dex"`
	Speed        int    `json:"spd"`
	Wisdom       int    `json:"wis"`
	Intelligence int    `json:"int"`
	Constitution int    `json:"con"`
	Charisma     int    `json:"cha"`
	Initiative   int    `json:"init"`
}

// EnemyMove describes an enemy ability.
type EnemyMove struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Lore         string `json:"lore"`
	Damage       int    `json:"damage"`
	ManaCost     int    `json:"mana_cost"`
	StatusEffect string `json:"status_effect"`
	Condition    string `json:"condition"`
}

// NPC introduces a non-player character.
type NPC struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Lore        string `json:"lore"`
	Role        string `json:"role"`
	Affiliation string `json:"affiliation"`
}

func (Item) Kind() Kind        { return KindItem }
func (Transaction) Kind() Kind { return KindTransaction }
func (Reward) Kind() Kind      { return KindReward }
func (v Vital) Kind() Kind     { return v.Type }
func (Enemy) Kind() Kind       { return KindEnemy }
func (EnemyMove) Kind() Kind   { return KindEnemyMove }
func (NPC) Kind() Kind         { return KindNPC }

// decode builds the typed directive from validated fields. Text fields are
// strings and numeric fields have already been parsed into ints.
func decode(k Kind, text []string, nums []int) (Directive, error) {
	switch k {
	case KindItem:
		return Item{Name: text[0], Type: text[1], Effect: text[2]}, nil
	case KindTransaction:
		return Transaction{Amount: nums[0], Description: text[1]}, nil
	case KindReward:
		return Reward{Amount: nums[0], Description: text[1]}, nil
	case KindDamage, KindHealing, KindMPUsed, KindDamageDealt:
		return Vital{Type: k, Amount: nums[0], Source: text[1]}, nil
	case KindEnemy:
		return Enemy{
			Name: text[0], Description: text[1], Lore: text[2],
			HP: nums[3], MP: nums[4], AC: nums[5],
			Strength: nums[6], Dexterity: nums[7], Speed: nums[8], Wisdom: nums[9],
			Intelligence: nums[10], Constitution: nums[11], Charisma: nums[12], Initiative: nums[13],
		}, nil
	case KindEnemyMove:
		return EnemyMove{
			Name: text[0], Description: text[1], Lore: text[2],
			Damage: nums[3], ManaCost: nums[4],
			StatusEffect: text[5], Condition: text[6],
		}, nil
	case KindNPC:
		return NPC{Name: text[0], Description: text[1], Lore: text[2], Role: text[3], Affiliation: text[4]}, nil
	}
	return nil, fmt.Errorf("unknown directive kind %q", k)
}
