package game

import (
	"errors"
	"strings"
)

// ErrNotEquippable is returned when equipping an item whose category cannot
// be worn or wielded.
var ErrNotEquippable = errors.New("item is not equippable")

// ItemCategory is the normalized item type.
type ItemCategory string

const (
	CategoryWeapon     ItemCategory = "weapon"
	CategoryArmor      ItemCategory = "armor"
	CategoryTrinket    ItemCategory = "trinket"
	CategoryNecklace   ItemCategory = "necklace"
	CategoryHelm       ItemCategory = "helm"
	CategoryAccessory  ItemCategory = "accessory"
	CategoryConsumable ItemCategory = "consumable"
	CategoryKeyItem    ItemCategory = "key-item"
	CategoryMisc       ItemCategory = "misc"
)

// Categories lists every category in the order the model is taught them.
var Categories = []ItemCategory{
	CategoryWeapon, CategoryArmor, CategoryTrinket, CategoryNecklace, CategoryHelm,
	CategoryAccessory, CategoryConsumable, CategoryKeyItem, CategoryMisc,
}

var categoryAliases = map[string]ItemCategory{
	"weapon":     CategoryWeapon,
	"armor":      CategoryArmor,
	"armour":     CategoryArmor,
	"trinket":    CategoryTrinket,
	"necklace":   CategoryNecklace,
	"amulet":     CategoryNecklace,
	"helm":       CategoryHelm,
	"helmet":     CategoryHelm,
	"accessory":  CategoryAccessory,
	"accessorie": CategoryAccessory,
	"consumable": CategoryConsumable,
	"potion":     CategoryConsumable,
	"key-item":   CategoryKeyItem,
	"keyitem":    CategoryKeyItem,
	"key":        CategoryKeyItem,
	"misc":       CategoryMisc,
}

// ParseCategory normalizes free text from the model. Case, surrounding space,
// plural endings and space/underscore separators are ignored. Anything
// unrecognized becomes CategoryMisc.
func ParseCategory(s string) ItemCategory {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "-", "_", "-").Replace(key)
	if c, ok := categoryAliases[key]; ok {
		return c
	}
	if c, ok := categoryAliases[strings.TrimSuffix(key, "s")]; ok {
		return c
	}
	return CategoryMisc
}

// Equippable reports whether items of this category can be worn or wielded.
func (c ItemCategory) Equippable() bool {
	switch c {
	case CategoryWeapon, CategoryArmor, CategoryNecklace, CategoryTrinket, CategoryHelm, CategoryAccessory:
		return true
	}
	return false
}

// Modifiers are the stat bonuses an item grants.
type Modifiers struct {
	ArmorClass   int `json:"armor_class"`
	Strength     int `json:"str"`
	Dexterity    int `json:"dex"`
	Speed        int `json:"speed"`
	Wisdom       int `json:"wisdom"`
	Intelligence int `json:"intelligence"`
	Constitution int `json:"constitution"`
	Charisma     int `json:"charisma"`
	Initiative   int `json:"initiative"`
}

// DefaultModifiers returns the fixed stat nudge for a category.
func (c ItemCategory) DefaultModifiers() Modifiers {
	switch c {
	case CategoryWeapon:
		return Modifiers{Strength: 1}
	case CategoryArmor:
		return Modifiers{ArmorClass: 1}
	case CategoryHelm:
		return Modifiers{Wisdom: 1, Intelligence: 1}
	case CategoryNecklace:
		return Modifiers{Charisma: 1}
	case CategoryTrinket:
		return Modifiers{Wisdom: 1}
	case CategoryAccessory:
		return Modifiers{Dexterity: 1}
	}
	return Modifiers{}
}

type Item struct {
	ID                int64        `json:"id"`
	Name              string       `json:"name"`
	Type              ItemCategory `json:"type"`
	Weight            float64      `json:"weight"`
	EffectDescription string       `json:"effect_description,omitempty"`
	LoreDescription   string       `json:"lore_description,omitempty"`
	ImageURL          string       `json:"image_url,omitempty"`
	Modifiers
	Equippable bool `json:"equippable"`
	IsEquipped bool `json:"is_equipped"`
}

// NewItem builds an item from a raw name, free-text type and effect,
// deriving category, equippability and stat nudges.
func NewItem(name, rawType, effect string) *Item {
	cat := ParseCategory(rawType)
	return &Item{
		Name:              strings.TrimSpace(name),
		Type:              cat,
		EffectDescription: strings.TrimSpace(effect),
		Modifiers:         cat.DefaultModifiers(),
		Equippable:        cat.Equippable(),
	}
}

// InventoryEntry links a character to one item.
type InventoryEntry struct {
	ID          int64 `json:"id"`
	CharacterID int64 `json:"character_id"`
	Item        Item  `json:"item"`
}
