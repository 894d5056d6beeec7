package game

import (
	"math"
	"testing"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want ItemCategory
	}{
		{"weapon", CategoryWeapon},
		{"Weapons", CategoryWeapon},
		{"  ARMOR ", CategoryArmor},
		{"key item", CategoryKeyItem},
		{"Key_Items", CategoryKeyItem},
		{"accessories", CategoryAccessory},
		{"potion", CategoryConsumable},
		{"amulet", CategoryNecklace},
		{"mysterious glowing thing", CategoryMisc},
		{"", CategoryMisc},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseCategory(tt.in); got != tt.want {
				t.Errorf("ParseCategory(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewItem_Equippable(t *testing.T) {
	equippable := []string{"weapon", "armor", "necklace", "trinket", "helm", "accessory"}
	for _, typ := range equippable {
		if item := NewItem("x", typ, ""); !item.Equippable {
			t.Errorf("expected %s to be equippable", typ)
		}
	}

	for _, typ := range []string{"consumable", "key-item", "misc", "junk"} {
		if item := NewItem("x", typ, ""); item.Equippable {
			t.Errorf("expected %s not to be equippable", typ)
		}
	}
}

func TestNewItem_Deterministic(t *testing.T) {
	a := NewItem(" Iron Sword ", "Weapon", " sharp ")
	b := NewItem("Iron Sword", "weapon", "sharp")

	if *a != *b {
		t.Errorf("expected identical items, got %+v and %+v", a, b)
	}
	if a.Strength != 1 {
		t.Errorf("expected weapon strength nudge of 1, got %d", a.Strength)
	}
	if a.Name != "Iron Sword" {
		t.Errorf("expected trimmed name, got %q", a.Name)
	}
}

func TestSimilarNames(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Obsidian Mirror", "obsidian mirror", true},
		{"Obsidian Mirror", "Mirror", true},
		{"Mirror", "Cracked Obsidian Mirror", true},
		{"Iron Sword", "Steel Shield", false},
		{"", "anything", false},
		{"ÉPÉE of Dawn", "épée", true},
	}

	for _, tt := range tests {
		if got := SimilarNames(tt.a, tt.b); got != tt.want {
			t.Errorf("SimilarNames(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestMentionedItem(t *testing.T) {
	inv := []InventoryEntry{
		{Item: Item{Name: "Leather Boots"}},
		{Item: Item{Name: "Torch"}},
	}

	name, ok := MentionedItem(inv, "Bought leather boots from the cobbler")
	if !ok || name != "Leather Boots" {
		t.Errorf("expected Leather Boots, got %q (%v)", name, ok)
	}

	if _, ok := MentionedItem(inv, "Paid the ferryman"); ok {
		t.Error("expected no mention")
	}
}

func TestApplyVitals(t *testing.T) {
	t.Run("damage clamps to zero and incapacitates", func(t *testing.T) {
		c := NewCharacter(1, "Ash", "Human", "Fighter")
		c.HP = 5
		r := c.ApplyVitals(VitalsChange{HP: -8})
		if r.HP != 0 || !r.Incapacitated || !c.Incapacitated {
			t.Errorf("expected hp 0 and incapacitated, got %+v", r)
		}
		if r.HPDelta != -5 {
			t.Errorf("expected applied delta -5, got %d", r.HPDelta)
		}
	})

	t.Run("healing clamps to max", func(t *testing.T) {
		c := NewCharacter(1, "Ash", "Human", "Fighter")
		c.HP = 18
		c.MaxHP = 20
		r := c.ApplyVitals(VitalsChange{HP: 50})
		if r.HP != 20 {
			t.Errorf("expected hp 20, got %d", r.HP)
		}
	})

	t.Run("mp cannot go negative", func(t *testing.T) {
		c := NewCharacter(1, "Ash", "Human", "Mage")
		c.MP = 3
		r := c.ApplyVitals(VitalsChange{MP: -10})
		if r.MP != 0 {
			t.Errorf("expected mp 0, got %d", r.MP)
		}
	})

	t.Run("huge changes clamp without wrapping", func(t *testing.T) {
		c := NewCharacter(1, "Ash", "Human", "Fighter")
		c.HP = 50
		r := c.ApplyVitals(VitalsChange{HP: math.MaxInt, MP: math.MinInt})
		if r.HP != c.MaxHP || r.Incapacitated {
			t.Errorf("expected full hp, got %+v", r)
		}
		if r.MP != 0 {
			t.Errorf("expected mp 0, got %d", r.MP)
		}

		r = c.ApplyVitals(VitalsChange{HP: math.MinInt, MP: math.MaxInt})
		if r.HP != 0 || !r.Incapacitated || r.MP != c.MaxMP {
			t.Errorf("expected hp 0 and full mp, got %+v", r)
		}
	})

	t.Run("healing clears incapacitation", func(t *testing.T) {
		c := NewCharacter(1, "Ash", "Human", "Fighter")
		c.HP = 0
		c.Incapacitated = true
		c.ApplyVitals(VitalsChange{HP: 3})
		if c.Incapacitated {
			t.Error("expected incapacitation to clear")
		}
	})
}

func TestAddMoney(t *testing.T) {
	tests := []struct {
		balance, amount, want int
	}{
		{10, 20, 30},
		{0, 0, 0},
		{10, math.MaxInt, math.MaxInt},
		{math.MaxInt, 1, math.MaxInt},
		{math.MaxInt - 5, 5, math.MaxInt},
	}
	for _, tt := range tests {
		if got := AddMoney(tt.balance, tt.amount); got != tt.want {
			t.Errorf("AddMoney(%d, %d) = %d, want %d", tt.balance, tt.amount, got, tt.want)
		}
	}
}

func TestCharacterDefaults(t *testing.T) {
	c := NewCharacter(7, "Wren", "Elf", "Ranger")
	if c.Money != 15 || c.HP != 100 || c.MP != 100 {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if c.Level() != 1 {
		t.Errorf("expected level 1, got %d", c.Level())
	}
	c.Exp = 250
	if c.Level() != 3 {
		t.Errorf("expected level 3, got %d", c.Level())
	}
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}
