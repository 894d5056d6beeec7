// Package state applies narrative directives to persisted character state.
// Each directive is its own all-or-nothing unit; a failed directive never
// stops the ones after it.
package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/d20"

	"github.com/jwebster45206/emerald-altar/pkg/directive"
	"github.com/jwebster45206/emerald-altar/pkg/game"
	"github.com/jwebster45206/emerald-altar/pkg/storage"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDuplicateItem     = errors.New("a similar item is already in the inventory")
	ErrInvalidEnemy      = errors.New("invalid enemy stat block")
)

// ItemImager draws an item and returns a reference to the stored image.
type ItemImager interface {
	ItemImage(ctx context.Context, name string, category game.ItemCategory) (string, error)
}

// Effect is the outcome of applying one directive.
type Effect struct {
	Kind    directive.Kind `json:"kind"`
	Applied bool           `json:"applied"`
	// Summary is a short human-readable line. For vitals it is appended to
	// the narration.
	Summary string `json:"summary,omitempty"`
	// RelatedItem names an inventory item a TRANSACTION description mentions.
	RelatedItem string             `json:"related_item,omitempty"`
	Vitals      *game.VitalsReport `json:"vitals,omitempty"`
	Reason      string             `json:"reason,omitempty"`
	Err         error              `json:"-"`
}

// Narrates reports whether the summary belongs in the user-facing text.
func (e Effect) Narrates() bool {
	switch e.Kind {
	case directive.KindDamage, directive.KindHealing, directive.KindMPUsed, directive.KindDamageDealt:
		return e.Applied && e.Summary != ""
	}
	return false
}

func failed(kind directive.Kind, err error) Effect {
	return Effect{Kind: kind, Err: err, Reason: err.Error()}
}

// Mutator applies directives through storage.Storage.
type Mutator struct {
	store  storage.Storage
	imager ItemImager
	logger *slog.Logger
}

func NewMutator(store storage.Storage, logger *slog.Logger) *Mutator {
	return &Mutator{store: store, logger: logger}
}

// WithImager enables item images. Returns the Mutator for chaining.
func (m *Mutator) WithImager(imager ItemImager) *Mutator {
	m.imager = imager
	return m
}

// Apply applies a single directive to the character.
func (m *Mutator) Apply(ctx context.Context, characterID int64, d directive.Directive) Effect {
	var eff Effect
	switch d := d.(type) {
	case directive.Item:
		eff = m.applyItem(ctx, characterID, d)
	case directive.Transaction:
		eff = m.applyTransaction(ctx, characterID, d)
	case directive.Reward:
		eff = m.applyReward(ctx, characterID, d)
	case directive.Vital:
		eff = m.applyVital(ctx, characterID, d)
	case directive.Enemy:
		eff = m.applyEnemy(ctx, d)
	case directive.EnemyMove:
		eff = m.applyEnemyMove(ctx, d)
	case directive.NPC:
		eff = m.applyNPC(ctx, d)
	default:
		eff = failed(d.Kind(), fmt.Errorf("unsupported directive %q", d.Kind()))
	}

	if eff.Err != nil {
		m.logger.Info("Directive not applied",
			"character_id", characterID, "kind", eff.Kind, "error", eff.Err)
	} else {
		m.logger.Debug("Directive applied",
			"character_id", characterID, "kind", eff.Kind, "summary", eff.Summary)
	}
	return eff
}

// ApplyAll applies directives in order and returns one effect per directive.
func (m *Mutator) ApplyAll(ctx context.Context, characterID int64, ds []directive.Directive) []Effect {
	effects := make([]Effect, 0, len(ds))
	for _, d := range ds {
		effects = append(effects, m.Apply(ctx, characterID, d))
	}
	return effects
}

func (m *Mutator) applyItem(ctx context.Context, characterID int64, d directive.Item) Effect {
	inv, err := m.store.ListInventory(ctx, characterID)
	if err != nil {
		return failed(directive.KindItem, err)
	}
	if existing, ok := game.FindSimilar(inv, d.Name); ok {
		return failed(directive.KindItem, fmt.Errorf("%q matches %q: %w", d.Name, existing.Item.Name, ErrDuplicateItem))
	}

	item := game.NewItem(d.Name, d.Type, d.Effect)

	// Image generation is slow; keep it outside the transaction.
	if m.imager != nil {
		url, err := m.imager.ItemImage(ctx, item.Name, item.Type)
		if err != nil {
			m.logger.Warn("Item image generation failed", "item", item.Name, "error", err)
		} else {
			item.ImageURL = url
		}
	}

	err = m.store.InTx(ctx, func(q storage.Queries) error {
		inv, err := q.ListInventory(ctx, characterID)
		if err != nil {
			return err
		}
		if existing, ok := game.FindSimilar(inv, item.Name); ok {
			return fmt.Errorf("%q matches %q: %w", item.Name, existing.Item.Name, ErrDuplicateItem)
		}
		if err := q.CreateItem(ctx, item); err != nil {
			return err
		}
		_, err = q.AddInventoryEntry(ctx, characterID, item.ID)
		return err
	})
	if err != nil {
		return failed(directive.KindItem, err)
	}

	return Effect{
		Kind:    directive.KindItem,
		Applied: true,
		Summary: fmt.Sprintf("Received %s (%s).", item.Name, item.Type),
	}
}

func (m *Mutator) applyTransaction(ctx context.Context, characterID int64, d directive.Transaction) Effect {
	var balance int
	var related string
	err := m.store.InTx(ctx, func(q storage.Queries) error {
		c, err := q.GetCharacter(ctx, characterID)
		if err != nil {
			return err
		}
		if c.Money < d.Amount {
			return fmt.Errorf("balance %d, cost %d: %w", c.Money, d.Amount, ErrInsufficientFunds)
		}
		balance = c.Money - d.Amount
		if err := q.SetMoney(ctx, characterID, balance); err != nil {
			return err
		}

		inv, err := q.ListInventory(ctx, characterID)
		if err != nil {
			return err
		}
		related, _ = game.MentionedItem(inv, d.Description)
		return nil
	})
	if err != nil {
		return failed(directive.KindTransaction, err)
	}

	return Effect{
		Kind:        directive.KindTransaction,
		Applied:     true,
		Summary:     fmt.Sprintf("Spent %d on %s. Balance %d.", d.Amount, d.Description, balance),
		RelatedItem: related,
	}
}

func (m *Mutator) applyReward(ctx context.Context, characterID int64, d directive.Reward) Effect {
	var balance int
	err := m.store.InTx(ctx, func(q storage.Queries) error {
		c, err := q.GetCharacter(ctx, characterID)
		if err != nil {
			return err
		}
		balance = game.AddMoney(c.Money, d.Amount)
		return q.SetMoney(ctx, characterID, balance)
	})
	if err != nil {
		return failed(directive.KindReward, err)
	}

	return Effect{
		Kind:    directive.KindReward,
		Applied: true,
		Summary: fmt.Sprintf("Earned %d for %s. Balance %d.", d.Amount, d.Description, balance),
	}
}

func (m *Mutator) applyVital(ctx context.Context, characterID int64, d directive.Vital) Effect {
	var change game.VitalsChange
	switch d.Type {
	case directive.KindDamage:
		change.HP = -d.Amount
	case directive.KindHealing:
		change.HP = d.Amount
	case directive.KindMPUsed:
		change.MP = -d.Amount
	case directive.KindDamageDealt:
		return Effect{
			Kind:    d.Type,
			Applied: true,
			Summary: fmt.Sprintf("You deal %d damage to %s.", d.Amount, d.Source),
		}
	default:
		return failed(d.Type, fmt.Errorf("unsupported vital %q", d.Type))
	}

	report, err := m.store.AdjustVitals(ctx, characterID, change)
	if err != nil {
		return failed(d.Type, err)
	}

	return Effect{
		Kind:    d.Type,
		Applied: true,
		Summary: vitalsSummary(d, report),
		Vitals:  &report,
	}
}

func vitalsSummary(d directive.Vital, r game.VitalsReport) string {
	var line string
	switch d.Type {
	case directive.KindDamage:
		line = fmt.Sprintf("You take %d damage from %s. HP %d/%d.", d.Amount, d.Source, r.HP, r.MaxHP)
	case directive.KindHealing:
		line = fmt.Sprintf("You recover %d HP from %s. HP %d/%d.", d.Amount, d.Source, r.HP, r.MaxHP)
	case directive.KindMPUsed:
		line = fmt.Sprintf("You spend %d MP on %s. MP %d/%d.", d.Amount, d.Source, r.MP, r.MaxMP)
	}
	if r.Incapacitated {
		line += " You are incapacitated!"
	}
	return line
}

// enemyActor builds the stat block as a d20 actor, which rejects values a
// combat engine could not use.
func enemyActor(e *game.Enemy) (*d20.Actor, error) {
	if e.HP <= 0 {
		return nil, fmt.Errorf("hp %d: %w", e.HP, ErrInvalidEnemy)
	}
	if e.ArmorClass < 0 || e.MP < 0 {
		return nil, fmt.Errorf("negative ac or mp: %w", ErrInvalidEnemy)
	}
	attrs := e.Attributes()
	for k, v := range attrs {
		if v == 0 {
			delete(attrs, k)
		}
	}
	actor, err := d20.NewActor(e.Name).
		WithHP(e.HP).
		WithAC(e.ArmorClass).
		WithAttributes(attrs).
		Build()
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidEnemy)
	}
	return actor, nil
}

func (m *Mutator) applyEnemy(ctx context.Context, d directive.Enemy) Effect {
	e := &game.Enemy{
		Name: d.Name, Description: d.Description, Lore: d.Lore,
		HP: d.HP, MP: d.MP, ArmorClass: d.AC,
		Strength: d.Strength, Dexterity: d.Dexterity, Speed: d.Speed, Wisdom: d.Wisdom,
		Intelligence: d.Intelligence, Constitution: d.Constitution, Charisma: d.Charisma,
		Initiative: d.Initiative,
	}
	if _, err := enemyActor(e); err != nil {
		return failed(directive.KindEnemy, err)
	}

	if err := m.store.InTx(ctx, func(q storage.Queries) error {
		return q.CreateEnemy(ctx, e)
	}); err != nil {
		return failed(directive.KindEnemy, err)
	}
	return Effect{
		Kind:    directive.KindEnemy,
		Applied: true,
		Summary: fmt.Sprintf("%s appears (HP %d, AC %d).", e.Name, e.HP, e.ArmorClass),
	}
}

func (m *Mutator) applyEnemyMove(ctx context.Context, d directive.EnemyMove) Effect {
	mv := &game.Move{
		Name: d.Name, Description: d.Description, Lore: d.Lore,
		Damage: d.Damage, ManaCost: d.ManaCost,
		StatusEffect: d.StatusEffect, Condition: d.Condition,
	}
	if err := m.store.InTx(ctx, func(q storage.Queries) error {
		return q.CreateMove(ctx, mv)
	}); err != nil {
		return failed(directive.KindEnemyMove, err)
	}
	return Effect{Kind: directive.KindEnemyMove, Applied: true, Summary: fmt.Sprintf("New move: %s.", mv.Name)}
}

func (m *Mutator) applyNPC(ctx context.Context, d directive.NPC) Effect {
	n := &game.NPC{Name: d.Name, Description: d.Description, Lore: d.Lore, Role: d.Role, Affiliation: d.Affiliation}
	if err := m.store.InTx(ctx, func(q storage.Queries) error {
		return q.CreateNPC(ctx, n)
	}); err != nil {
		m.logger.Warn("NPC creation skipped", "npc", d.Name, "error", err)
		return failed(directive.KindNPC, err)
	}
	return Effect{Kind: directive.KindNPC, Applied: true, Summary: fmt.Sprintf("Met %s.", n.Name)}
}
