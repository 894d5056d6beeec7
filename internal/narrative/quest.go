package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jwebster45206/emerald-altar/internal/services"
	"github.com/jwebster45206/emerald-altar/pkg/game"
	"github.com/jwebster45206/emerald-altar/pkg/prompts"
	"github.com/jwebster45206/emerald-altar/pkg/storage"
)

var (
	ErrInvalidQuest   = errors.New("model returned an invalid quest")
	ErrQuestCompleted = errors.New("quest already completed")
)

// objectiveList accepts either a JSON array of strings or a single string.
type objectiveList []string

func (o *objectiveList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*o = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("objectives must be a string or a list of strings")
	}
	if single = strings.TrimSpace(single); single != "" {
		*o = objectiveList{single}
	}
	return nil
}

type questReply struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Objectives  objectiveList `json:"objectives"`
	RewardMoney int           `json:"reward_money"`
	RewardItem  *struct {
		Name        string `json:"name"`
		Type        string `json:"type"`
		Description string `json:"description"`
		Rarity      string `json:"rarity"`
	} `json:"reward_item"`
}

// parseQuest decodes the model's quest object. Code fences and text around
// the outermost braces are ignored.
func parseQuest(raw string) (*questReply, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end < start {
		return nil, fmt.Errorf("no JSON object in reply: %w", ErrInvalidQuest)
	}

	var q questReply
	if err := json.Unmarshal([]byte(raw[start:end+1]), &q); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidQuest)
	}
	q.Title = strings.TrimSpace(q.Title)
	q.Description = strings.TrimSpace(q.Description)
	if q.Title == "" || q.Description == "" {
		return nil, fmt.Errorf("title and description are required: %w", ErrInvalidQuest)
	}
	if q.RewardMoney < 0 {
		return nil, fmt.Errorf("negative reward: %w", ErrInvalidQuest)
	}
	return &q, nil
}

// GenerateQuest asks the model for a quest and stores it with its reward
// item, if any.
func (p *Pipeline) GenerateQuest(ctx context.Context, characterID int64, difficulty, questType string) (*game.Quest, error) {
	c, err := p.store.GetCharacter(ctx, characterID)
	if err != nil {
		return nil, err
	}

	modelCtx, cancel := context.WithTimeout(ctx, p.cfg.ModelTimeout)
	defer cancel()

	raw, err := p.text.GenerateText(modelCtx, services.TextRequest{
		System:      prompts.QuestSystemPrompt,
		Turns:       userTurn(prompts.QuestRequest(c.Level(), difficulty, questType)),
		MaxTokens:   800,
		Temperature: 0.7,
		JSON:        true,
	})
	if err != nil {
		return nil, err
	}

	reply, err := parseQuest(raw)
	if err != nil {
		p.logger.Warn("Unusable quest from model", "character_id", characterID, "error", err)
		return nil, err
	}

	quest := &game.Quest{
		CharacterID: characterID,
		Title:       reply.Title,
		Description: reply.Description,
		Objectives:  []string(reply.Objectives),
		RewardMoney: reply.RewardMoney,
	}

	err = p.store.InTx(ctx, func(q storage.Queries) error {
		if ri := reply.RewardItem; ri != nil && strings.TrimSpace(ri.Name) != "" {
			item := game.NewItem(ri.Name, ri.Type, ri.Description)
			if ri.Rarity != "" {
				item.LoreDescription = "Rarity: " + strings.TrimSpace(ri.Rarity)
			}
			if err := q.CreateItem(ctx, item); err != nil {
				return err
			}
			quest.RewardItemID = &item.ID
		}
		return q.CreateQuest(ctx, quest)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save quest: %w", err)
	}

	p.logger.Info("Quest generated", "character_id", characterID, "quest_id", quest.ID, "title", quest.Title)
	return quest, nil
}

// QuestCompletion reports what completing a quest granted.
type QuestCompletion struct {
	Quest       *game.Quest     `json:"quest"`
	Character   *game.Character `json:"character"`
	ItemGranted string          `json:"item_granted,omitempty"`
	// ItemSkipped names a reward item withheld because a similar item is
	// already carried.
	ItemSkipped string `json:"item_skipped,omitempty"`
}

// CompleteQuest marks a quest done and pays out its rewards. Completing a
// quest twice returns ErrQuestCompleted.
func (p *Pipeline) CompleteQuest(ctx context.Context, characterID, questID int64) (*QuestCompletion, error) {
	unlock, err := p.locker.Lock(ctx, characterID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := &QuestCompletion{}
	err = p.store.InTx(ctx, func(q storage.Queries) error {
		quest, err := q.GetQuest(ctx, characterID, questID)
		if err != nil {
			return err
		}
		if quest.Completed {
			return ErrQuestCompleted
		}
		if err := q.SetQuestCompleted(ctx, questID); err != nil {
			return err
		}
		quest.Completed = true
		out.Quest = quest

		c, err := q.GetCharacter(ctx, characterID)
		if err != nil {
			return err
		}
		c.Money = game.AddMoney(c.Money, quest.RewardMoney)
		if err := q.SetMoney(ctx, characterID, c.Money); err != nil {
			return err
		}
		out.Character = c

		if quest.RewardItemID == nil {
			return nil
		}
		item, err := q.GetItem(ctx, *quest.RewardItemID)
		if err != nil {
			return err
		}
		inv, err := q.ListInventory(ctx, characterID)
		if err != nil {
			return err
		}
		if _, dup := game.FindSimilar(inv, item.Name); dup {
			out.ItemSkipped = item.Name
			return nil
		}
		if _, err := q.AddInventoryEntry(ctx, characterID, item.ID); err != nil {
			return err
		}
		out.ItemGranted = item.Name
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("Quest completed", "character_id", characterID, "quest_id", questID,
		"reward_money", out.Quest.RewardMoney, "item", out.ItemGranted)
	return out, nil
}
