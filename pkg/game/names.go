package game

import (
	"strings"

	"golang.org/x/text/cases"
)

var folder = cases.Fold()

// FoldName returns the case-folded, trimmed form used for name comparison.
func FoldName(s string) string {
	return folder.String(strings.TrimSpace(s))
}

// SimilarNames reports whether two item names refer to the same thing:
// case-insensitively equal, or one contained in the other.
func SimilarNames(a, b string) bool {
	fa, fb := FoldName(a), FoldName(b)
	if fa == "" || fb == "" {
		return false
	}
	return fa == fb || strings.Contains(fa, fb) || strings.Contains(fb, fa)
}

// FindSimilar returns the first inventory entry whose item name is similar to
// name.
func FindSimilar(entries []InventoryEntry, name string) (*InventoryEntry, bool) {
	for i := range entries {
		if SimilarNames(entries[i].Item.Name, name) {
			return &entries[i], true
		}
	}
	return nil, false
}

// MentionedItem returns the first inventory item whose name appears in text.
func MentionedItem(entries []InventoryEntry, text string) (string, bool) {
	ft := FoldName(text)
	if ft == "" {
		return "", false
	}
	for _, e := range entries {
		if fn := FoldName(e.Item.Name); fn != "" && strings.Contains(ft, fn) {
			return e.Item.Name, true
		}
	}
	return "", false
}
