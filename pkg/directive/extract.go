package directive

import (
	"regexp"
	"sort"
	"strings"
)

// Result is the outcome of extracting directives from one model reply.
type Result struct {
	// Text is the reply with every well-formed tag removed. Malformed tags
	// are left in place.
	Text       string      `json:"text"`
	Directives []Directive `json:"-"`
	Defects    []Defect    `json:"defects,omitempty"`
	// Suppressed counts well-formed ENEMY and NPC tags beyond the first,
	// which are removed from the text but not applied.
	Suppressed int `json:"suppressed,omitempty"`
}

// singleUse kinds yield at most one directive per reply.
var singleUse = map[Kind]bool{
	KindEnemy: true,
	KindNPC:   true,
}

type match struct {
	tok   token
	d     Directive
	group int
}

// Extract parses every tag in text. Directives come back in application
// order: ITEM, TRANSACTION, REWARD, then DAMAGE/HEALING/MP_USED/DAMAGE_DEALT
// together, then ENEMY, ENEMY_MOVE and NPC; text order within each group.
func Extract(text string) Result {
	var (
		res     Result
		matches []match
	)

	for _, t := range scan(text) {
		if !t.terminated {
			res.Defects = append(res.Defects, Defect{Kind: t.kind, Raw: t.raw(text), Reason: "unterminated tag", Offset: t.start})
			continue
		}
		d, reason := parse(t)
		if reason != "" {
			res.Defects = append(res.Defects, Defect{Kind: t.kind, Raw: t.raw(text), Reason: reason, Offset: t.start})
			continue
		}
		matches = append(matches, match{tok: t, d: d, group: schemas[t.kind].group})
	}

	ordered := make([]match, len(matches))
	copy(ordered, matches)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].group < ordered[j].group
	})

	seen := make(map[Kind]bool)
	for _, m := range ordered {
		k := m.d.Kind()
		if singleUse[k] {
			if seen[k] {
				res.Suppressed++
				continue
			}
			seen[k] = true
		}
		res.Directives = append(res.Directives, m.d)
	}

	res.Text = remove(text, matches)
	return res
}

// remove cuts the matched spans out of text. matches must be in text order.
func remove(text string, matches []match) string {
	if len(matches) == 0 {
		return tidy(text)
	}

	out := make([]byte, 0, len(text))
	prev := 0
	for _, m := range matches {
		out = append(out, text[prev:m.tok.start]...)
		prev = m.tok.end
		if prev == len(text) || isSpace(text[prev]) || strings.IndexByte(".,;:!?", text[prev]) >= 0 {
			out = trimRightHorizontal(out)
		}
		if len(out) == 0 || out[len(out)-1] == '\n' {
			for prev < len(text) && isHorizontal(text[prev]) {
				prev++
			}
		}
	}
	out = append(out, text[prev:]...)
	return tidy(string(out))
}

var blankRun = regexp.MustCompile(`\n{3,}`)

// tidy trims trailing spaces on each line, collapses runs of blank lines and
// trims the whole text.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	s = strings.Join(lines, "\n")
	s = blankRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func isHorizontal(c byte) bool { return c == ' ' || c == '\t' }

func isSpace(c byte) bool { return isHorizontal(c) || c == '\n' || c == '\r' }

func trimRightHorizontal(b []byte) []byte {
	for len(b) > 0 && isHorizontal(b[len(b)-1]) {
		b = b[:len(b)-1]
	}
	return b
}
