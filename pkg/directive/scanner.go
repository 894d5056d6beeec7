package directive

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Defect is a tag-shaped span that could not be parsed. The extractor leaves
// defects in the text and reports them here.
type Defect struct {
	Kind   Kind   `json:"kind"`
	Raw    string `json:"raw"`
	Reason string `json:"reason"`
	Offset int    `json:"offset"`
}

func (d Defect) Error() string {
	return fmt.Sprintf("malformed %s directive at offset %d: %s", d.Kind, d.Offset, d.Reason)
}

func (d Defect) Unwrap() error { return ErrMalformed }

// token is a tag opener plus everything up to its closing bracket, or up to
// the point where it was cut off.
type token struct {
	kind       Kind
	start, end int
	body       string
	terminated bool
}

func (t token) raw(text string) string {
	return text[t.start:t.end]
}

// openerAt reports the kind of tag that opens at text[pos], if any.
func openerAt(text string, pos int) (Kind, bool) {
	if pos >= len(text) || text[pos] != '[' {
		return "", false
	}
	rest := text[pos+1:]
	for _, k := range kindsLongestFirst {
		if len(rest) > len(k) && rest[len(k)] == ':' && strings.HasPrefix(rest, string(k)) {
			return k, true
		}
	}
	return "", false
}

// scan walks text once and returns every tag opener it finds with its body.
// Balanced inner brackets stay inside the body. A newline, another tag opener
// or the end of text before the closing bracket leaves the token unterminated.
func scan(text string) []token {
	var tokens []token
	i := 0
	for i < len(text) {
		j := strings.IndexByte(text[i:], '[')
		if j < 0 {
			break
		}
		start := i + j
		kind, ok := openerAt(text, start)
		if !ok {
			i = start + 1
			continue
		}

		bodyStart := start + len(kind) + 2
		depth := 0
		k := bodyStart
		closed := -1
	body:
		for ; k < len(text); k++ {
			switch text[k] {
			case '\n':
				break body
			case '[':
				if _, nested := openerAt(text, k); nested {
					break body
				}
				depth++
			case ']':
				if depth == 0 {
					closed = k
					break body
				}
				depth--
			}
		}

		if closed < 0 {
			tokens = append(tokens, token{kind: kind, start: start, end: k, body: text[bodyStart:k]})
			i = k
			continue
		}
		tokens = append(tokens, token{kind: kind, start: start, end: closed + 1, body: text[bodyStart:closed], terminated: true})
		i = closed + 1
	}
	return tokens
}

// parse validates a terminated token against its schema.
func parse(t token) (Directive, string) {
	s := schemas[t.kind]
	arity := len(s.fields)

	parts := strings.Split(t.body, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) > arity && s.freeTail() {
		tail := strings.Join(parts[arity-1:], "|")
		parts = append(parts[:arity-1], tail)
	}
	if len(parts) != arity {
		return nil, fmt.Sprintf("wrong field count: want %d, got %d", arity, len(parts))
	}

	nums := make([]int, arity)
	for i, f := range s.fields {
		v := parts[i]
		switch f.typ {
		case fieldName:
			if v == "" {
				return nil, fmt.Sprintf("%s is empty", f.name)
			}
		case fieldInt, fieldAmount:
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Sprintf("%s %q is not an integer", f.name, v)
			}
			if f.typ == fieldAmount && n < 0 {
				return nil, fmt.Sprintf("%s %d is negative", f.name, n)
			}
			nums[i] = n
		}
	}

	d, err := decode(t.kind, parts, nums)
	if err != nil {
		return nil, err.Error()
	}
	return d, ""
}

var residualTag = regexp.MustCompile(
	`(?i)\[\s*(?:ITEM|TRANSACTION|REWARD|DAMAGE_DEALT|DAMAGE|HEALING|MP_USED|ENEMY_MOVE|ENEMY|NPC)\s*:[^\]\n]*\]?`)

// Scrub removes anything that still looks like a tag, including malformed and
// lowercase variants the extractor does not accept, and returns the removed
// spans.
func Scrub(text string) (string, []string) {
	found := residualTag.FindAllString(text, -1)
	if len(found) == 0 {
		return text, nil
	}
	scrubbed := residualTag.ReplaceAllString(text, "")
	return tidy(spaceRun.ReplaceAllString(scrubbed, " ")), found
}

var spaceRun = regexp.MustCompile(`[ \t]{2,}`)
