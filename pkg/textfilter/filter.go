package textfilter

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/emerald-altar/pkg/directive"
)

// replacements maps profanity to milder words for family ratings.
var replacements = map[string]string{
	"fuck":         "fudge",
	"motherfucker": "mother-trucker",
	"shit":         "shoot",
	"bullshit":     "baloney",
	"damn":         "dang",
	"goddamn":      "gosh-dang",
	"hell":         "heck",
	"ass":          "butt",
	"asshole":      "jerk",
	"bitch":        "jerk",
	"bastard":      "scoundrel",
	"crap":         "crud",
	"piss":         "pester",
	"dick":         "jerk",
	"prick":        "jerk",
	"whore":        "[censored]",
	"slut":         "[censored]",
}

// ProfanityFilter replaces profanity with milder words, keeping the
// original's capitalization.
type ProfanityFilter struct {
	words   []string
	regexes map[string]*regexp.Regexp
}

func NewProfanityFilter() *ProfanityFilter {
	pf := &ProfanityFilter{regexes: make(map[string]*regexp.Regexp, len(replacements))}
	for word := range replacements {
		pf.words = append(pf.words, word)
		pf.regexes[word] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `(s|es)?\b`)
	}
	// Longer words first so "bullshit" is not rewritten as "bullshoot".
	sort.Slice(pf.words, func(i, j int) bool {
		if len(pf.words[i]) != len(pf.words[j]) {
			return len(pf.words[i]) > len(pf.words[j])
		}
		return pf.words[i] < pf.words[j]
	})
	return pf
}

func (pf *ProfanityFilter) FilterText(text string) string {
	result := text
	for _, word := range pf.words {
		replacement := replacements[word]
		result = pf.regexes[word].ReplaceAllStringFunc(result, func(match string) string {
			stem, suffix := match[:len(word)], match[len(word):]
			return preserveCase(stem, replacement) + suffix
		})
	}
	return result
}

func (pf *ProfanityFilter) ContainsProfanity(text string) bool {
	for _, word := range pf.words {
		if pf.regexes[word].MatchString(text) {
			return true
		}
	}
	return false
}

// preserveCase applies the case pattern of original to replacement.
func preserveCase(original, replacement string) string {
	if original == "" {
		return replacement
	}
	if strings.ToUpper(original) == original {
		return strings.ToUpper(replacement)
	}
	if strings.ToLower(original) == original {
		return strings.ToLower(replacement)
	}
	title := cases.Title(language.English)
	if title.String(strings.ToLower(original)) == original {
		return title.String(replacement)
	}

	orig := []rune(original)
	out := make([]rune, 0, len(replacement))
	for i, r := range []rune(replacement) {
		if i < len(orig) && unicode.IsUpper(orig[i]) {
			out = append(out, unicode.ToUpper(r))
		} else {
			out = append(out, unicode.ToLower(r))
		}
	}
	return string(out)
}

// ShouldFilterContent reports whether a content rating calls for the
// profanity filter.
func ShouldFilterContent(rating string) bool {
	switch strings.ToUpper(strings.TrimSpace(rating)) {
	case "G", "PG", "PG13", "PG-13":
		return true
	default:
		return false
	}
}

// Sanitizer prepares narrator text for players: no tag syntax ever reaches
// them, and family ratings get the profanity filter.
type Sanitizer struct {
	profanity *ProfanityFilter
}

// NewSanitizer builds a sanitizer for a content rating.
func NewSanitizer(rating string) *Sanitizer {
	s := &Sanitizer{}
	if ShouldFilterContent(rating) {
		s.profanity = NewProfanityFilter()
	}
	return s
}

// Clean returns text safe to show and any tag-shaped spans it removed.
func (s *Sanitizer) Clean(text string) (string, []string) {
	cleaned, removed := directive.Scrub(text)
	if s.profanity != nil && s.profanity.ContainsProfanity(cleaned) {
		cleaned = s.profanity.FilterText(cleaned)
	}
	return cleaned, removed
}
