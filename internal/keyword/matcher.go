// Package keyword matches article text against the active keyword set.
// matcher.go builds an Aho-Corasick automaton so one pass over the text finds
// every keyword, however many are configured.
package keyword

import (
	"sort"
	"strings"
	"sync"

	ahocorasick "github.com/cloudflare/ahocorasick"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/user/harvest-service/internal/entity"
)

// Matcher is built once per run from the keywords active at run start.
type Matcher struct {
	mu       sync.Mutex
	matcher  *ahocorasick.Matcher
	patterns []string
	ids      map[string][]string // normalized text -> keyword ids
}

// NewMatcher builds a matcher from the active keywords in kws. Inactive and
// blank keywords are ignored.
func NewMatcher(kws []entity.Keyword) *Matcher {
	m := &Matcher{ids: make(map[string][]string)}
	for _, kw := range kws {
		if !kw.IsActive {
			continue
		}
		text := Normalize(kw.Text)
		if text == "" {
			continue
		}
		if _, seen := m.ids[text]; !seen {
			m.patterns = append(m.patterns, text)
		}
		m.ids[text] = append(m.ids[text], kw.ID)
	}
	if len(m.patterns) > 0 {
		m.matcher = ahocorasick.NewStringMatcher(m.patterns)
	}
	return m
}

// Len is the number of distinct keyword texts in the automaton.
func (m *Matcher) Len() int {
	return len(m.patterns)
}

// Match returns the sorted ids of every keyword found in title or body.
// The result is nil when nothing matches.
func (m *Matcher) Match(title, body string) []string {
	if m.matcher == nil {
		return nil
	}
	text := Normalize(title + " " + body)

	m.mu.Lock()
	hits := m.matcher.Match([]byte(text))
	m.mu.Unlock()

	if len(hits) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(hits))
	for _, idx := range hits {
		if idx < 0 || idx >= len(m.patterns) {
			continue
		}
		for _, id := range m.ids[m.patterns[idx]] {
			set[id] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Normalize lowercases and trims s and folds Unicode compatibility forms, so
// stored keyword text and article text compare byte for byte.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	return strings.TrimSpace(cases.Lower(language.Und).String(s))
}
