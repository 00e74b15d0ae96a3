// Package matcher resolves a tag to the catalog cards it names.
package matcher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/pmezard/go-difflib/difflib"

	"anrbot/internal/catalog"
	"anrbot/internal/logger"
	"anrbot/internal/normalize"
	"anrbot/internal/tags"
)

// Result is the outcome of resolving one tag. Suggested is set when the
// cards did not match the tag itself but are near-misses offered instead.
type Result struct {
	Cards     []catalog.Card
	Suggested bool
}

// SuggestOptions controls the near-miss fallback.
type SuggestOptions struct {
	Limit         int
	MinSimilarity float32
	Algorithm     Algorithm
}

// DefaultSuggestOptions offers at most three titles whose matching-block
// ratio against the key is at least 0.6.
func DefaultSuggestOptions() SuggestOptions {
	return SuggestOptions{
		Limit:         3,
		MinSimilarity: 0.6,
		Algorithm:     Ratio,
	}
}

// Algorithm names a title similarity measure scoring in [0, 1].
type Algorithm string

const (
	// Ratio is twice the number of characters in matching blocks over the
	// combined length of both strings.
	Ratio        Algorithm = "ratio"
	JaroWinkler  Algorithm = "jaro-winkler"
	Jaro         Algorithm = "jaro"
	Levenshtein  Algorithm = "levenshtein"
	Lcs          Algorithm = "lcs"
	SorensenDice Algorithm = "sorensen-dice"
)

var edlibAlgorithms = map[Algorithm]edlib.Algorithm{
	JaroWinkler:  edlib.JaroWinkler,
	Jaro:         edlib.Jaro,
	Levenshtein:  edlib.Levenshtein,
	Lcs:          edlib.Lcs,
	SorensenDice: edlib.SorensenDice,
}

// ParseAlgorithm maps a configuration name to a similarity algorithm. An
// empty name selects Ratio.
func ParseAlgorithm(name string) (Algorithm, error) {
	if name == "" {
		return Ratio, nil
	}
	algo := Algorithm(strings.ToLower(name))
	if algo == Ratio {
		return algo, nil
	}
	if _, ok := edlibAlgorithms[algo]; !ok {
		return "", fmt.Errorf("unknown similarity algorithm %q (valid: %s)", name, strings.Join(AlgorithmNames(), ", "))
	}
	return algo, nil
}

// AlgorithmNames lists the accepted configuration names, default first.
func AlgorithmNames() []string {
	names := make([]string, 0, len(edlibAlgorithms))
	for algo := range edlibAlgorithms {
		names = append(names, string(algo))
	}
	sort.Strings(names)
	return append([]string{string(Ratio)}, names...)
}

// Suggestion is a catalog title close to an unmatched key.
type Suggestion struct {
	Title string
	Score float32
}

type candidate struct {
	title string
	key   string
	chars []string
}

// Matcher is read-only once built and may be shared.
type Matcher struct {
	catalog       *catalog.Catalog
	abbreviations tags.Abbreviations
	opts          SuggestOptions
	candidates    []candidate
}

// New builds a matcher over c. abbr may be nil.
func New(c *catalog.Catalog, abbr tags.Abbreviations, opts SuggestOptions) *Matcher {
	defaults := DefaultSuggestOptions()
	if opts.Limit <= 0 {
		opts.Limit = defaults.Limit
	}
	if opts.MinSimilarity <= 0 {
		opts.MinSimilarity = defaults.MinSimilarity
	}
	if opts.Algorithm == "" {
		opts.Algorithm = defaults.Algorithm
	}

	titles := c.Titles()
	candidates := make([]candidate, 0, len(titles))
	for _, title := range titles {
		key := normalize.Key(title)
		candidates = append(candidates, candidate{title: title, key: key, chars: chars(key)})
	}

	return &Matcher{
		catalog:       c,
		abbreviations: abbr,
		opts:          opts,
		candidates:    candidates,
	}
}

// Resolve looks tag up by exact key, then by substring, then falls back to
// suggestions. A tag that normalizes to nothing resolves to nothing.
func (m *Matcher) Resolve(tag string) Result {
	key := m.key(tag)
	if key == "" {
		return Result{}
	}

	if cards := m.search(key); len(cards) > 0 {
		return Result{Cards: cards}
	}

	suggestions := m.Suggest(key)
	if len(suggestions) == 0 {
		return Result{}
	}

	var cards []catalog.Card
	seen := make(map[string]bool)
	for _, s := range suggestions {
		logger.Debug("suggesting %q for %q (score %.3f)", s.Title, key, s.Score)
		for _, card := range m.search(m.key(s.Title)) {
			if seen[card.Code] {
				continue
			}
			seen[card.Code] = true
			cards = append(cards, card)
		}
	}
	return Result{Cards: cards, Suggested: len(cards) > 0}
}

func (m *Matcher) key(text string) string {
	return m.abbreviations.Expand(normalize.Key(text))
}

// search is exact lookup followed by substring search, with no suggestions.
func (m *Matcher) search(key string) []catalog.Card {
	if key == "" {
		return nil
	}
	if card, ok := m.catalog.Lookup(key); ok {
		return []catalog.Card{card}
	}

	var hits []catalog.Card
	for _, card := range m.catalog.Cards() {
		if strings.Contains(card.NormalizedTitle, key) {
			hits = append(hits, card)
		}
	}
	if len(hits) == 0 {
		return nil
	}

	// Newest printing first within a title, titles in reverse order.
	sort.SliceStable(hits, func(i, j int) bool {
		return catalog.Less(hits[j], hits[i])
	})

	out := hits[:0]
	for _, card := range hits {
		if len(out) > 0 && out[len(out)-1].Title == card.Title {
			continue
		}
		out = append(out, card)
	}
	return out
}

// Suggest scores every distinct catalog title against key and returns the
// best ones at or above the similarity floor, highest first.
func (m *Matcher) Suggest(key string) []Suggestion {
	if key == "" {
		return nil
	}

	var seq *difflib.SequenceMatcher
	if m.opts.Algorithm == Ratio {
		seq = difflib.NewMatcher(nil, chars(key))
	}

	var scored []Suggestion
	for _, c := range m.candidates {
		var score float32
		if seq != nil {
			seq.SetSeq1(c.chars)
			score = float32(seq.Ratio())
		} else {
			var err error
			score, err = edlib.StringsSimilarity(key, c.key, edlibAlgorithms[m.opts.Algorithm])
			if err != nil {
				logger.Debug("similarity %q/%q: %v", key, c.key, err)
				continue
			}
		}
		if score >= m.opts.MinSimilarity {
			scored = append(scored, Suggestion{Title: c.title, Score: score})
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Title > scored[j].Title
	})

	if len(scored) > m.opts.Limit {
		scored = scored[:m.opts.Limit]
	}
	return scored
}

// chars splits s into one element per rune for sequence matching.
func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
