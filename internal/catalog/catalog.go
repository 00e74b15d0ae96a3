package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"anrbot/internal/normalize"
)

// CodePlaceholder is substituted with a card's code in image URL templates.
const CodePlaceholder = "{code}"

// Card is one printing of a card. Reprints share a Title but never a Code.
type Card struct {
	Title           string
	Code            string
	ImageURL        string
	NormalizedTitle string
}

// SetOrdinal returns the two-character release-set prefix of the card code.
func (c Card) SetOrdinal() string {
	if len(c.Code) < 2 {
		return c.Code
	}
	return c.Code[:2]
}

// Record is a raw card entry as delivered by the catalog source.
type Record struct {
	Title    string `json:"title"`
	Code     string `json:"code"`
	ImageURL string `json:"image_url,omitempty"`
}

// Dataset is the document served by the catalog source.
type Dataset struct {
	ImageURLTemplate string   `json:"imageUrlTemplate"`
	Data             []Record `json:"data"`
}

// Catalog indexes every printing by normalized title. It is never mutated
// after construction; a refresh builds a new one.
type Catalog struct {
	cards  []Card
	index  map[string]Card
	titles []string
}

// Parse decodes and validates a dataset and builds its catalog.
func Parse(r io.Reader) (*Catalog, error) {
	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if ds.Data == nil {
		return nil, fmt.Errorf("decode catalog: missing data array")
	}
	return New(ds.ImageURLTemplate, ds.Data)
}

// New builds a catalog from raw records. Records missing a title or a code
// (or with a code too short to carry a set ordinal) fail the whole build.
func New(imageTemplate string, records []Record) (*Catalog, error) {
	var problems []error
	cards := make([]Card, 0, len(records))

	for i, rec := range records {
		title := strings.TrimSpace(rec.Title)
		code := strings.TrimSpace(rec.Code)
		switch {
		case title == "":
			problems = append(problems, fmt.Errorf("record %d (code %q): missing title", i, code))
			continue
		case code == "":
			problems = append(problems, fmt.Errorf("record %d (%q): missing code", i, title))
			continue
		case len(code) < 2:
			problems = append(problems, fmt.Errorf("record %d (%q): code %q has no set ordinal", i, title, code))
			continue
		}

		imageURL := rec.ImageURL
		if imageURL == "" && imageTemplate != "" {
			imageURL = strings.ReplaceAll(imageTemplate, CodePlaceholder, code)
		}

		cards = append(cards, Card{
			Title:           title,
			Code:            code,
			ImageURL:        imageURL,
			NormalizedTitle: normalize.Key(title),
		})
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid catalog records: %w", errors.Join(problems...))
	}

	return build(cards), nil
}

func build(cards []Card) *Catalog {
	c := &Catalog{
		cards: cards,
		index: make(map[string]Card, len(cards)),
	}

	seenTitles := make(map[string]bool)
	for _, card := range cards {
		if cur, ok := c.index[card.NormalizedTitle]; !ok || Less(cur, card) {
			c.index[card.NormalizedTitle] = card
		}
		if !seenTitles[card.Title] {
			seenTitles[card.Title] = true
			c.titles = append(c.titles, card.Title)
		}
	}
	sort.Strings(c.titles)

	return c
}

// Less orders cards by display title, then by release-set ordinal. The
// greatest card under this order is the canonical printing of a title.
func Less(a, b Card) bool {
	if a.Title != b.Title {
		return a.Title < b.Title
	}
	return a.SetOrdinal() < b.SetOrdinal()
}

// Lookup returns the canonical card for an exact normalized title.
func (c *Catalog) Lookup(key string) (Card, bool) {
	card, ok := c.index[key]
	return card, ok
}

// Cards returns every printing in dataset order.
func (c *Catalog) Cards() []Card {
	return c.cards
}

// Titles returns the distinct display titles in ascending order.
func (c *Catalog) Titles() []string {
	return c.titles
}

// Len reports the number of printings.
func (c *Catalog) Len() int {
	return len(c.cards)
}
