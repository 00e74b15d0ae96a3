// Package render turns match results into Reddit markdown.
package render

import (
	"fmt"
	"strings"

	"anrbot/internal/catalog"
	"anrbot/internal/matcher"
	"anrbot/internal/tags"
)

// MaxCards is the most cards listed for a single tag.
const MaxCards = 10

// DefaultCardPage is the NetrunnerDB page for a card code.
const DefaultCardPage = "https://netrunnerdb.com/en/card/" + catalog.CodePlaceholder

const bullet = "\n\n * "

// Resolver is the part of the matcher the renderer needs.
type Resolver interface {
	Resolve(tag string) matcher.Result
}

// Renderer formats replies. The zero value links cards to NetrunnerDB.
type Renderer struct {
	CardPage string
}

// Card renders one card as an image link followed by a link to its page.
func (r Renderer) Card(c catalog.Card) string {
	return fmt.Sprintf("[%s](%s) - [NetrunnerDB](%s)", c.Title, c.ImageURL, r.PageURL(c))
}

// PageURL is the card's page on the card database.
func (r Renderer) PageURL(c catalog.Card) string {
	page := r.CardPage
	if page == "" {
		page = DefaultCardPage
	}
	return strings.ReplaceAll(page, catalog.CodePlaceholder, c.Code)
}

// Tag renders the reply paragraph for one tag.
func (r Renderer) Tag(tag string, res matcher.Result) string {
	apology := fmt.Sprintf("I couldn't find [[%s]]. I'm really sorry. ", tag)

	switch {
	case len(res.Cards) == 0:
		return apology
	case res.Suggested:
		return apology + "Did you mean:" + r.list(res.Cards)
	case len(res.Cards) == 1:
		return r.Card(res.Cards[0])
	case len(res.Cards) <= MaxCards:
		return fmt.Sprintf("I found several matches for [[%s]]!", tag) + r.list(res.Cards)
	default:
		return fmt.Sprintf("I found %d matches for [[%s]]! Here are the first %d:", len(res.Cards), tag, MaxCards) +
			r.list(res.Cards[:MaxCards])
	}
}

func (r Renderer) list(cards []catalog.Card) string {
	var b strings.Builder
	for _, c := range cards {
		b.WriteString(bullet)
		b.WriteString(r.Card(c))
	}
	return b.String()
}

// Message renders every tag in text, in order, separated by blank lines.
// Text without tags renders to "", which means no reply.
func (r Renderer) Message(text string, resolver Resolver) string {
	found := tags.Extract(text)
	if len(found) == 0 {
		return ""
	}
	parts := make([]string, 0, len(found))
	for _, tag := range found {
		parts = append(parts, r.Tag(tag, resolver.Resolve(tag)))
	}
	return strings.Join(parts, "\n\n")
}
