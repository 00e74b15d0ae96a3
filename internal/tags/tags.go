// Package tags finds [[...]] card tags in user text and parses the
// abbreviation list kept on the subreddit wiki.
package tags

import (
	"regexp"
	"strings"

	"anrbot/internal/normalize"
)

var tagPattern = regexp.MustCompile(`\[\[(.*?)\]\]`)

// Extract returns the contents of every [[tag]] in text, in order of
// appearance. Tags are returned verbatim; an empty [[]] yields "".
func Extract(text string) []string {
	matches := tagPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// Abbreviations maps a normalized nickname to the normalized key it stands for.
type Abbreviations map[string]string

// ParseAbbreviations reads [[key=value]] entries. Both sides are normalized;
// tags without "=" or with an empty side are ignored. Later entries win.
func ParseAbbreviations(text string) Abbreviations {
	abbr := make(Abbreviations)
	for _, tag := range Extract(text) {
		key, value, ok := strings.Cut(tag, "=")
		if !ok {
			continue
		}
		key, value = normalize.Key(key), normalize.Key(value)
		if key == "" || value == "" {
			continue
		}
		abbr[key] = value
	}
	return abbr
}

// Expand returns the target of key, or key itself when it is not an
// abbreviation.
func (a Abbreviations) Expand(key string) string {
	if target, ok := a[key]; ok {
		return target
	}
	return key
}
