package usercfg

import (
	"os"
	"path/filepath"

	"anrbot/internal/catalog"
	"anrbot/internal/render"
)

// DefaultFooter is appended to every reply.
const DefaultFooter = "\n\n*****\nI am Clanky, the ANRBot. [Source](https://github.com/carlsondc/anrbot)\n"

func getDefaults() Config {
	return Config{
		SchemaVersion:     CurrentSchemaVersion,
		StateDir:          DefaultStateDir(),
		CatalogURL:        catalog.DefaultURL,
		CardPageTemplate:  render.DefaultCardPage,
		Footer:            DefaultFooter,
		AbbreviationsPage: "abbreviations",
		StatusPage:        "status",
		Reddit: RedditConfig{
			RequestsPerMinute: 60,
		},
		Reply: ReplyConfig{
			Backoff: "30s",
		},
		Suggest: SuggestConfig{
			Limit:         3,
			MinSimilarity: 0.6,
			Algorithm:     "ratio",
		},
	}
}

// DefaultStateDir holds the watermark files and the cached card data.
func DefaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "anrbot")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".local", "state", "anrbot")
}
