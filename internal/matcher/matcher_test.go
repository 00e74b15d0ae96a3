package matcher

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"anrbot/internal/catalog"
	"anrbot/internal/tags"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New("https://img.test/{code}.png", []catalog.Record{
		{Title: "Sure Gamble", Code: "01050"},
		{Title: "Sure Gamble", Code: "21050"},
		{Title: "Sure Gamble Redux", Code: "30001"},
		{Title: "Noise: Hacker Extraordinaire", Code: "01001"},
		{Title: "Corroder", Code: "01007"},
		{Title: "Crypsis", Code: "01051"},
	})
	if err != nil {
		t.Fatalf("catalog.New failed: %v", err)
	}
	return c
}

func codes(cards []catalog.Card) []string {
	var out []string
	for _, c := range cards {
		out = append(out, c.Code)
	}
	return out
}

func TestResolve(t *testing.T) {
	m := New(testCatalog(t), tags.Abbreviations{"smc": "corroder"}, DefaultSuggestOptions())

	tests := []struct {
		name          string
		tag           string
		wantCodes     []string
		wantSuggested bool
	}{
		{
			name:      "exact match short-circuits substring search",
			tag:       "Sure Gamble",
			wantCodes: []string{"21050"},
		},
		{
			name:      "exact match ignores case, punctuation and plural",
			tag:       "sure-gambles!",
			wantCodes: []string{"21050"},
		},
		{
			name:      "substring search collapses reprints",
			tag:       "gamble",
			wantCodes: []string{"30001", "21050"},
		},
		{
			name:      "substring hit on a longer title",
			tag:       "noise",
			wantCodes: []string{"01001"},
		},
		{
			name:          "misspelling falls back to suggestions",
			tag:           "corrodr",
			wantCodes:     []string{"01007"},
			wantSuggested: true,
		},
		{
			name:      "common word gets no suggestions",
			tag:       "sorry",
			wantCodes: nil,
		},
		{
			name:      "abbreviation substitutes before lookup",
			tag:       "SMC",
			wantCodes: []string{"01007"},
		},
		{
			name:      "nothing close",
			tag:       "qqqq",
			wantCodes: nil,
		},
		{
			name:      "punctuation-only tag",
			tag:       "!!!",
			wantCodes: nil,
		},
		{
			name:      "empty tag",
			tag:       "",
			wantCodes: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Resolve(tt.tag)
			if diff := cmp.Diff(tt.wantCodes, codes(got.Cards)); diff != "" {
				t.Errorf("Resolve(%q) codes mismatch (-want +got):\n%s", tt.tag, diff)
			}
			if got.Suggested != tt.wantSuggested {
				t.Errorf("Resolve(%q).Suggested = %v, want %v", tt.tag, got.Suggested, tt.wantSuggested)
			}
		})
	}
}

func TestResolve_ExactMatchReturnsCanonicalCard(t *testing.T) {
	m := New(testCatalog(t), nil, DefaultSuggestOptions())

	got := m.Resolve("Sure Gamble")
	want := []catalog.Card{{
		Title:           "Sure Gamble",
		Code:            "21050",
		ImageURL:        "https://img.test/21050.png",
		NormalizedTitle: "suregamble",
	}}
	if diff := cmp.Diff(want, got.Cards); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_SubstringOrder(t *testing.T) {
	c, err := catalog.New("", []catalog.Record{
		{Title: "Alpha Gamble", Code: "01001"},
		{Title: "Gamble Zeta", Code: "02001"},
		{Title: "Alpha Gamble", Code: "05001"},
		{Title: "Mid Gamble", Code: "03001"},
	})
	if err != nil {
		t.Fatal(err)
	}
	m := New(c, nil, DefaultSuggestOptions())

	got := m.Resolve("gambl")
	want := []string{"03001", "02001", "05001"}
	if diff := cmp.Diff(want, codes(got.Cards)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestSuggest(t *testing.T) {
	m := New(testCatalog(t), nil, DefaultSuggestOptions())

	got := m.Suggest("corrodr")
	if len(got) != 1 || got[0].Title != "Corroder" {
		t.Fatalf("Suggest(corrodr) = %+v, want only Corroder", got)
	}
	// 7 of 8 and 7 characters match: 14/15.
	if got[0].Score < 0.93 || got[0].Score > 0.94 {
		t.Errorf("Suggest(corrodr) score = %.3f, want 0.933", got[0].Score)
	}

	if got := m.Suggest(""); got != nil {
		t.Errorf("Suggest(\"\") = %+v, want nil", got)
	}
}

func TestSuggest_CommonWords(t *testing.T) {
	c, err := catalog.New("", []catalog.Record{
		{Title: "Archer", Code: "01101"},
		{Title: "Corroder", Code: "01007"},
		{Title: "Hedge Fund", Code: "01110"},
		{Title: "Hemorrhage", Code: "02014"},
		{Title: "Hostile Takeover", Code: "01094"},
		{Title: "Magnum Opus", Code: "01044"},
		{Title: "Mimic", Code: "01008"},
		{Title: "Scorched Earth", Code: "01099"},
		{Title: "Snare!", Code: "01070"},
		{Title: "Gordian Blade", Code: "01043"},
	})
	if err != nil {
		t.Fatal(err)
	}
	m := New(c, nil, DefaultSuggestOptions())

	for _, word := range []string{"hello", "the", "sorry", "mom"} {
		if got := m.Suggest(word); len(got) != 0 {
			t.Errorf("Suggest(%q) = %+v, want none", word, got)
		}
		if got := m.Resolve(word); len(got.Cards) != 0 || got.Suggested {
			t.Errorf("Resolve(%q) = %+v, want empty", word, got)
		}
	}

	got := m.Resolve("gordan blade")
	if diff := cmp.Diff([]string{"01043"}, codes(got.Cards)); diff != "" || !got.Suggested {
		t.Errorf("Resolve(gordan blade) = %+v, want suggested Gordian Blade", got)
	}
}

func TestSuggest_LimitAndOrder(t *testing.T) {
	c, err := catalog.New("", []catalog.Record{
		{Title: "Corroder", Code: "01007"},
		{Title: "Corrode", Code: "09001"},
		{Title: "Corroded", Code: "09002"},
		{Title: "Corrosive", Code: "09003"},
	})
	if err != nil {
		t.Fatal(err)
	}
	m := New(c, nil, SuggestOptions{Limit: 2, MinSimilarity: 0.6})

	var titles []string
	for _, s := range m.Suggest("corrodr") {
		titles = append(titles, s.Title)
	}
	if diff := cmp.Diff([]string{"Corroder", "Corrode"}, titles); diff != "" {
		t.Errorf("Suggest(corrodr) mismatch (-want +got):\n%s", diff)
	}
}

func TestSuggest_EditDistance(t *testing.T) {
	m := New(testCatalog(t), nil, SuggestOptions{Limit: 1, MinSimilarity: 0.8, Algorithm: Levenshtein})

	got := m.Suggest("corrodr")
	if len(got) != 1 || got[0].Title != "Corroder" {
		t.Fatalf("Suggest(corrodr) = %+v, want Corroder", got)
	}
	// One insertion over eight characters.
	if got[0].Score != 0.875 {
		t.Errorf("score = %v, want 0.875", got[0].Score)
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		name    string
		want    Algorithm
		wantErr bool
	}{
		{"", Ratio, false},
		{"ratio", Ratio, false},
		{"jaro-winkler", JaroWinkler, false},
		{"Levenshtein", Levenshtein, false},
		{"lcs", Lcs, false},
		{"soundex", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAlgorithm(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseAlgorithm(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestAlgorithmNames(t *testing.T) {
	want := []string{"ratio", "jaro", "jaro-winkler", "lcs", "levenshtein", "sorensen-dice"}
	if diff := cmp.Diff(want, AlgorithmNames()); diff != "" {
		t.Errorf("AlgorithmNames() mismatch (-want +got):\n%s", diff)
	}
}
