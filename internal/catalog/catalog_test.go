package catalog

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleDataset = `{
  "imageUrlTemplate": "https://card-images.netrunnerdb.com/v1/large/{code}.jpg",
  "data": [
    {"title": "Sure Gamble", "code": "01050"},
    {"title": "Sure Gamble", "code": "21050"},
    {"title": "Noise: Hacker Extraordinaire", "code": "01001"},
    {"title": "Déjà Vu", "code": "01002", "image_url": "https://example.test/dejavu.png"}
  ]
}`

func TestParse(t *testing.T) {
	c, err := Parse(strings.NewReader(sampleDataset))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if c.Len() != 4 {
		t.Errorf("Len() = %d, want 4", c.Len())
	}

	wantTitles := []string{"Déjà Vu", "Noise: Hacker Extraordinaire", "Sure Gamble"}
	if diff := cmp.Diff(wantTitles, c.Titles()); diff != "" {
		t.Errorf("Titles() mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_ReprintCollapse(t *testing.T) {
	c, err := New("", []Record{
		{Title: "Sure Gamble", Code: "01001"},
		{Title: "Sure Gamble", Code: "21001"},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	card, ok := c.Lookup("suregamble")
	if !ok {
		t.Fatal("expected suregamble in index")
	}
	if card.Code != "21001" {
		t.Errorf("canonical code = %q, want 21001", card.Code)
	}

	// Dataset order does not matter.
	c, err = New("", []Record{
		{Title: "Sure Gamble", Code: "21001"},
		{Title: "Sure Gamble", Code: "01001"},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if card, _ := c.Lookup("suregamble"); card.Code != "21001" {
		t.Errorf("canonical code = %q, want 21001", card.Code)
	}
}

func TestNew_SameKeyDifferentTitles(t *testing.T) {
	// Both normalize to "corrodedcorridor"; the greater display title wins
	// before set ordinal is consulted.
	c, err := New("", []Record{
		{Title: "corroded corridor", Code: "01001"},
		{Title: "Corroded Corridor", Code: "25001"},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	card, _ := c.Lookup("corrodedcorridor")
	if card.Title != "corroded corridor" {
		t.Errorf("canonical title = %q, want %q", card.Title, "corroded corridor")
	}
}

func TestNew_ImageURL(t *testing.T) {
	c, err := Parse(strings.NewReader(sampleDataset))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	tests := []struct {
		key  string
		want string
	}{
		{"suregamble", "https://card-images.netrunnerdb.com/v1/large/21050.jpg"},
		{"dejavu", "https://example.test/dejavu.png"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			card, ok := c.Lookup(tt.key)
			if !ok {
				t.Fatalf("Lookup(%q) missed", tt.key)
			}
			if card.ImageURL != tt.want {
				t.Errorf("ImageURL = %q, want %q", card.ImageURL, tt.want)
			}
		})
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		records []Record
		wantErr []string
	}{
		{
			name:    "missing title",
			records: []Record{{Code: "01001"}},
			wantErr: []string{"missing title"},
		},
		{
			name:    "missing code",
			records: []Record{{Title: "Sure Gamble"}},
			wantErr: []string{"missing code"},
		},
		{
			name:    "short code",
			records: []Record{{Title: "Sure Gamble", Code: "1"}},
			wantErr: []string{"no set ordinal"},
		},
		{
			name: "all problems reported",
			records: []Record{
				{Title: "Good", Code: "01001"},
				{Title: "  ", Code: "01002"},
				{Title: "No Code", Code: ""},
			},
			wantErr: []string{"record 1", "record 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("", tt.records)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not mention %q", err, want)
				}
			}
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "<html>"},
		{"no data array", `{"imageUrlTemplate": "x"}`},
		{"wrong shape", `{"data": {"title": "x"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestSetOrdinal(t *testing.T) {
	if got := (Card{Code: "21001"}).SetOrdinal(); got != "21" {
		t.Errorf("SetOrdinal() = %q, want 21", got)
	}
}
