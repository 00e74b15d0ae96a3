package main

import (
	"fmt"
	"strings"

	"anrbot/internal/catalog"
	"anrbot/internal/matcher"
	"anrbot/internal/render"

	textinput "github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/browser"
)

type lookupStyles struct {
	header   lipgloss.Style
	selected lipgloss.Style
	muted    lipgloss.Style
	help     lipgloss.Style
	notice   lipgloss.Style
	preview  lipgloss.Style
}

func newLookupStyles() lookupStyles {
	return lookupStyles{
		header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")),
		muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		help:     lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		notice:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		preview:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1),
	}
}

type lookupModel struct {
	resolver render.Resolver
	renderer render.Renderer
	input    textinput.Model
	tag      string
	result   matcher.Result
	cursor   int
	width    int
	status   string
	styles   lookupStyles

	openURL func(string) error
}

func initialLookupModel(resolver render.Resolver, renderer render.Renderer) lookupModel {
	ti := textinput.New()
	ti.Placeholder = "card name, nickname or fragment..."
	ti.CharLimit = 256
	ti.Prompt = "[[ "
	ti.Focus()

	return lookupModel{
		resolver: resolver,
		renderer: renderer,
		input:    ti,
		styles:   newLookupStyles(),
		openURL:  browser.OpenURL,
	}
}

func (m lookupModel) Init() tea.Cmd { return textinput.Blink }

// shown is the slice of result cards the list displays.
func (m lookupModel) shown() []catalog.Card {
	cards := m.result.Cards
	if len(cards) > render.MaxCards {
		cards = cards[:render.MaxCards]
	}
	return cards
}

func (m lookupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			return m, tea.Quit
		case "enter":
			m.tag = strings.TrimSpace(m.input.Value())
			m.result = m.resolver.Resolve(m.tag)
			m.cursor = 0
			m.status = ""
			return m, nil
		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "ctrl+n":
			if m.cursor < len(m.shown())-1 {
				m.cursor++
			}
			return m, nil
		case "ctrl+o":
			cards := m.shown()
			if len(cards) == 0 {
				m.status = "Nothing selected"
				return m, nil
			}
			url := m.renderer.PageURL(cards[m.cursor])
			if err := m.openURL(url); err != nil {
				m.status = fmt.Sprintf("Could not open browser: %v", err)
			} else {
				m.status = "Opened " + url
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m lookupModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.header.Render("anrbot card lookup"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if m.tag != "" || len(m.result.Cards) > 0 {
		cards := m.shown()
		switch {
		case len(cards) == 0:
			b.WriteString(m.styles.notice.Render(fmt.Sprintf("No match for [[%s]]", m.tag)))
			b.WriteString("\n")
		case m.result.Suggested:
			b.WriteString(m.styles.notice.Render("No match. Closest titles:"))
			b.WriteString("\n")
		case len(m.result.Cards) > len(cards):
			b.WriteString(m.styles.muted.Render(fmt.Sprintf("%d matches, showing the first %d", len(m.result.Cards), len(cards))))
			b.WriteString("\n")
		}

		for i, c := range cards {
			line := fmt.Sprintf("%s (%s)", c.Title, c.Code)
			if i == m.cursor {
				b.WriteString(m.styles.selected.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}

		b.WriteString("\n")
		b.WriteString(m.styles.muted.Render("Reply preview:"))
		b.WriteString("\n")
		preview := m.renderer.Tag(m.tag, m.result)
		if m.width > 4 {
			b.WriteString(m.styles.preview.Width(m.width - 4).Render(preview))
		} else {
			b.WriteString(m.styles.preview.Render(preview))
		}
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.muted.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.styles.help.Render(clip("(enter resolve • ↑/↓ select • ctrl+o open card page • esc quit)", m.width)))
	return b.String()
}

// StartLookup runs the interactive lookup until the user quits.
func StartLookup(resolver render.Resolver, renderer render.Renderer) error {
	p := tea.NewProgram(initialLookupModel(resolver, renderer))
	_, err := p.Run()
	return err
}

func clip(s string, w int) string {
	r := []rune(s)
	if w <= 0 || len(r) <= w {
		return s
	}
	if w <= 3 {
		return string(r[:w])
	}
	return string(r[:w-3]) + "..."
}
