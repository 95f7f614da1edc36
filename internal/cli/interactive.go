package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/apresai/podcraft/internal/llm"
	"github.com/apresai/podcraft/internal/script"
	"github.com/apresai/podcraft/internal/tts"
)

// menuItem represents a single configurable option in the TUI.
type menuItem struct {
	label   string
	value   string
	options []menuOption // empty for free text
	hint    string
	editing bool
	cursor  int // cursor within options when editing
}

type menuOption struct {
	label string
	value string
}

// menuState tracks which phase the TUI is in.
type menuState int

const (
	stateMenu menuState = iota
	stateEditing
)

// tuiModel is the Bubble Tea model for the setup wizard.
type tuiModel struct {
	items     []menuItem
	cursor    int
	state     menuState
	err       error
	confirmed bool
	cancelled bool
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)

	menuLabelStyle = lipgloss.NewStyle().
			Width(12).
			Align(lipgloss.Right).
			MarginRight(2)

	menuValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	menuValueDimStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#555555")).
				Italic(true)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	optionStyle = lipgloss.NewStyle().
			PaddingLeft(4)

	selectedOptionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#04B575")).
				Bold(true).
				PaddingLeft(2)

	buttonStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 3)

	buttonDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555")).
			Padding(0, 3)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)
)

const (
	idxFiles = iota
	idxURL
	idxQuestion
	idxTone
	idxLength
	idxLanguage
	idxLLM
	idxTTS
	idxGenerate
)

func kindOptions(kinds []string) []menuOption {
	opts := []menuOption{{label: "(config default)", value: ""}}
	for _, k := range kinds {
		opts = append(opts, menuOption{label: k, value: k})
	}
	return opts
}

func buildMenuItems() []menuItem {
	var langs []menuOption
	for _, name := range script.LanguageNames() {
		langs = append(langs, menuOption{label: name, value: name})
	}

	items := []menuItem{
		idxFiles:    {label: "Files", value: strings.Join(flagFiles, ", "), hint: "(comma-separated paths)"},
		idxURL:      {label: "URL", value: flagURL, hint: "(optional web page)"},
		idxQuestion: {label: "Question", value: flagQuestion, hint: "(optional focus)"},
		idxTone: {label: "Tone", value: flagTone, options: []menuOption{
			{label: "Fun", value: "fun"},
			{label: "Formal", value: "formal"},
		}},
		idxLength: {label: "Length", value: flagLength, options: []menuOption{
			{label: "Short (host only, 1-3 min)", value: "short"},
			{label: "Medium (3-5 min)", value: "medium"},
			{label: "Long (15-20 min)", value: "long"},
		}},
		idxLanguage: {label: "Language", value: flagLanguage, options: langs},
		idxLLM:      {label: "Script", value: flagLLM, options: kindOptions(llm.Kinds())},
		idxTTS:      {label: "Speech", value: flagTTS, options: kindOptions(tts.Kinds())},
		idxGenerate: {label: ">>> Generate <<<"},
	}

	for i := range items {
		for j, opt := range items[i].options {
			if opt.value == items[i].value {
				items[i].cursor = j
				break
			}
		}
	}
	return items
}

func initialTUIModel() tuiModel {
	return tuiModel{items: buildMenuItems(), state: stateMenu}
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) isTextInput(idx int) bool {
	return idx == idxFiles || idx == idxURL || idx == idxQuestion
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch m.state {
		case stateMenu:
			return m.updateMenu(msg)
		case stateEditing:
			return m.updateEditing(msg)
		}
	}
	return m, nil
}

func (m tuiModel) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.cancelled = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}

	case "enter", " ":
		if m.cursor == idxGenerate {
			if strings.TrimSpace(m.items[idxFiles].value) == "" && strings.TrimSpace(m.items[idxURL].value) == "" {
				m.err = fmt.Errorf("enter at least one file or a URL")
				return m, nil
			}
			m.confirmed = true
			return m, tea.Quit
		}
		m.state = stateEditing
		m.items[m.cursor].editing = true
		m.err = nil
	}
	return m, nil
}

func (m tuiModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	item := &m.items[m.cursor]

	if m.isTextInput(m.cursor) {
		switch msg.String() {
		case "enter":
			item.editing = false
			m.state = stateMenu
			m.cursor++
		case "esc":
			item.editing = false
			m.state = stateMenu
		case "backspace":
			if r := []rune(item.value); len(r) > 0 {
				item.value = string(r[:len(r)-1])
			}
		case "ctrl+u":
			item.value = ""
		default:
			switch msg.Type {
			case tea.KeyRunes:
				item.value += string(msg.Runes)
			case tea.KeySpace:
				item.value += " "
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "enter", " ":
		if item.cursor >= 0 && item.cursor < len(item.options) {
			item.value = item.options[item.cursor].value
		}
		item.editing = false
		m.state = stateMenu
		m.cursor++

	case "esc":
		item.editing = false
		m.state = stateMenu

	case "up", "k":
		if item.cursor > 0 {
			item.cursor--
		}

	case "down", "j":
		if item.cursor < len(item.options)-1 {
			item.cursor++
		}
	}
	return m, nil
}

func (m tuiModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("podcraft"))
	b.WriteString("\n")

	for i, item := range m.items {
		isActive := m.cursor == i

		if i == idxGenerate {
			b.WriteString("\n")
			if isActive {
				b.WriteString("  " + buttonStyle.Render(" Generate "))
			} else {
				b.WriteString("  " + buttonDimStyle.Render(" Generate "))
			}
			b.WriteString("\n")
			continue
		}

		cursor := "  "
		if isActive {
			cursor = cursorStyle.Render("> ")
		}

		var value string
		switch {
		case item.editing && m.isTextInput(i):
			value = menuValueStyle.Render(item.value + "_")
		case item.value == "" && len(item.options) > 0:
			value = menuValueDimStyle.Render(item.options[0].label)
		case item.value == "":
			value = menuValueDimStyle.Render(item.hint)
		default:
			display := item.value
			for _, opt := range item.options {
				if opt.value == item.value {
					display = opt.label
					break
				}
			}
			value = menuValueStyle.Render(display)
		}

		b.WriteString(cursor + menuLabelStyle.Render(item.label) + " " + value + "\n")

		if item.editing && len(item.options) > 0 {
			for j, opt := range item.options {
				if j == item.cursor {
					b.WriteString(selectedOptionStyle.Render("> "+opt.label) + "\n")
				} else {
					b.WriteString(optionStyle.Render("  "+opt.label) + "\n")
				}
			}
		}
	}

	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render("  Error: "+m.err.Error()) + "\n")
	}

	switch m.state {
	case stateMenu:
		b.WriteString(helpStyle.Render("  j/k or arrows to navigate | enter to edit | q to quit"))
	case stateEditing:
		if m.isTextInput(m.cursor) {
			b.WriteString(helpStyle.Render("  type value | enter to confirm | esc to cancel | ctrl+u to clear"))
		} else {
			b.WriteString(helpStyle.Render("  j/k or arrows to pick | enter to select | esc to cancel"))
		}
	}
	b.WriteString("\n")

	return b.String()
}

// apply copies the wizard's selections into the generate flags.
func (m tuiModel) apply() {
	flagFiles = nil
	for _, f := range strings.Split(m.items[idxFiles].value, ",") {
		if f = strings.TrimSpace(f); f != "" {
			flagFiles = append(flagFiles, f)
		}
	}
	flagURL = strings.TrimSpace(m.items[idxURL].value)
	flagQuestion = m.items[idxQuestion].value
	flagTone = m.items[idxTone].value
	flagLength = m.items[idxLength].value
	flagLanguage = m.items[idxLanguage].value
	flagLLM = m.items[idxLLM].value
	flagTTS = m.items[idxTTS].value
}

func runInteractiveSetup() error {
	p := tea.NewProgram(initialTUIModel(), tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tuiModel)
	if final.cancelled || !final.confirmed {
		return fmt.Errorf("cancelled")
	}
	final.apply()
	return nil
}
