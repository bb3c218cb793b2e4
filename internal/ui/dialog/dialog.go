// Package dialog renders modal confirmations over the current screen.
package dialog

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/supadmin/internal/i18n"
	appmsg "github.com/sadopc/supadmin/internal/msg"
	"github.com/sadopc/supadmin/internal/theme"
)

// Button is one choice in a dialog. A nil Action just closes it.
type Button struct {
	Label  string
	Action func() tea.Msg
}

// Model is a modal dialog.
type Model struct {
	title    string
	body     string
	buttons  []Button
	active   int
	visible  bool
	width    int
	height   int
	maxWidth int
}

// New creates a hidden dialog.
func New(title, body string, buttons ...Button) Model {
	return Model{
		title:    title,
		body:     body,
		buttons:  buttons,
		maxWidth: 60,
	}
}

// ConfirmDelete builds the delete confirmation for one row. Cancel is the
// first button so a stray enter keeps the row.
func ConfirmDelete(lang, table, id string) Model {
	t := i18n.For(lang)
	body := fmt.Sprintf("%s\n\n%s: %s  %s", t("confirmDelete"), table, id, t("cannotBeUndone"))
	return New(t("deleteRecord"), body,
		Button{Label: t("cancel")},
		Button{Label: t("delete"), Action: func() tea.Msg {
			return appmsg.DeleteRequestMsg{Table: table, ID: id}
		}},
	)
}

func (m Model) Init() tea.Cmd { return nil }

// Update handles navigation between buttons.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.visible {
		return m, nil
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "left", "shift+tab", "h":
		if m.active > 0 {
			m.active--
		}
	case "right", "tab", "l":
		if m.active < len(m.buttons)-1 {
			m.active++
		}
	case "y":
		// y picks the last button, which is the confirming one.
		if n := len(m.buttons); n > 0 {
			m.active = n - 1
			return m.press()
		}
	case "n", "esc":
		m.visible = false
	case "enter":
		return m.press()
	}
	return m, nil
}

func (m Model) press() (Model, tea.Cmd) {
	m.visible = false
	if m.active < len(m.buttons) && m.buttons[m.active].Action != nil {
		return m, m.buttons[m.active].Action
	}
	return m, nil
}

// View renders the dialog box.
func (m Model) View() string {
	if !m.visible {
		return ""
	}
	th := theme.Current
	inner := m.maxWidth - 4

	body := lipgloss.NewStyle().Width(inner).Render(m.body)

	btns := make([]string, 0, len(m.buttons))
	for i, b := range m.buttons {
		style := th.DialogButton
		if i == m.active {
			style = th.DialogButtonActive
		}
		btns = append(btns, style.Render(b.Label))
	}
	row := lipgloss.NewStyle().Width(inner).Align(lipgloss.Center).
		Render(lipgloss.JoinHorizontal(lipgloss.Center, btns...))

	return th.DialogBorder.Render(lipgloss.JoinVertical(lipgloss.Left,
		th.DialogTitle.Render(m.title), "", body, "", row))
}

// Show makes the dialog visible with the first button selected.
func (m *Model) Show() {
	m.visible = true
	m.active = 0
}

func (m *Model) Hide() { m.visible = false }

func (m Model) Visible() bool { return m.visible }

// SetSize sets the area the dialog is centered in.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.maxWidth > width-4 && width > 8 {
		m.maxWidth = width - 4
	}
}

// Overlay draws the dialog centered over background.
func (m Model) Overlay(background string) string {
	if !m.visible {
		return background
	}
	box := m.View()
	bg := strings.Split(background, "\n")
	lines := strings.Split(box, "\n")

	startY := max((len(bg)-len(lines))/2, 0)
	startX := max((m.width-lipgloss.Width(box))/2, 0)

	for i, line := range lines {
		y := startY + i
		if y >= len(bg) {
			break
		}
		runes := []rune(bg[y])
		var prefix string
		if startX < len(runes) {
			prefix = string(runes[:startX])
		} else {
			prefix = bg[y] + strings.Repeat(" ", startX-len(runes))
		}
		suffix := ""
		if end := startX + lipgloss.Width(line); end < len(runes) {
			suffix = string(runes[end:])
		}
		bg[y] = prefix + line + suffix
	}
	return strings.Join(bg, "\n")
}
