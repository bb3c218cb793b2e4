// Package sidebar is the navigation pane: the fixed pages followed by the
// visible tables under their display names.
package sidebar

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/sadopc/supadmin/internal/i18n"
	appmsg "github.com/sadopc/supadmin/internal/msg"
	"github.com/sadopc/supadmin/internal/schema"
	"github.com/sadopc/supadmin/internal/theme"
)

// useSimpleIcons avoids emoji inside Neovim's terminal, whose libvterm
// measures them wrong.
var useSimpleIcons = os.Getenv("NVIM") != ""

// EntryKind tells navigation entries from tables.
type EntryKind int

const (
	EntryNav EntryKind = iota
	EntryTable
)

// Entry is one selectable line.
type Entry struct {
	Kind   EntryKind
	Screen appmsg.Screen
	Table  string
	Label  string
	Count  int64
}

// Model is the sidebar.
type Model struct {
	entries []Entry
	cursor  int
	offset  int
	width   int
	height  int
	focused bool
	loading bool
	lang    string
}

func New() Model {
	m := Model{lang: i18n.Fallback}
	m.entries = m.navEntries()
	return m
}

func (m Model) navEntries() []Entry {
	t := i18n.For(m.lang)
	return []Entry{
		{Kind: EntryNav, Screen: appmsg.ScreenDashboard, Label: t("dashboard")},
		{Kind: EntryNav, Screen: appmsg.ScreenTables, Label: t("tables")},
		{Kind: EntryNav, Screen: appmsg.ScreenSettings, Label: t("settings")},
	}
}

func (m Model) Init() tea.Cmd { return nil }

// Update handles cursor movement and selection while focused.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || !m.focused {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.ensureVisible()
		}
	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
			m.ensureVisible()
		}
	case "home", "g":
		m.cursor, m.offset = 0, 0
	case "end", "G":
		m.cursor = len(m.entries) - 1
		m.ensureVisible()
	case "enter", "right", "l":
		return m, m.selectCmd()
	}
	return m, nil
}

func (m Model) selectCmd() tea.Cmd {
	if m.cursor < 0 || m.cursor >= len(m.entries) {
		return nil
	}
	e := m.entries[m.cursor]
	if e.Kind == EntryTable {
		return func() tea.Msg {
			return appmsg.NavigateMsg{Screen: appmsg.ScreenTableView, Table: e.Table}
		}
	}
	return func() tea.Msg { return appmsg.NavigateMsg{Screen: e.Screen} }
}

// SetTables replaces the table entries. tables must already exclude
// hidden ones; displayName maps a table to its label.
func (m *Model) SetTables(tables []schema.TableInfo, displayName func(string) string) {
	entries := m.navEntries()
	for _, tb := range tables {
		label := tb.Name
		if displayName != nil {
			label = displayName(tb.Name)
		}
		entries = append(entries, Entry{Kind: EntryTable, Table: tb.Name, Label: label, Count: tb.RecordCount})
	}
	m.entries = entries
	m.loading = false
	if m.cursor >= len(m.entries) {
		m.cursor = len(m.entries) - 1
	}
	m.ensureVisible()
}

// SetLanguage relabels the navigation entries.
func (m *Model) SetLanguage(lang string) {
	m.lang = lang
	nav := m.navEntries()
	copy(m.entries, nav)
}

// Select moves the cursor to the entry for screen (and table, for the
// table view) if it exists.
func (m *Model) Select(screen appmsg.Screen, table string) {
	for i, e := range m.entries {
		if (e.Kind == EntryTable && screen == appmsg.ScreenTableView && e.Table == table) ||
			(e.Kind == EntryNav && e.Screen == screen) {
			m.cursor = i
			m.ensureVisible()
			return
		}
	}
}

// View renders the sidebar.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	th := theme.Current
	innerW := max(m.width-2, 1)
	innerH := max(m.height-2, 1)

	titleStyle := th.SidebarTitle
	if m.focused {
		titleStyle = titleStyle.Underline(true)
	}
	title := titleStyle.Width(innerW).Render("supadmin")

	contentH := max(innerH-1, 1)
	end := min(m.offset+contentH, len(m.entries))

	lines := make([]string, 0, contentH)
	for i := m.offset; i < end; i++ {
		lines = append(lines, m.renderEntry(m.entries[i], i == m.cursor, innerW, th))
	}
	if m.loading {
		lines = append(lines, th.MutedText.Render("  "+i18n.T(m.lang, "loading")))
	}
	return m.borderStyle().Width(innerW).Height(innerH).Render(title + "\n" + strings.Join(lines, "\n"))
}

func (m Model) renderEntry(e Entry, selected bool, width int, th *theme.Theme) string {
	var icon string
	switch {
	case e.Kind == EntryTable && useSimpleIcons:
		icon = "  ◆ "
	case e.Kind == EntryTable:
		icon = "  📊 "
	case useSimpleIcons:
		icon = "■ "
	default:
		icon = navIcon(e.Screen)
	}

	count := ""
	if e.Kind == EntryTable && e.Count >= 0 {
		count = " " + humanize.Comma(e.Count)
	}
	labelW := max(width-runewidth.StringWidth(icon)-runewidth.StringWidth(count)-1, 1)
	label := runewidth.FillRight(runewidth.Truncate(e.Label, labelW, "…"), labelW)
	line := icon + label

	if selected {
		return th.SidebarSelected.Render(line + count + " ")
	}
	style := th.SidebarNav
	if e.Kind == EntryTable {
		style = th.SidebarTable
	}
	return style.Render(line) + th.SidebarCount.Render(count+" ")
}

func navIcon(s appmsg.Screen) string {
	switch s {
	case appmsg.ScreenDashboard:
		return "🏠 "
	case appmsg.ScreenSettings:
		return "⚙ "
	default:
		return "🗂 "
	}
}

func (m Model) borderStyle() lipgloss.Style {
	if m.focused {
		return theme.Current.FocusedBorder
	}
	return theme.Current.UnfocusedBorder
}

func (m *Model) ensureVisible() {
	contentH := max(m.height-3, 1)
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+contentH {
		m.offset = m.cursor - contentH + 1
	}
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) Focus()             { m.focused = true }
func (m *Model) Blur()              { m.focused = false }
func (m Model) Focused() bool       { return m.focused }
func (m *Model) SetLoading(on bool) { m.loading = on }

// Entries returns the current entries.
func (m Model) Entries() []Entry { return m.entries }

// Selected returns the entry under the cursor.
func (m Model) Selected() (Entry, bool) {
	if m.cursor < 0 || m.cursor >= len(m.entries) {
		return Entry{}, false
	}
	return m.entries[m.cursor], true
}

func (e Entry) String() string {
	if e.Kind == EntryTable {
		return fmt.Sprintf("table:%s", e.Table)
	}
	return e.Screen.String()
}
