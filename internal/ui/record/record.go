// Package record shows one row with Details, JSON and History tabs.
package record

import (
	"encoding/json"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/sadopc/supadmin/internal/backend"
	"github.com/sadopc/supadmin/internal/export"
	"github.com/sadopc/supadmin/internal/history"
	"github.com/sadopc/supadmin/internal/i18n"
	appmsg "github.com/sadopc/supadmin/internal/msg"
	"github.com/sadopc/supadmin/internal/schema"
	"github.com/sadopc/supadmin/internal/theme"
)

// Tab is one of the detail tabs.
type Tab int

const (
	TabDetails Tab = iota
	TabJSON
	TabHistory
	tabCount
)

func (t Tab) key() string {
	switch t {
	case TabJSON:
		return "json"
	case TabHistory:
		return "history"
	}
	return "details"
}

// Model is the record page.
type Model struct {
	table   string
	id      string
	row     backend.Row
	fields  []schema.TableField
	history []history.Entry

	tab     Tab
	scroll  int
	loading bool
	err     error

	hl      *Highlighter
	lang    string
	width   int
	height  int
	focused bool
}

func New() Model {
	return Model{hl: NewHighlighter(), lang: i18n.Fallback}
}

func (m Model) Init() tea.Cmd { return nil }

// Open resets the page for table/id while the app loads it.
func (m *Model) Open(table, id string) {
	m.table, m.id = table, id
	m.row, m.fields, m.history = nil, nil, nil
	m.tab = TabDetails
	m.scroll = 0
	m.loading = true
	m.err = nil
}

// Update takes load results and handles tab and row keys.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case appmsg.RecordLoadedMsg:
		if msg.Table != m.table || msg.ID != m.id {
			return m, nil
		}
		m.loading = false
		m.err = nil
		m.row, m.fields, m.history = msg.Row, msg.Fields, msg.History

	case appmsg.RecordErrMsg:
		if msg.Table != m.table || msg.ID != m.id {
			return m, nil
		}
		m.loading = false
		m.err = msg.Err

	case tea.KeyMsg:
		if !m.focused {
			return m, nil
		}
		switch msg.String() {
		case "right", "l", "]":
			m.setTab((m.tab + 1) % tabCount)
		case "left", "h", "[":
			m.setTab((m.tab + tabCount - 1) % tabCount)
		case "1", "2", "3":
			m.setTab(Tab(msg.String()[0] - '1'))
		case "down", "j":
			m.scroll = min(m.scroll+1, max(len(m.bodyLines())-m.bodyHeight(), 0))
		case "up", "k":
			m.scroll = max(m.scroll-1, 0)
		case "e":
			if m.row != nil {
				req := appmsg.OpenFormMsg{Mode: appmsg.FormEdit, Table: m.table, ID: m.id, Fields: m.fields, Row: m.row}
				return m, func() tea.Msg { return req }
			}
		case "d", "delete":
			if m.row != nil {
				req := appmsg.ConfirmDeleteMsg{Table: m.table, ID: m.id}
				return m, func() tea.Msg { return req }
			}
		case "r":
			m.loading = true
			return m, func() tea.Msg { return appmsg.RefreshMsg{} }
		case "esc", "backspace":
			return m, func() tea.Msg { return appmsg.BackMsg{} }
		}
	}
	return m, nil
}

func (m *Model) setTab(t Tab) {
	m.tab = t
	m.scroll = 0
}

// View renders the title, tab strip and the active tab.
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}
	th := theme.Current
	t := i18n.For(m.lang)

	title := th.PageTitle.Render(fmt.Sprintf("%s #%s", m.table, m.id))

	var body string
	switch {
	case m.err != nil:
		body = th.ErrorText.Render(m.err.Error())
	case m.loading:
		body = th.MutedText.Render(t("loading"))
	default:
		lines := m.bodyLines()
		end := min(m.scroll+m.bodyHeight(), len(lines))
		body = strings.Join(lines[min(m.scroll, end):end], "\n")
	}
	hints := th.MutedText.Render("←/→ " + t("tabs") + "  e " + t("edit") + "  d " + t("delete") + "  esc " + t("back"))
	return lipgloss.JoinVertical(lipgloss.Left, title, m.tabBar(), "", body, "", hints)
}

func (m Model) tabBar() string {
	th := theme.Current
	parts := make([]string, 0, tabCount)
	for tb := Tab(0); tb < tabCount; tb++ {
		label := i18n.T(m.lang, tb.key())
		if tb == TabHistory && len(m.history) > 0 {
			label = fmt.Sprintf("%s (%d)", label, len(m.history))
		}
		if tb == m.tab {
			parts = append(parts, th.TabActive.Render(label))
		} else {
			parts = append(parts, th.TabInactive.Render(label))
		}
	}
	return th.TabBar.Render(lipgloss.JoinHorizontal(lipgloss.Top, parts...))
}

func (m Model) bodyHeight() int { return max(m.height-7, 1) }

func (m Model) bodyLines() []string {
	var s string
	switch m.tab {
	case TabJSON:
		s = m.jsonView()
	case TabHistory:
		s = m.historyView()
	default:
		s = m.detailsView()
	}
	return strings.Split(s, "\n")
}

func (m Model) detailsView() string {
	th := theme.Current
	t := i18n.For(m.lang)
	cols := export.Columns(m.fields, []backend.Row{m.row})

	labelW := 0
	for _, c := range cols {
		labelW = max(labelW, runewidth.StringWidth(c))
	}
	labelW = min(labelW, 30)
	valueW := max(m.width-labelW-4, 10)

	lines := make([]string, 0, len(cols)*2)
	for _, c := range cols {
		label := th.FieldLabel.Render(runewidth.FillRight(runewidth.Truncate(c, labelW, "…"), labelW))
		v, present := m.row[c]
		var value string
		if !present || v == nil || export.Value(v) == "" {
			value = th.MutedText.Render(t("emptyValue"))
		} else {
			value = runewidth.Truncate(strings.ReplaceAll(export.Value(v), "\n", " "), valueW, "…")
		}
		lines = append(lines, label+"  "+value)

		if f, ok := schema.FieldByName(m.fields, c); ok {
			meta := f.Type
			if f.IsPrimaryKey {
				meta += ", " + t("primaryKey")
			}
			if f.Required {
				meta += ", " + t("required")
			}
			lines = append(lines, strings.Repeat(" ", labelW+2)+th.FieldHint.Render(meta))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) jsonView() string {
	data, err := json.MarshalIndent(m.row, "", "  ")
	if err != nil {
		return theme.Current.ErrorText.Render(err.Error())
	}
	return m.hl.Highlight(string(data), theme.Current)
}

func (m Model) historyView() string {
	th := theme.Current
	t := i18n.For(m.lang)
	if len(m.history) == 0 {
		return th.MutedText.Render(t("noHistory"))
	}
	lines := make([]string, 0, len(m.history))
	for _, e := range m.history {
		line := th.MutedText.Render(e.CreatedAt.Local().Format("2006-01-02 15:04:05")) + "  " + actionLabel(m.lang, e.Action)
		if e.Detail != "" {
			line += "  " + th.FieldHint.Render(e.Detail)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func actionLabel(lang string, a history.Action) string {
	switch a {
	case history.ActionCreate:
		return i18n.T(lang, "created")
	case history.ActionUpdate:
		return i18n.T(lang, "updated")
	case history.ActionDelete:
		return i18n.T(lang, "deleted")
	}
	return string(a)
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) SetLanguage(lang string) { m.lang = lang }

func (m *Model) Focus() { m.focused = true }

func (m *Model) Blur() { m.focused = false }

func (m Model) Table() string { return m.table }

func (m Model) ID() string { return m.id }

func (m Model) Tab() Tab { return m.tab }
