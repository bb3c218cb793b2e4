// Package tablelist is the Tables page: one card per visible table with
// a fuzzy search over names and display names.
package tablelist

import (
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"github.com/sadopc/supadmin/internal/i18n"
	appmsg "github.com/sadopc/supadmin/internal/msg"
	"github.com/sadopc/supadmin/internal/schema"
	"github.com/sadopc/supadmin/internal/theme"
)

// item is a table with its display label.
type item struct {
	info  schema.TableInfo
	label string
}

// items implements fuzzy.Source over "label name" so both match.
type items []item

func (s items) String(i int) string {
	if s[i].label == s[i].info.Name {
		return s[i].label
	}
	return s[i].label + " " + s[i].info.Name
}

func (s items) Len() int { return len(s) }

// Model is the table list page.
type Model struct {
	all      items
	shown    items
	search   textinput.Model
	cursor   int
	offset   int
	loading  bool
	err      error
	lang     string
	width    int
	height   int
	focused  bool
	filterOn bool
}

func New() Model {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.CharLimit = 64
	return Model{search: ti, lang: i18n.Fallback, loading: true}
}

func (m Model) Init() tea.Cmd { return nil }

// SetTables replaces the listing. tables must already exclude hidden ones.
func (m *Model) SetTables(tables []schema.TableInfo, displayName func(string) string) {
	all := make(items, 0, len(tables))
	for _, tb := range tables {
		label := tb.Name
		if displayName != nil {
			label = displayName(tb.Name)
		}
		all = append(all, item{info: tb, label: label})
	}
	sort.SliceStable(all, func(i, j int) bool {
		return strings.ToLower(all[i].label) < strings.ToLower(all[j].label)
	})
	m.all = all
	m.loading = false
	m.err = nil
	m.applyFilter()
}

// SetError shows a listing failure.
func (m *Model) SetError(err error) {
	m.loading = false
	m.err = err
}

func (m *Model) applyFilter() {
	q := strings.TrimSpace(m.search.Value())
	if q == "" {
		m.shown = m.all
	} else {
		matches := fuzzy.FindFrom(q, m.all)
		out := make(items, 0, len(matches))
		for _, mt := range matches {
			out = append(out, m.all[mt.Index])
		}
		m.shown = out
	}
	if m.cursor >= len(m.shown) {
		m.cursor = max(len(m.shown)-1, 0)
	}
	m.ensureVisible()
}

// Update handles search input and selection.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || !m.focused {
		return m, nil
	}

	if m.filterOn {
		switch key.String() {
		case "esc":
			m.filterOn = false
			m.search.Blur()
			m.search.SetValue("")
			m.applyFilter()
			return m, nil
		case "enter", "down", "up":
			m.filterOn = false
			m.search.Blur()
			if key.String() == "enter" {
				return m, m.openSelected()
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.applyFilter()
		return m, cmd
	}

	switch key.String() {
	case "/":
		m.filterOn = true
		focusCmd := m.search.Focus()
		return m, focusCmd
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.ensureVisible()
		}
	case "down", "j":
		if m.cursor < len(m.shown)-1 {
			m.cursor++
			m.ensureVisible()
		}
	case "enter":
		return m, m.openSelected()
	case "esc":
		if m.search.Value() != "" {
			m.search.SetValue("")
			m.applyFilter()
		}
	case "r":
		m.loading = true
		return m, func() tea.Msg { return appmsg.RefreshMsg{} }
	}
	return m, nil
}

func (m Model) openSelected() tea.Cmd {
	if m.cursor >= len(m.shown) {
		return nil
	}
	table := m.shown[m.cursor].info.Name
	return func() tea.Msg {
		return appmsg.NavigateMsg{Screen: appmsg.ScreenTableView, Table: table}
	}
}

func (m *Model) ensureVisible() {
	rows := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
}

// visibleRows is how many cards fit: each card is three lines tall.
func (m Model) visibleRows() int {
	return max((m.height-4)/3, 1)
}

// View renders the page.
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}
	th := theme.Current
	t := i18n.For(m.lang)

	header := th.PageTitle.Render(t("tables"))
	searchLine := th.MutedText.Render("/ " + t("search"))
	if m.filterOn || m.search.Value() != "" {
		searchLine = m.search.View()
	}

	var body string
	switch {
	case m.err != nil:
		body = th.ErrorText.Render(m.err.Error())
	case m.loading:
		body = th.MutedText.Render(t("loading"))
	case len(m.shown) == 0:
		body = th.GridEmpty.Render(t("noTablesFound"))
	default:
		end := min(m.offset+m.visibleRows(), len(m.shown))
		cards := make([]string, 0, end-m.offset)
		for i := m.offset; i < end; i++ {
			cards = append(cards, m.card(m.shown[i], i == m.cursor))
		}
		body = lipgloss.JoinVertical(lipgloss.Left, cards...)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, searchLine, body)
}

func (m Model) card(it item, selected bool) string {
	th := theme.Current
	w := max(m.width-4, 20)

	title := it.label
	if it.label != it.info.Name {
		title += " " + th.MutedText.Render("("+it.info.Name+")")
	}
	count := th.SidebarCount.Render(humanize.Comma(max(it.info.RecordCount, 0)) + " " + i18n.T(m.lang, "recordsCount"))
	line := th.CardValue.Render(title)
	if gap := w - lipgloss.Width(line) - lipgloss.Width(count) - 2; gap > 0 {
		line += strings.Repeat(" ", gap) + count
	} else {
		line += "  " + count
	}
	desc := it.info.Description
	if desc != "" {
		line += "\n" + th.CardTitle.Render(runewidth.Truncate(desc, w-2, "…"))
	}

	style := th.Card
	if selected && m.focused {
		style = th.CardFocus
	}
	return style.Width(w).Render(line)
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.search.Width = max(width-6, 10)
	m.ensureVisible()
}

func (m *Model) SetLanguage(lang string) { m.lang = lang }

func (m *Model) SetLoading(on bool) { m.loading = on }

func (m *Model) Focus() { m.focused = true }

func (m *Model) Blur() {
	m.focused = false
	m.filterOn = false
	m.search.Blur()
}

// Filtering reports whether the search box has the keyboard.
func (m Model) Filtering() bool { return m.filterOn }

// Shown returns the names of the tables currently listed.
func (m Model) Shown() []string {
	out := make([]string, len(m.shown))
	for i, it := range m.shown {
		out[i] = it.info.Name
	}
	return out
}
