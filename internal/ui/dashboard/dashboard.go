// Package dashboard renders the overview page: summary cards, record
// counts per table and recent activity.
package dashboard

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/sadopc/supadmin/internal/admin"
	"github.com/sadopc/supadmin/internal/history"
	"github.com/sadopc/supadmin/internal/i18n"
	appmsg "github.com/sadopc/supadmin/internal/msg"
	"github.com/sadopc/supadmin/internal/schema"
	"github.com/sadopc/supadmin/internal/theme"
)

const (
	maxBars     = 8
	maxActivity = 8
)

// Model is the dashboard page.
type Model struct {
	stats    *admin.Stats
	activity []history.Entry
	err      error
	loading  bool

	// bars is the records-by-table list, largest first.
	bars   []schema.TableInfo
	cursor int

	displayName func(string) string
	lang        string
	width       int
	height      int
	focused     bool
}

func New() Model {
	return Model{lang: i18n.Fallback, loading: true}
}

func (m Model) Init() tea.Cmd { return nil }

// Update takes the loaded stats and lets the user open a table from the
// records-by-table list.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case appmsg.StatsLoadedMsg:
		m.loading = false
		m.err = nil
		m.stats = msg.Stats
		m.activity = msg.Activity
		m.bars = topTables(msg.Stats, maxBars)
		if m.cursor >= len(m.bars) {
			m.cursor = max(len(m.bars)-1, 0)
		}

	case appmsg.StatsErrMsg:
		m.loading = false
		m.err = msg.Err

	case tea.KeyMsg:
		if !m.focused {
			return m, nil
		}
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.bars)-1 {
				m.cursor++
			}
		case "enter":
			if m.cursor < len(m.bars) {
				table := m.bars[m.cursor].Name
				return m, func() tea.Msg {
					return appmsg.NavigateMsg{Screen: appmsg.ScreenTableView, Table: table}
				}
			}
		case "r":
			m.loading = true
			return m, func() tea.Msg { return appmsg.RefreshMsg{} }
		}
	}
	return m, nil
}

func topTables(st *admin.Stats, n int) []schema.TableInfo {
	if st == nil {
		return nil
	}
	out := make([]schema.TableInfo, len(st.Tables))
	copy(out, st.Tables)
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordCount > out[j].RecordCount })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// View renders the page.
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}
	th := theme.Current
	t := i18n.For(m.lang)

	title := th.PageTitle.Render(t("dashboard"))
	switch {
	case m.err != nil:
		return lipgloss.JoinVertical(lipgloss.Left, title, th.ErrorText.Render(m.err.Error()))
	case m.stats == nil:
		return lipgloss.JoinVertical(lipgloss.Left, title, th.MutedText.Render(t("loading")))
	}

	cardW := max((m.width-8)/4, 16)
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		m.card(t("totalTables"), humanize.Comma(int64(m.stats.TotalTables)), cardW),
		m.card(t("totalRecords"), humanize.Comma(m.stats.TotalRecords), cardW),
		m.card(t("storageUsed"), m.storageText(), cardW),
		m.card(t("lastActivity"), m.lastActivityText(), cardW),
	)

	halfW := max(m.width/2-2, 20)
	lower := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(halfW).Render(m.barsView(halfW)),
		"  ",
		lipgloss.NewStyle().Width(halfW).Render(m.activityView(halfW)),
	)
	return lipgloss.JoinVertical(lipgloss.Left, title, cards, "", lower)
}

func (m Model) card(label, value string, width int) string {
	th := theme.Current
	return th.Card.Width(width).Render(th.CardTitle.Render(label) + "\n" + th.CardValue.Render(value))
}

func (m Model) storageText() string {
	if !m.stats.StorageKnown {
		return i18n.T(m.lang, "notAvailable")
	}
	return humanize.Bytes(uint64(max(m.stats.StorageUsed, 0)))
}

func (m Model) lastActivityText() string {
	if m.stats.LastUpdated.IsZero() {
		return i18n.T(m.lang, "never")
	}
	return humanize.Time(m.stats.LastUpdated)
}

func (m Model) barsView(width int) string {
	th := theme.Current
	t := i18n.For(m.lang)
	lines := []string{th.CardTitle.Bold(true).Render(t("recordsByTable"))}
	if len(m.bars) == 0 {
		return strings.Join(append(lines, th.MutedText.Render(t("noTablesFound"))), "\n")
	}

	var peak int64
	for _, b := range m.bars {
		peak = max(peak, b.RecordCount)
	}
	nameW := min(20, width/3)
	countW := 8
	barW := max(width-nameW-countW-4, 4)

	for i, b := range m.bars {
		name := b.Name
		if m.displayName != nil {
			name = m.displayName(b.Name)
		}
		name = runewidth.FillRight(runewidth.Truncate(name, nameW, "…"), nameW)
		filled := 0
		if peak > 0 && b.RecordCount > 0 {
			filled = max(int(int64(barW)*b.RecordCount/peak), 1)
		}
		count := fmt.Sprintf("%*s", countW, humanize.Comma(max(b.RecordCount, 0)))
		line := name + " " + th.Bar.Render(strings.Repeat("█", filled)) +
			strings.Repeat(" ", barW-filled) + count
		if m.focused && i == m.cursor {
			line = th.SidebarSelected.Render(name) + line[len(name):]
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) activityView(width int) string {
	th := theme.Current
	t := i18n.For(m.lang)
	lines := []string{th.CardTitle.Bold(true).Render(t("recentActivity"))}
	if len(m.activity) == 0 {
		return strings.Join(append(lines, th.MutedText.Render(t("noActivity"))), "\n")
	}
	for i, e := range m.activity {
		if i == maxActivity {
			break
		}
		text := ActivityLabel(m.lang, e)
		when := humanize.Time(e.CreatedAt)
		text = runewidth.Truncate(text, max(width-runewidth.StringWidth(when)-2, 8), "…")
		lines = append(lines, text+"  "+th.MutedText.Render(when))
	}
	return strings.Join(lines, "\n")
}

// ActivityLabel describes one history entry in lang.
func ActivityLabel(lang string, e history.Entry) string {
	t := i18n.For(lang)
	switch e.Action {
	case history.ActionCreate:
		return fmt.Sprintf("%s: %s #%s", t("newRecordCreated"), e.Table, e.RecordID)
	case history.ActionUpdate:
		return fmt.Sprintf("%s: %s #%s", t("recordsUpdated"), e.Table, e.RecordID)
	case history.ActionDelete:
		return fmt.Sprintf("%s: %s #%s", t("recordsDeleted"), e.Table, e.RecordID)
	case history.ActionConnect:
		return fmt.Sprintf("%s %s", t("connected"), e.Detail)
	case history.ActionDisconnect:
		return fmt.Sprintf("%s %s", t("disconnected"), e.Detail)
	}
	return string(e.Action)
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) SetLanguage(lang string) { m.lang = lang }

func (m *Model) SetDisplayName(fn func(string) string) { m.displayName = fn }

func (m *Model) SetLoading(on bool) { m.loading = on }

func (m Model) Loading() bool { return m.loading }

func (m *Model) Focus() { m.focused = true }

func (m *Model) Blur() { m.focused = false }
