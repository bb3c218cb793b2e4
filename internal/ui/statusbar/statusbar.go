// Package statusbar renders the bottom line: connection host, a transient
// notification and the active language and settings storage.
package statusbar

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/sadopc/supadmin/internal/i18n"
	appmsg "github.com/sadopc/supadmin/internal/msg"
	"github.com/sadopc/supadmin/internal/theme"
)

// ClearAfter is how long a notification stays visible.
const ClearAfter = 5 * time.Second

// ClearStatusMsg reverts the bar to key hints.
type ClearStatusMsg struct {
	Seq int
}

// Model is the status bar.
type Model struct {
	width       int
	host        string
	lang        string
	storageType string
	message     string
	isError     bool
	seq         int
}

func New() Model {
	return Model{lang: i18n.Fallback, storageType: "local"}
}

func (m Model) Init() tea.Cmd { return nil }

// Update handles status messages. Each notification schedules its own
// clear so an older timer cannot wipe a newer message.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case appmsg.ConnectedMsg:
		m.host = msg.Host
		return m.notify(i18n.T(m.lang, "connected")+" "+msg.Host, false)

	case appmsg.DisconnectedMsg:
		m.host = ""
		return m.notify(i18n.T(m.lang, "disconnected"), false)

	case appmsg.StatusMsg:
		return m.notify(msg.Text, msg.IsError)

	case ClearStatusMsg:
		if msg.Seq == m.seq {
			m.message = ""
			m.isError = false
		}
	}
	return m, nil
}

func (m Model) notify(text string, isError bool) (Model, tea.Cmd) {
	m.seq++
	m.message = text
	m.isError = isError
	seq := m.seq
	return m, tea.Tick(ClearAfter, func(time.Time) tea.Msg {
		return ClearStatusMsg{Seq: seq}
	})
}

// View renders the bar.
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}
	th := theme.Current
	t := i18n.For(m.lang)

	var left string
	if m.host != "" {
		left = th.StatusBarKey.Render(m.host)
	} else {
		left = th.StatusBarKey.Render(t("notConnected"))
	}

	var center string
	switch {
	case m.message != "" && m.isError:
		center = th.StatusBarError.Render(" " + runewidth.Truncate(m.message, m.width/2, "...") + " ")
	case m.message != "":
		center = th.StatusBarSuccess.Render(" " + runewidth.Truncate(m.message, m.width/2, "...") + " ")
	default:
		center = hint(th, "Ctrl+Q", t("quit")) +
			hint(th, "Tab", t("switchPane")) +
			hint(th, "?", t("help"))
	}

	right := th.StatusBarKey.Render(strings.ToUpper(m.lang)) +
		th.StatusBarValue.Render(" "+t(storageKey(m.storageType))+" ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(center) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	bar := left +
		th.StatusBar.Render(strings.Repeat(" ", gap/2)) +
		center +
		th.StatusBar.Render(strings.Repeat(" ", gap-gap/2)) +
		right
	return th.StatusBar.Width(m.width).Render(bar)
}

func hint(th *theme.Theme, key, label string) string {
	return th.StatusBarValue.Render(key) + th.StatusBar.Render(" "+label+" ")
}

func storageKey(t string) string {
	if t == "remote" {
		return "storageRemote"
	}
	return "storageLocal"
}

func (m *Model) SetSize(width int) { m.width = width }

func (m *Model) SetHost(host string) { m.host = host }

func (m *Model) SetLanguage(lang string) { m.lang = lang }

func (m *Model) SetStorageType(t string) { m.storageType = t }

// Message returns the current notification.
func (m Model) Message() (string, bool) { return m.message, m.isError }
