// Package settings is the preferences page: language, where preferences
// are stored, per-table display names and visibility, and disconnect.
package settings

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/sadopc/supadmin/internal/i18n"
	appmsg "github.com/sadopc/supadmin/internal/msg"
	"github.com/sadopc/supadmin/internal/schema"
	"github.com/sadopc/supadmin/internal/session"
	"github.com/sadopc/supadmin/internal/theme"
)

const (
	rowLanguage = iota
	rowStorage
	rowDisconnect
	fixedRows
)

// Model is the settings page.
type Model struct {
	prefs         session.Preferences
	tables        []schema.TableInfo
	host          string
	hasServiceKey bool

	cursor  int
	offset  int
	editing bool
	rename  textinput.Model

	lang    string
	width   int
	height  int
	focused bool
}

func New() Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 64
	return Model{
		lang:   i18n.Fallback,
		rename: ti,
		prefs: session.Preferences{
			Language:          session.LangEN,
			StorageType:       session.StorageLocal,
			TableDisplayNames: map[string]string{},
			HiddenTables:      map[string]bool{},
		},
	}
}

func (m Model) Init() tea.Cmd { return nil }

// SetPreferences replaces the shown preferences.
func (m *Model) SetPreferences(p session.Preferences) {
	m.prefs = p
	m.lang = string(p.Language)
}

// SetTables sets every table, hidden ones included.
func (m *Model) SetTables(tables []schema.TableInfo) {
	m.tables = tables
	if m.cursor >= m.rowCount() {
		m.cursor = m.rowCount() - 1
	}
}

// SetConnection sets the connection summary.
func (m *Model) SetConnection(host string, hasServiceKey bool) {
	m.host = host
	m.hasServiceKey = hasServiceKey
}

func (m Model) rowCount() int { return fixedRows + len(m.tables) }

func (m Model) tableAt(row int) (schema.TableInfo, bool) {
	i := row - fixedRows
	if i < 0 || i >= len(m.tables) {
		return schema.TableInfo{}, false
	}
	return m.tables[i], true
}

func (m Model) displayName(table string) string {
	if n := m.prefs.TableDisplayNames[table]; n != "" {
		return n
	}
	return table
}

// Update handles navigation and turns edits into preference messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || !m.focused {
		return m, nil
	}
	if m.editing {
		return m.updateRename(key)
	}

	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.ensureVisible()
		}
	case "down", "j":
		if m.cursor < m.rowCount()-1 {
			m.cursor++
			m.ensureVisible()
		}
	case "esc", "backspace":
		return m, func() tea.Msg { return appmsg.BackMsg{} }
	case "enter", " ", "space":
		return m.activate(key.String() != "enter")
	case "h":
		if tb, ok := m.tableAt(m.cursor); ok {
			return m, hiddenCmd(tb.Name, !m.prefs.HiddenTables[tb.Name])
		}
	case "x":
		if tb, ok := m.tableAt(m.cursor); ok && m.prefs.TableDisplayNames[tb.Name] != "" {
			name := tb.Name
			return m, func() tea.Msg { return appmsg.SetDisplayNameMsg{Table: name} }
		}
	}
	return m, nil
}

// activate acts on the selected row. On a table row, enter renames and
// space toggles visibility.
func (m Model) activate(toggle bool) (Model, tea.Cmd) {
	switch m.cursor {
	case rowLanguage:
		next := nextLanguage(string(m.prefs.Language))
		return m, func() tea.Msg { return appmsg.SetLanguageMsg{Language: next} }
	case rowStorage:
		next := string(session.StorageRemote)
		if m.prefs.StorageType == session.StorageRemote {
			next = string(session.StorageLocal)
		}
		return m, func() tea.Msg { return appmsg.SetStorageTypeMsg{StorageType: next} }
	case rowDisconnect:
		return m, func() tea.Msg { return appmsg.DisconnectRequestMsg{} }
	}

	tb, ok := m.tableAt(m.cursor)
	if !ok {
		return m, nil
	}
	if toggle {
		return m, hiddenCmd(tb.Name, !m.prefs.HiddenTables[tb.Name])
	}
	m.editing = true
	m.rename.SetValue(m.prefs.TableDisplayNames[tb.Name])
	m.rename.Placeholder = tb.Name
	m.rename.CursorEnd()
	focusCmd := m.rename.Focus()
	return m, focusCmd
}

func (m Model) updateRename(key tea.KeyMsg) (Model, tea.Cmd) {
	switch key.String() {
	case "esc":
		m.editing = false
		m.rename.Blur()
		return m, nil
	case "enter":
		m.editing = false
		m.rename.Blur()
		tb, ok := m.tableAt(m.cursor)
		if !ok {
			return m, nil
		}
		req := appmsg.SetDisplayNameMsg{Table: tb.Name, Name: strings.TrimSpace(m.rename.Value())}
		if req.Name == tb.Name {
			req.Name = ""
		}
		return m, func() tea.Msg { return req }
	}
	var cmd tea.Cmd
	m.rename, cmd = m.rename.Update(key)
	return m, cmd
}

func hiddenCmd(table string, hidden bool) tea.Cmd {
	return func() tea.Msg { return appmsg.SetHiddenMsg{Table: table, Hidden: hidden} }
}

// nextLanguage cycles through the supported languages.
func nextLanguage(cur string) string {
	langs := i18n.Languages()
	for i, l := range langs {
		if l == cur {
			return langs[(i+1)%len(langs)]
		}
	}
	return langs[0]
}

func (m *Model) ensureVisible() {
	h := m.visibleTableRows()
	if m.cursor < fixedRows {
		m.offset = 0
		return
	}
	i := m.cursor - fixedRows
	if i < m.offset {
		m.offset = i
	}
	if i >= m.offset+h {
		m.offset = i - h + 1
	}
}

// visibleTableRows is how many table rows fit under the fixed sections.
func (m Model) visibleTableRows() int {
	return max(m.height-16, 3)
}

// View renders the page.
func (m Model) View() string {
	th := theme.Current
	t := i18n.For(m.lang)
	width := max(m.width-4, 30)

	var b strings.Builder
	b.WriteString(th.PageTitle.Render(t("settings")) + "\n\n")

	b.WriteString(th.CardTitle.Render(t("connection")) + "\n")
	host := m.host
	if host == "" {
		host = t("notConnected")
	}
	sk := t("no")
	if m.hasServiceKey {
		sk = t("yes")
	}
	fmt.Fprintf(&b, "  %s: %s\n  %s: %s\n", th.FieldLabel.Render(t("host")), host, th.FieldLabel.Render(t("serviceKeySet")), sk)
	b.WriteString("\n")

	langName := t("english")
	if m.prefs.Language == session.LangFR {
		langName = t("french")
	}
	storage := t("storageLocal")
	if m.prefs.StorageType == session.StorageRemote {
		storage = t("storageRemote")
	}
	b.WriteString(m.line(rowLanguage, t("language"), langName, width) + "\n")
	b.WriteString(m.line(rowStorage, t("storageType"), storage, width) + "\n")
	b.WriteString(m.line(rowDisconnect, t("disconnect"), "", width) + "\n\n")

	b.WriteString(th.CardTitle.Render(t("customizeTableNames")) + "\n")
	if len(m.tables) == 0 {
		b.WriteString("  " + th.MutedText.Render(t("noTablesFound")) + "\n")
	}
	end := min(m.offset+m.visibleTableRows(), len(m.tables))
	for i := m.offset; i < end; i++ {
		tb := m.tables[i]
		row := fixedRows + i
		status := th.SuccessText.Render(t("visible"))
		if m.prefs.HiddenTables[tb.Name] {
			status = th.MutedText.Render(t("hidden"))
		}
		label := m.displayName(tb.Name)
		if label != tb.Name {
			label += " (" + tb.Name + ")"
		}
		if m.editing && row == m.cursor {
			label = m.rename.View()
		}
		b.WriteString(m.line(row, label, status, width) + "\n")
	}

	b.WriteString("\n" + th.MutedText.Render(m.hints()))
	return b.String()
}

func (m Model) line(row int, label, value string, width int) string {
	th := theme.Current
	marker := "  "
	if row == m.cursor && m.focused {
		marker = th.FieldRequired.Render("> ")
	}
	labelW := max(width/2, 10)
	text := runewidth.FillRight(runewidth.Truncate(label, labelW, "…"), labelW)
	if m.editing && row == m.cursor {
		text = label
	}
	if row == m.cursor {
		text = th.SidebarSelected.Render(text)
	}
	return marker + text + "  " + value
}

func (m Model) hints() string {
	t := i18n.For(m.lang)
	if m.editing {
		return "enter " + t("save") + "  esc " + t("cancel")
	}
	if _, ok := m.tableAt(m.cursor); ok {
		return "enter " + t("rename") + "  space " + t("toggle") + "  x " + t("resetName") + "  esc " + t("back")
	}
	return "enter " + t("toggle") + "  esc " + t("back")
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.rename.Width = max(width/2-4, 10)
}

func (m *Model) SetLanguage(lang string) { m.lang = lang }

func (m *Model) Focus() { m.focused = true }

func (m *Model) Blur() {
	m.focused = false
	m.editing = false
	m.rename.Blur()
}

// Editing reports whether a display name is being typed, so global keys
// should pass through.
func (m Model) Editing() bool { return m.editing }
