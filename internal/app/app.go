// Package app is the root Bubble Tea model. It owns the screens, routes
// keys to the focused pane and performs every backend call the
// components ask for.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/sadopc/supadmin/internal/config"
	"github.com/sadopc/supadmin/internal/errs"
	"github.com/sadopc/supadmin/internal/i18n"
	"github.com/sadopc/supadmin/internal/logger"
	appmsg "github.com/sadopc/supadmin/internal/msg"
	"github.com/sadopc/supadmin/internal/schema"
	"github.com/sadopc/supadmin/internal/session"
	"github.com/sadopc/supadmin/internal/theme"
	"github.com/sadopc/supadmin/internal/ui/dashboard"
	"github.com/sadopc/supadmin/internal/ui/dialog"
	"github.com/sadopc/supadmin/internal/ui/form"
	"github.com/sadopc/supadmin/internal/ui/onboarding"
	"github.com/sadopc/supadmin/internal/ui/record"
	"github.com/sadopc/supadmin/internal/ui/settings"
	"github.com/sadopc/supadmin/internal/ui/sidebar"
	"github.com/sadopc/supadmin/internal/ui/statusbar"
	"github.com/sadopc/supadmin/internal/ui/tablelist"
	"github.com/sadopc/supadmin/internal/ui/tableview"
)

const defaultSidebarWidth = 28

// Options configures the root model.
type Options struct {
	Config *config.Config
	Logger *logger.Logger
	// ExportDir receives exported files. Empty means the working
	// directory.
	ExportDir string
	Now       func() time.Time
}

// Model is the root application model.
type Model struct {
	svc       Service
	log       *logger.Logger
	timeout   time.Duration
	exportDir string
	now       func() time.Time

	// Layout
	width        int
	height       int
	sidebarWidth int
	showSidebar  bool

	// Focus and navigation
	focusedPane Pane
	screen      Screen
	connected   bool
	lang        string

	// Components
	onboarding onboarding.Model
	sidebar    sidebar.Model
	statusbar  statusbar.Model
	dashboard  dashboard.Model
	tablelist  tablelist.Model
	tableview  tableview.Model
	record     record.Model
	settings   settings.Model
	form       form.Model
	dialog     dialog.Model
	help       help.Model
	spinner    spinner.Model

	keyMap KeyMap

	// Every table, hidden ones included.
	tables    []schema.TableInfo
	tablesGen uint64

	startup  []tea.Cmd
	showHelp bool
	quitting bool
}

// New creates the root model. When svc already holds a connection the
// first loads are queued for Init.
func New(svc Service, opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	if t := theme.Get(cfg.Theme); t != nil {
		theme.Current = t
	}

	s := spinner.New()
	s.Spinner = spinner.Dot

	h := help.New()
	h.ShowAll = true

	m := Model{
		svc:          svc,
		log:          log,
		timeout:      time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
		exportDir:    opts.ExportDir,
		now:          opts.Now,
		sidebarWidth: defaultSidebarWidth,
		showSidebar:  true,
		focusedPane:  PaneSidebar,
		screen:       ScreenDashboard,
		lang:         i18n.Fallback,

		onboarding: onboarding.New(),
		sidebar:    sidebar.New(),
		statusbar:  statusbar.New(),
		dashboard:  dashboard.New(),
		tablelist:  tablelist.New(),
		tableview:  tableview.New(),
		record:     record.New(),
		settings:   settings.New(),
		form:       form.New(),
		help:       h,
		spinner:    s,
		keyMap:     DefaultKeyMap(),
	}
	if m.timeout <= 0 {
		m.timeout = 30 * time.Second
	}
	if m.now == nil {
		m.now = time.Now
	}
	if cfg.Results.PageSize > 0 {
		m.tableview.SetPageSize(cfg.Results.PageSize)
	}
	if cfg.Results.MaxColumnWidth > 0 {
		m.tableview.SetMaxColumnWidth(cfg.Results.MaxColumnWidth)
	}
	m.onboarding.SetValues(cfg.Backend.URL, cfg.Backend.Key, cfg.Backend.ServiceKey)
	m.dashboard.SetDisplayName(svc.DisplayName)

	m.applyPreferences()
	if svc.Connected() {
		m.connected = true
		m.statusbar.SetHost(svc.Host())
		m.sidebar.Focus()
		m.startup = []tea.Cmd{m.loadTables(), m.loadStats()}
	}
	return m
}

// Init starts the spinner and, when connected, the first loads.
func (m Model) Init() tea.Cmd {
	cmds := append([]tea.Cmd{m.spinner.Tick}, m.startup...)
	if !m.connected {
		cmds = append(cmds, m.onboarding.Init())
	}
	return tea.Batch(cmds...)
}

// Update handles all messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case ConnectRequestMsg:
		cmds = append(cmds, m.connect(msg))

	case ConnectedMsg:
		m.connected = true
		m.onboarding, _ = m.onboarding.Update(msg)
		var sbCmd tea.Cmd
		m.statusbar, sbCmd = m.statusbar.Update(msg)
		m.log.InfoWith("connected", map[string]any{"host": msg.Host})
		m.applyPreferences()
		m.screen = ScreenDashboard
		m.setFocus(PaneSidebar)
		m.sidebar.Select(ScreenDashboard, "")
		cmds = append(cmds, sbCmd, m.loadTables(), m.loadStats())

	case ConnectErrMsg:
		m.log.WarnErr("connect failed", msg.Err, nil)
		m.onboarding, _ = m.onboarding.Update(msg)

	case DisconnectRequestMsg:
		cmds = append(cmds, m.disconnect())

	case DisconnectedMsg:
		cmds = append(cmds, m.resetAfterDisconnect())
		var sbCmd tea.Cmd
		m.statusbar, sbCmd = m.statusbar.Update(msg)
		cmds = append(cmds, sbCmd)

	case NavigateMsg:
		cmds = append(cmds, m.navigate(msg))

	case BackMsg:
		cmds = append(cmds, m.back())

	case RefreshMsg:
		cmds = append(cmds, m.refresh())

	case TablesLoadedMsg:
		if msg.Gen != m.tablesGen {
			break
		}
		m.tables = msg.Tables
		m.applyTables()

	case TablesErrMsg:
		if msg.Gen != m.tablesGen {
			break
		}
		m.log.WarnErr("list tables", msg.Err, nil)
		m.sidebar.SetLoading(false)
		m.tablelist.SetError(msg.Err)
		cmds = append(cmds, m.status(errs.MessageOf(msg.Err), true))

	case StatsLoadedMsg:
		m.dashboard, _ = m.dashboard.Update(msg)

	case StatsErrMsg:
		m.log.WarnErr("load stats", msg.Err, nil)
		m.dashboard, _ = m.dashboard.Update(msg)

	case LoadPageMsg:
		cmds = append(cmds, m.loadPage(msg))

	case PageLoadedMsg:
		m.tableview, _ = m.tableview.Update(msg)

	case PageErrMsg:
		m.log.WarnErr("load page", msg.Err, map[string]any{"table": msg.Table})
		m.tableview, _ = m.tableview.Update(msg)

	case RecordLoadedMsg:
		m.record, _ = m.record.Update(msg)

	case RecordErrMsg:
		m.log.WarnErr("load record", msg.Err, map[string]any{"table": msg.Table, "id": msg.ID})
		m.record, _ = m.record.Update(msg)

	case OpenFormMsg:
		m.form.SetLanguage(m.lang)
		m.form.SetSize(m.width, m.height)
		cmds = append(cmds, m.form.Open(msg))

	case SubmitFormMsg:
		cmds = append(cmds, m.save(msg))

	case SavedMsg:
		m.form, _ = m.form.Update(msg)
		cmds = append(cmds, m.afterSave(msg), m.status(i18n.T(m.lang, "saved"), false))

	case SaveErrMsg:
		m.log.WarnErr("save failed", msg.Err, nil)
		m.form, _ = m.form.Update(msg)

	case form.CancelledMsg:
		m.form.Hide()

	case ConfirmDeleteMsg:
		m.dialog = dialog.ConfirmDelete(m.lang, msg.Table, msg.ID)
		m.dialog.SetSize(m.width, m.height)
		m.dialog.Show()

	case DeleteRequestMsg:
		cmds = append(cmds, m.delete(msg))

	case DeletedMsg:
		cmds = append(cmds, m.afterDelete(msg), m.status(i18n.T(m.lang, "deleted"), false))

	case DeleteErrMsg:
		m.log.WarnErr("delete failed", msg.Err, nil)
		cmds = append(cmds, m.status(i18n.T(m.lang, "actionFailed")+": "+errs.MessageOf(msg.Err), true))

	case ExportRequestMsg:
		cmds = append(cmds, m.exportTable(msg))

	case ExportCompleteMsg:
		text := fmt.Sprintf("%s %s %s: %s", i18n.T(m.lang, "exported"), humanize.Comma(msg.RowCount), i18n.T(m.lang, "recordsCount"), msg.Path)
		cmds = append(cmds, m.status(text, false))

	case ExportErrMsg:
		m.log.WarnErr("export failed", msg.Err, nil)
		cmds = append(cmds, m.status(i18n.T(m.lang, "actionFailed")+": "+errs.MessageOf(msg.Err), true))

	case SetLanguageMsg:
		svc := m.svc
		lang := session.Language(msg.Language)
		cmds = append(cmds, m.setPreference(func(context.Context) error { return svc.SetLanguage(lang) }))

	case SetStorageTypeMsg:
		svc := m.svc
		st := session.StorageType(msg.StorageType)
		cmds = append(cmds, m.setPreference(func(ctx context.Context) error { return svc.SetStorageType(ctx, st) }))

	case SetDisplayNameMsg:
		svc := m.svc
		cmds = append(cmds, m.setPreference(func(context.Context) error { return svc.SetTableDisplayName(msg.Table, msg.Name) }))

	case SetHiddenMsg:
		svc := m.svc
		cmds = append(cmds, m.setPreference(func(context.Context) error { return svc.SetHiddenTable(msg.Table, msg.Hidden) }))

	case PreferencesChangedMsg:
		m.applyPreferences()
		cmds = append(cmds, m.status(i18n.T(m.lang, "preferencesSaved"), false))

	case StatusMsg:
		var sbCmd tea.Cmd
		m.statusbar, sbCmd = m.statusbar.Update(msg)
		cmds = append(cmds, sbCmd)

	case statusbar.ClearStatusMsg:
		m.statusbar, _ = m.statusbar.Update(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	default:
		// Cursor blinks and other input internals go to whatever is
		// taking text.
		cmds = append(cmds, m.updateTextInput(msg))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) updateTextInput(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch {
	case !m.connected:
		m.onboarding, cmd = m.onboarding.Update(msg)
	case m.form.Visible():
		m.form, cmd = m.form.Update(msg)
	}
	return cmd
}

// capturingText reports whether keys are going into a text input, in
// which case only Quit is global.
func (m Model) capturingText() bool {
	if m.form.Visible() {
		return true
	}
	switch m.screen {
	case ScreenTables:
		return m.tablelist.Filtering()
	case ScreenSettings:
		return m.settings.Editing()
	}
	return false
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keyMap.Quit) {
		m.quitting = true
		return tea.Quit
	}

	if !m.connected {
		var cmd tea.Cmd
		m.onboarding, cmd = m.onboarding.Update(msg)
		return cmd
	}

	if m.showHelp {
		switch msg.String() {
		case "?", "f1", "esc", "q":
			m.showHelp = false
		}
		return nil
	}

	if m.dialog.Visible() {
		var cmd tea.Cmd
		m.dialog, cmd = m.dialog.Update(msg)
		return cmd
	}

	if m.form.Visible() {
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return cmd
	}

	if !m.capturingText() {
		if cmd, ok := m.handleGlobalKeys(msg); ok {
			return cmd
		}
	}
	return m.handleFocusedPaneKey(msg)
}

func (m *Model) handleGlobalKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keyMap.Help):
		m.showHelp = true
		return nil, true
	case key.Matches(msg, m.keyMap.FocusNext), key.Matches(msg, m.keyMap.FocusPrev):
		if m.showSidebar && m.focusedPane == PaneMain {
			m.setFocus(PaneSidebar)
		} else {
			m.setFocus(PaneMain)
		}
		return nil, true
	case key.Matches(msg, m.keyMap.ToggleSidebar):
		m.showSidebar = !m.showSidebar
		if !m.showSidebar {
			m.setFocus(PaneMain)
		}
		m.updateLayout()
		return nil, true
	case key.Matches(msg, m.keyMap.Refresh):
		return m.refresh(), true
	case key.Matches(msg, m.keyMap.GoDashboard):
		return m.navigate(NavigateMsg{Screen: ScreenDashboard}), true
	case key.Matches(msg, m.keyMap.GoTables):
		return m.navigate(NavigateMsg{Screen: ScreenTables}), true
	case key.Matches(msg, m.keyMap.GoSettings):
		return m.navigate(NavigateMsg{Screen: ScreenSettings}), true
	}
	return nil, false
}

func (m *Model) handleFocusedPaneKey(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	if m.focusedPane == PaneSidebar && m.showSidebar {
		m.sidebar, cmd = m.sidebar.Update(msg)
		return cmd
	}
	switch m.screen {
	case ScreenDashboard:
		m.dashboard, cmd = m.dashboard.Update(msg)
	case ScreenTables:
		m.tablelist, cmd = m.tablelist.Update(msg)
	case ScreenTableView:
		m.tableview, cmd = m.tableview.Update(msg)
	case ScreenRecord:
		m.record, cmd = m.record.Update(msg)
	case ScreenSettings:
		m.settings, cmd = m.settings.Update(msg)
	}
	return cmd
}

// navigate switches screens and returns whatever load the new screen
// needs.
func (m *Model) navigate(msg NavigateMsg) tea.Cmd {
	var cmd tea.Cmd
	switch msg.Screen {
	case ScreenDashboard:
		cmd = m.loadStats()
	case ScreenTables:
		if m.tables == nil {
			cmd = m.loadTables()
		}
	case ScreenTableView:
		if msg.Table == "" {
			return nil
		}
		cmd = m.tableview.Open(msg.Table, m.svc.DisplayName(msg.Table))
	case ScreenRecord:
		if msg.Table == "" || msg.RecordID == "" {
			return nil
		}
		m.record.Open(msg.Table, msg.RecordID)
		cmd = m.loadRecord(msg.Table, msg.RecordID)
	case ScreenSettings:
		m.settings.SetConnection(m.svc.Host(), m.svc.HasServiceKey())
		m.settings.SetPreferences(m.svc.Preferences())
	}
	m.screen = msg.Screen
	selTable := msg.Table
	if msg.Screen == ScreenRecord {
		m.sidebar.Select(ScreenTableView, selTable)
	} else {
		m.sidebar.Select(msg.Screen, selTable)
	}
	m.setFocus(PaneMain)
	return cmd
}

// back leaves the current screen for its parent.
func (m *Model) back() tea.Cmd {
	switch m.screen {
	case ScreenRecord:
		if m.tableview.Table() == m.record.Table() {
			m.screen = ScreenTableView
			m.sidebar.Select(ScreenTableView, m.tableview.Table())
			m.setFocus(PaneMain)
			return nil
		}
		return m.navigate(NavigateMsg{Screen: ScreenTableView, Table: m.record.Table()})
	case ScreenTableView:
		return m.navigate(NavigateMsg{Screen: ScreenTables})
	case ScreenTables, ScreenSettings:
		return m.navigate(NavigateMsg{Screen: ScreenDashboard})
	}
	return nil
}

func (m *Model) refresh() tea.Cmd {
	switch m.screen {
	case ScreenDashboard:
		return tea.Batch(m.loadTables(), m.loadStats())
	case ScreenTableView:
		return m.tableview.Refresh()
	case ScreenRecord:
		m.record.Open(m.record.Table(), m.record.ID())
		return m.loadRecord(m.record.Table(), m.record.ID())
	}
	return m.loadTables()
}

func (m *Model) afterSave(msg SavedMsg) tea.Cmd {
	var cmds []tea.Cmd
	if m.tableview.Table() == msg.Table {
		cmds = append(cmds, m.tableview.Refresh())
	}
	if m.screen == ScreenRecord && m.record.Table() == msg.Table {
		cmds = append(cmds, m.loadRecord(m.record.Table(), m.record.ID()))
	}
	if msg.Mode == appmsg.FormCreate {
		cmds = append(cmds, m.loadTables())
	}
	return tea.Batch(cmds...)
}

func (m *Model) afterDelete(msg DeletedMsg) tea.Cmd {
	if m.screen == ScreenRecord && m.record.Table() == msg.Table && m.record.ID() == msg.ID {
		if m.tableview.Table() != msg.Table {
			return tea.Batch(m.navigate(NavigateMsg{Screen: ScreenTableView, Table: msg.Table}), m.loadTables())
		}
		m.screen = ScreenTableView
		m.sidebar.Select(ScreenTableView, msg.Table)
		m.setFocus(PaneMain)
	}
	var cmds []tea.Cmd
	if m.tableview.Table() == msg.Table {
		cmds = append(cmds, m.tableview.Reload())
	}
	cmds = append(cmds, m.loadTables())
	return tea.Batch(cmds...)
}

func (m *Model) resetAfterDisconnect() tea.Cmd {
	m.connected = false
	m.tables = nil
	m.tablesGen++
	m.screen = ScreenDashboard
	m.showHelp = false
	m.form.Hide()
	m.dialog.Hide()
	m.dashboard = dashboard.New()
	m.dashboard.SetDisplayName(m.svc.DisplayName)
	m.tablelist = tablelist.New()
	m.tableview = tableview.New()
	m.record = record.New()
	m.settings = settings.New()
	m.sidebar.SetTables(nil, nil)
	m.onboarding = onboarding.New()
	m.applyPreferences()
	m.updateLayout()
	m.log.Info("disconnected")
	return m.onboarding.Init()
}

// visibleTables filters out the tables the user hid.
func (m Model) visibleTables() []schema.TableInfo {
	hidden := m.svc.Preferences().HiddenTables
	out := make([]schema.TableInfo, 0, len(m.tables))
	for _, t := range m.tables {
		if !hidden[t.Name] {
			out = append(out, t)
		}
	}
	return out
}

// applyTables pushes the table listing into every component that shows it.
func (m *Model) applyTables() {
	visible := m.visibleTables()
	m.sidebar.SetTables(visible, m.svc.DisplayName)
	m.sidebar.Select(m.screen, m.tableview.Table())
	m.tablelist.SetTables(visible, m.svc.DisplayName)
	m.settings.SetTables(m.tables)
}

// applyPreferences re-reads the preferences and re-applies language,
// storage type and table labels.
func (m *Model) applyPreferences() {
	prefs := m.svc.Preferences()
	lang := string(prefs.Language)
	if !i18n.Supported(lang) {
		lang = i18n.Fallback
	}
	m.setLanguage(lang)
	m.statusbar.SetStorageType(string(prefs.StorageType))
	m.settings.SetPreferences(prefs)
	if m.tableview.Table() != "" {
		m.tableview.SetDisplayName(m.svc.DisplayName(m.tableview.Table()))
	}
	if m.tables != nil {
		m.applyTables()
	}
}

func (m *Model) setLanguage(lang string) {
	m.lang = lang
	m.onboarding.SetLanguage(lang)
	m.sidebar.SetLanguage(lang)
	m.statusbar.SetLanguage(lang)
	m.dashboard.SetLanguage(lang)
	m.tablelist.SetLanguage(lang)
	m.tableview.SetLanguage(lang)
	m.record.SetLanguage(lang)
	m.settings.SetLanguage(lang)
	m.form.SetLanguage(lang)
}

func (m *Model) status(text string, isError bool) tea.Cmd {
	var cmd tea.Cmd
	m.statusbar, cmd = m.statusbar.Update(StatusMsg{Text: text, IsError: isError})
	return cmd
}

func (m *Model) setFocus(pane Pane) {
	m.sidebar.Blur()
	m.dashboard.Blur()
	m.tablelist.Blur()
	m.tableview.Blur()
	m.record.Blur()
	m.settings.Blur()

	if pane == PaneSidebar && !m.showSidebar {
		pane = PaneMain
	}
	m.focusedPane = pane
	if pane == PaneSidebar {
		m.sidebar.Focus()
		return
	}
	switch m.screen {
	case ScreenDashboard:
		m.dashboard.Focus()
	case ScreenTables:
		m.tablelist.Focus()
	case ScreenTableView:
		m.tableview.Focus()
	case ScreenRecord:
		m.record.Focus()
	case ScreenSettings:
		m.settings.Focus()
	}
}

func (m Model) mainSize() (int, int) {
	w := m.width
	if m.showSidebar {
		w -= m.sidebarWidth
	}
	return max(w, 10), max(m.height-1, 3)
}

func (m *Model) updateLayout() {
	m.statusbar.SetSize(m.width)
	m.onboarding.SetSize(m.width, m.height)
	m.form.SetSize(m.width, m.height)
	m.dialog.SetSize(m.width, m.height)
	m.help.Width = m.width

	mainW, mainH := m.mainSize()
	m.sidebar.SetSize(m.sidebarWidth, mainH)
	m.dashboard.SetSize(mainW, mainH)
	m.tablelist.SetSize(mainW, mainH)
	m.tableview.SetSize(mainW, mainH)
	m.record.SetSize(mainW, mainH)
	m.settings.SetSize(mainW, mainH)
}

// busy reports whether anything is waiting on the backend.
func (m Model) busy() bool {
	return m.dashboard.Loading() || m.tableview.Loading() || m.form.Pending() || m.onboarding.Pending()
}

// View renders the entire application.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if m.width == 0 || m.height == 0 {
		return i18n.T(m.lang, "loading")
	}
	if !m.connected {
		return m.onboarding.View()
	}
	if m.showHelp {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.helpView())
	}

	mainW, mainH := m.mainSize()
	main := lipgloss.NewStyle().Width(mainW).Height(mainH).MaxWidth(mainW).MaxHeight(mainH).Render(m.screenView())

	content := main
	if m.showSidebar {
		content = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), main)
	}

	statusBar := m.statusbar.View()
	if m.busy() {
		statusBar = lipgloss.NewStyle().MaxWidth(m.width).Render(m.spinner.View() + statusBar)
	}
	view := lipgloss.JoinVertical(lipgloss.Left, content, statusBar)

	if m.form.Visible() {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.form.View())
	}
	return m.dialog.Overlay(view)
}

func (m Model) screenView() string {
	switch m.screen {
	case ScreenTables:
		return m.tablelist.View()
	case ScreenTableView:
		return m.tableview.View()
	case ScreenRecord:
		return m.record.View()
	case ScreenSettings:
		return m.settings.View()
	}
	return m.dashboard.View()
}

// Screen returns the screen being shown.
func (m Model) Screen() Screen { return m.screen }

// Connected reports whether the app is past onboarding.
func (m Model) Connected() bool { return m.connected }
