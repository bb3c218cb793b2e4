package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/supadmin/internal/admin"
	"github.com/sadopc/supadmin/internal/backend"
	"github.com/sadopc/supadmin/internal/errs"
	"github.com/sadopc/supadmin/internal/history"
	"github.com/sadopc/supadmin/internal/schema"
	"github.com/sadopc/supadmin/internal/session"
	"github.com/sadopc/supadmin/internal/theme"
	"github.com/sadopc/supadmin/internal/ui/sidebar"
	"github.com/sadopc/supadmin/internal/ui/statusbar"
)

func init() {
	theme.Current = theme.Default()
}

// ---------------------------------------------------------------------------
// Fake service
// ---------------------------------------------------------------------------

type fakeService struct {
	mu         sync.Mutex
	connected  bool
	host       string
	names      []string
	rows       map[string][]backend.Row
	prefs      session.Preferences
	connectErr error
	deleted    []string
	created    []backend.Row
	updated    map[string]backend.Row
}

func newFake(connected bool) *fakeService {
	return &fakeService{
		connected: connected,
		host:      "abc.supabase.co",
		names:     []string{"orders", "audit"},
		rows: map[string][]backend.Row{
			"orders": {
				{"id": 1, "item": "plum"},
				{"id": 2, "item": "pear"},
			},
			"audit": {{"id": 9, "msg": "x"}},
		},
		prefs: session.Preferences{
			Language:          session.LangEN,
			StorageType:       session.StorageLocal,
			TableDisplayNames: map[string]string{},
			HiddenTables:      map[string]bool{},
		},
		updated: map[string]backend.Row{},
	}
}

func (f *fakeService) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeService) Connect(_ context.Context, url, key, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeService) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *fakeService) Host() string        { return f.host }
func (f *fakeService) HasServiceKey() bool { return false }

func (f *fakeService) Tables(context.Context) ([]schema.TableInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]schema.TableInfo, 0, len(f.names))
	for _, n := range f.names {
		out = append(out, schema.TableInfo{Name: n, RecordCount: int64(len(f.rows[n]))})
	}
	return out, nil
}

func (f *fakeService) Fields(_ context.Context, table string) ([]schema.TableField, error) {
	return []schema.TableField{{Name: "id", Type: "integer", IsPrimaryKey: true}, {Name: "item", Type: "text"}}, nil
}

func (f *fakeService) RowsWithFields(_ context.Context, table string, _ []schema.TableField, page, pageSize int) (*backend.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows, ok := f.rows[table]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "no such table")
	}
	start := min((page-1)*pageSize, len(rows))
	end := min(start+pageSize, len(rows))
	return &backend.Page{Rows: rows[start:end], Total: int64(len(rows)), Page: page, PageSize: pageSize}, nil
}

func (f *fakeService) AllRowsWithFields(_ context.Context, table string, _ []schema.TableField, _ int) ([]backend.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[table], nil
}

func (f *fakeService) RecordWithFields(_ context.Context, table, id string, _ []schema.TableField) (backend.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows[table] {
		if fmt.Sprint(r["id"]) == id {
			return r, nil
		}
	}
	return nil, errs.New(errs.ErrKindNotFound, "record not found")
}

func (f *fakeService) Create(_ context.Context, table string, fields backend.Row) (backend.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := backend.Row{"id": len(f.rows[table]) + 100}
	for k, v := range fields {
		row[k] = v
	}
	f.rows[table] = append(f.rows[table], row)
	f.created = append(f.created, row)
	return row, nil
}

func (f *fakeService) Update(_ context.Context, table, id string, patch backend.Row) (backend.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated[table+"/"+id] = patch
	return patch, nil
}

func (f *fakeService) Delete(_ context.Context, table, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.rows[table][:0]
	for _, r := range f.rows[table] {
		if fmt.Sprint(r["id"]) != id {
			rows = append(rows, r)
		}
	}
	f.rows[table] = rows
	f.deleted = append(f.deleted, table+"/"+id)
	return nil
}

func (f *fakeService) Stats(ctx context.Context) (*admin.Stats, error) {
	tables, _ := f.Tables(ctx)
	st := &admin.Stats{TotalTables: len(tables), Tables: tables}
	for _, t := range tables {
		st.TotalRecords += t.RecordCount
	}
	return st, nil
}

func (f *fakeService) RecentActivity(int) ([]history.Entry, error) {
	return []history.Entry{{Action: history.ActionConnect, Detail: f.host, CreatedAt: time.Now()}}, nil
}

func (f *fakeService) RecordHistory(table, id string, _ int) ([]history.Entry, error) {
	return []history.Entry{{Action: history.ActionUpdate, Table: table, RecordID: id, CreatedAt: time.Now()}}, nil
}

func (f *fakeService) DisplayName(table string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n := f.prefs.TableDisplayNames[table]; n != "" {
		return n
	}
	return table
}

func (f *fakeService) Preferences() session.Preferences {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prefs
}

func (f *fakeService) SetLanguage(lang session.Language) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefs.Language = lang
	return nil
}

func (f *fakeService) SetTableDisplayName(table, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefs.TableDisplayNames[table] = name
	return nil
}

func (f *fakeService) SetHiddenTable(table string, hidden bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefs.HiddenTables[table] = hidden
	return nil
}

func (f *fakeService) SetStorageType(_ context.Context, t session.StorageType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t == session.StorageRemote && !f.connected {
		return errs.New(errs.ErrKindConnectionFailed, "not connected")
	}
	f.prefs.StorageType = t
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// collect runs cmd and returns the messages it produced. Timers are
// dropped so tests never wait on them.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		switch msg := msg.(type) {
		case nil, spinner.TickMsg, statusbar.ClearStatusMsg:
			return nil
		case tea.BatchMsg:
			var out []tea.Msg
			for _, c := range msg {
				out = append(out, collect(c)...)
			}
			return out
		default:
			return []tea.Msg{msg}
		}
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// run feeds msg to m and then every message its commands produce.
func run(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	queue := msgs
	for i := 0; len(queue) > 0; i++ {
		if i > 200 {
			t.Fatal("message loop did not settle")
		}
		next := queue[0]
		queue = queue[1:]
		if _, ok := next.(tea.QuitMsg); ok {
			continue
		}
		updated, cmd := m.Update(next)
		m = updated.(Model)
		queue = append(queue, collect(cmd)...)
	}
	return m
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "ctrl+q":
		return tea.KeyMsg{Type: tea.KeyCtrlQ}
	case "ctrl+b":
		return tea.KeyMsg{Type: tea.KeyCtrlB}
	case "f1":
		return tea.KeyMsg{Type: tea.KeyF1}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newApp(t *testing.T, svc *fakeService, opts Options) Model {
	t.Helper()
	m := New(svc, opts)
	m = run(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return run(t, m, collect(m.Init())...)
}

func sidebarTables(m Model) []string {
	var out []string
	for _, e := range m.sidebar.Entries() {
		if e.Kind == sidebar.EntryTable {
			out = append(out, e.Table)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestNewDisconnectedShowsOnboarding(t *testing.T) {
	m := newApp(t, newFake(false), Options{})
	if m.Connected() {
		t.Fatal("should not be connected")
	}
	if !strings.Contains(m.View(), "Welcome to supadmin") {
		t.Fatalf("expected onboarding:\n%s", m.View())
	}
}

func TestStartConnectedLoadsTables(t *testing.T) {
	m := newApp(t, newFake(true), Options{})
	if !m.Connected() {
		t.Fatal("should be connected")
	}
	if got := strings.Join(sidebarTables(m), ","); got != "orders,audit" {
		t.Fatalf("sidebar tables = %s", got)
	}
	if m.dashboard.Loading() {
		t.Fatal("stats should have loaded")
	}
	if !strings.Contains(m.View(), "Total Tables") {
		t.Fatalf("expected dashboard:\n%s", m.View())
	}
}

func TestConnectFlow(t *testing.T) {
	svc := newFake(false)
	m := newApp(t, svc, Options{})
	m = run(t, m, ConnectRequestMsg{URL: "https://abc.supabase.co", Key: "eyJhbGciOiJIUzI1NiJ9.anon"})
	if !m.Connected() {
		t.Fatal("expected connection")
	}
	if m.Screen() != ScreenDashboard {
		t.Fatalf("screen = %v", m.Screen())
	}
	if len(m.tables) != 2 {
		t.Fatalf("tables = %v", m.tables)
	}
	if !strings.Contains(m.statusbar.View(), "abc.supabase.co") {
		t.Fatalf("status bar should show host:\n%s", m.statusbar.View())
	}
}

func TestConnectError(t *testing.T) {
	svc := newFake(false)
	svc.connectErr = errs.New(errs.ErrKindConnectionFailed, "refused")
	m := newApp(t, svc, Options{})
	m = run(t, m, ConnectRequestMsg{URL: "https://abc.supabase.co", Key: "eyJhbGciOiJIUzI1NiJ9.anon"})
	if m.Connected() {
		t.Fatal("should not be connected")
	}
	if !strings.Contains(m.View(), "Connection failed: refused") {
		t.Fatalf("expected error in onboarding:\n%s", m.View())
	}
}

func TestNavigateTableRecordAndBack(t *testing.T) {
	m := newApp(t, newFake(true), Options{})
	m = run(t, m, NavigateMsg{Screen: ScreenTableView, Table: "orders"})
	if m.Screen() != ScreenTableView || m.tableview.Table() != "orders" {
		t.Fatalf("screen = %v table = %q", m.Screen(), m.tableview.Table())
	}
	if m.tableview.Loading() {
		t.Fatal("page should have loaded")
	}
	if row, ok := m.tableview.SelectedRow(); !ok || row["item"] != "plum" {
		t.Fatalf("selected row = %v", row)
	}

	m = run(t, m, NavigateMsg{Screen: ScreenRecord, Table: "orders", RecordID: "2"})
	if m.Screen() != ScreenRecord || m.record.ID() != "2" {
		t.Fatalf("screen = %v id = %q", m.Screen(), m.record.ID())
	}
	if !strings.Contains(m.View(), "pear") {
		t.Fatalf("record should show its values:\n%s", m.View())
	}

	m = run(t, m, keyMsg("esc"))
	if m.Screen() != ScreenTableView {
		t.Fatalf("esc from record should return to the table, got %v", m.Screen())
	}
	m = run(t, m, BackMsg{})
	if m.Screen() != ScreenTables {
		t.Fatalf("back from table should show tables, got %v", m.Screen())
	}
	m = run(t, m, BackMsg{})
	if m.Screen() != ScreenDashboard {
		t.Fatalf("back from tables should show dashboard, got %v", m.Screen())
	}
}

func TestSidebarEnterOpensTable(t *testing.T) {
	m := newApp(t, newFake(true), Options{})
	// Dashboard, Tables, Settings, then orders.
	m = run(t, m, keyMsg("j"), keyMsg("j"), keyMsg("j"), keyMsg("enter"))
	if m.Screen() != ScreenTableView || m.tableview.Table() != "orders" {
		t.Fatalf("screen = %v table = %q", m.Screen(), m.tableview.Table())
	}
	if m.focusedPane != PaneMain {
		t.Fatal("opening a screen should focus it")
	}
}

func TestCreateRecord(t *testing.T) {
	svc := newFake(true)
	m := newApp(t, svc, Options{})
	m = run(t, m, NavigateMsg{Screen: ScreenTableView, Table: "orders"})
	m = run(t, m, keyMsg("a"))
	if !m.form.Visible() {
		t.Fatal("a should open the create form")
	}
	m = run(t, m, keyMsg("f"), keyMsg("i"), keyMsg("g"), tea.KeyMsg{Type: tea.KeyCtrlS})
	if len(svc.created) != 1 || svc.created[0]["item"] != "fig" {
		t.Fatalf("created = %v", svc.created)
	}
	if m.form.Visible() {
		t.Fatal("form should close after save")
	}
	if text, isErr := m.statusbar.Message(); isErr || text != "Saved" {
		t.Fatalf("status = %q (error %v)", text, isErr)
	}
	if m.tables[0].RecordCount != 3 {
		t.Fatalf("counts should refresh after create, got %v", m.tables)
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	svc := newFake(true)
	m := newApp(t, svc, Options{})
	m = run(t, m, NavigateMsg{Screen: ScreenTableView, Table: "orders"})
	m = run(t, m, keyMsg("d"))
	if !m.dialog.Visible() {
		t.Fatal("d should ask for confirmation")
	}
	m = run(t, m, keyMsg("enter"))
	if len(svc.deleted) != 0 {
		t.Fatal("enter on the default button must not delete")
	}

	m = run(t, m, keyMsg("d"), keyMsg("y"))
	if strings.Join(svc.deleted, ",") != "orders/1" {
		t.Fatalf("deleted = %v", svc.deleted)
	}
	if row, ok := m.tableview.SelectedRow(); !ok || row["item"] != "pear" {
		t.Fatalf("grid should reload after delete, selected = %v", row)
	}
}

func TestDeleteFromRecordReturnsToTable(t *testing.T) {
	svc := newFake(true)
	m := newApp(t, svc, Options{})
	m = run(t, m, NavigateMsg{Screen: ScreenTableView, Table: "orders"})
	m = run(t, m, NavigateMsg{Screen: ScreenRecord, Table: "orders", RecordID: "2"})
	m = run(t, m, DeleteRequestMsg{Table: "orders", ID: "2"})
	if m.Screen() != ScreenTableView {
		t.Fatalf("screen = %v", m.Screen())
	}
	if len(svc.rows["orders"]) != 1 {
		t.Fatalf("rows = %v", svc.rows["orders"])
	}
}

func TestHiddenTablesStayInSettings(t *testing.T) {
	svc := newFake(true)
	m := newApp(t, svc, Options{})
	m = run(t, m, SetHiddenMsg{Table: "audit", Hidden: true})
	if got := strings.Join(sidebarTables(m), ","); got != "orders" {
		t.Fatalf("sidebar tables = %s", got)
	}
	if len(m.tablelist.Shown()) != 1 {
		t.Fatalf("table list = %v", m.tablelist.Shown())
	}
	m = run(t, m, NavigateMsg{Screen: ScreenSettings})
	if !strings.Contains(m.View(), "audit") {
		t.Fatalf("settings should list hidden tables:\n%s", m.View())
	}
}

func TestDisplayNameApplied(t *testing.T) {
	svc := newFake(true)
	m := newApp(t, svc, Options{})
	m = run(t, m, SetDisplayNameMsg{Table: "orders", Name: "Commandes"})
	found := false
	for _, e := range m.sidebar.Entries() {
		if e.Table == "orders" && e.Label == "Commandes" {
			found = true
		}
	}
	if !found {
		t.Fatalf("sidebar should use the display name: %+v", m.sidebar.Entries())
	}
}

func TestLanguageChange(t *testing.T) {
	m := newApp(t, newFake(true), Options{})
	m = run(t, m, SetLanguageMsg{Language: "fr"})
	if m.lang != "fr" {
		t.Fatalf("lang = %q", m.lang)
	}
	if !strings.Contains(m.View(), "Tableau de bord") {
		t.Fatalf("expected French UI:\n%s", m.View())
	}
}

func TestStorageTypeError(t *testing.T) {
	svc := newFake(true)
	m := newApp(t, svc, Options{})
	svc.connected = false
	m = run(t, m, SetStorageTypeMsg{StorageType: "remote"})
	if text, isErr := m.statusbar.Message(); !isErr || text != "not connected" {
		t.Fatalf("status = %q (error %v)", text, isErr)
	}
	if svc.prefs.StorageType != session.StorageLocal {
		t.Fatal("storage type should be unchanged")
	}
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := newApp(t, newFake(true), Options{ExportDir: dir, Now: func() time.Time { return fixed }})
	m = run(t, m, ExportRequestMsg{Table: "orders", Format: "csv"})

	path := filepath.Join(dir, "orders_20260102_030405.csv")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "id,item\n") {
		t.Fatalf("csv = %q", data)
	}
	if text, _ := m.statusbar.Message(); !strings.Contains(text, "Exported 2 records") {
		t.Fatalf("status = %q", text)
	}
}

func TestDisconnect(t *testing.T) {
	m := newApp(t, newFake(true), Options{})
	m = run(t, m, DisconnectRequestMsg{})
	if m.Connected() {
		t.Fatal("should be disconnected")
	}
	if m.tables != nil {
		t.Fatal("tables should be cleared")
	}
	if !strings.Contains(m.View(), "Welcome to supadmin") {
		t.Fatalf("expected onboarding:\n%s", m.View())
	}
}

func TestStaleTablesIgnored(t *testing.T) {
	m := newApp(t, newFake(true), Options{})
	before := len(m.tables)
	m = run(t, m, TablesLoadedMsg{Tables: nil, Gen: m.tablesGen - 1})
	if len(m.tables) != before {
		t.Fatal("stale listing should be dropped")
	}
}

func TestGlobalKeys(t *testing.T) {
	m := newApp(t, newFake(true), Options{})

	t.Run("help toggles", func(t *testing.T) {
		m2 := run(t, m, keyMsg("?"))
		if !m2.showHelp {
			t.Fatal("? should open help")
		}
		if !strings.Contains(m2.View(), "Keyboard Shortcuts") {
			t.Fatalf("expected help screen:\n%s", m2.View())
		}
		m2 = run(t, m2, keyMsg("esc"))
		if m2.showHelp {
			t.Fatal("esc should close help")
		}
	})

	t.Run("tab switches pane", func(t *testing.T) {
		if m.focusedPane != PaneSidebar {
			t.Fatalf("focusedPane = %v", m.focusedPane)
		}
		m2 := run(t, m, keyMsg("tab"))
		if m2.focusedPane != PaneMain {
			t.Fatal("tab should focus the main pane")
		}
	})

	t.Run("ctrl+b hides sidebar", func(t *testing.T) {
		m2 := run(t, m, keyMsg("ctrl+b"))
		if m2.showSidebar || m2.focusedPane != PaneMain {
			t.Fatal("ctrl+b should hide the sidebar and focus main")
		}
	})

	t.Run("ctrl+q quits", func(t *testing.T) {
		updated, cmd := m.Update(keyMsg("ctrl+q"))
		if !updated.(Model).quitting {
			t.Fatal("expected quitting")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatal("expected tea.Quit")
		}
	})
}

func TestSearchCapturesGlobalKeys(t *testing.T) {
	m := newApp(t, newFake(true), Options{})
	m = run(t, m, NavigateMsg{Screen: ScreenTables})
	m = run(t, m, keyMsg("/"), keyMsg("?"))
	if m.showHelp {
		t.Fatal("? while searching should be typed, not open help")
	}
	if !m.tablelist.Filtering() {
		t.Fatal("expected filter mode")
	}
}
