// Package tableview is the paged data grid for one table. Paging, writes
// and exports are requested through messages; the app performs the I/O
// and hands back PageLoadedMsg.
package tableview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/sadopc/supadmin/internal/backend"
	"github.com/sadopc/supadmin/internal/export"
	"github.com/sadopc/supadmin/internal/i18n"
	appmsg "github.com/sadopc/supadmin/internal/msg"
	"github.com/sadopc/supadmin/internal/schema"
	"github.com/sadopc/supadmin/internal/theme"
)

const defaultMaxColWidth = 40

// Model is the grid for one table.
type Model struct {
	table       string
	displayName string
	fields      []schema.TableField
	columns     []string
	rows        []backend.Row
	cells       [][]string

	page     int
	pageSize int
	total    int64
	runID    uint64

	grid      table.Model
	tableCols []table.Column
	viewTop   int
	col       int

	loading     bool
	err         error
	lang        string
	width       int
	height      int
	focused     bool
	maxColWidth int
}

func New() Model {
	return Model{
		grid:        table.New(table.WithFocused(true)),
		page:        1,
		pageSize:    backend.DefaultPageSize,
		lang:        i18n.Fallback,
		maxColWidth: defaultMaxColWidth,
	}
}

func (m Model) Init() tea.Cmd { return nil }

// Open switches the grid to table, resets paging and returns the load
// request for its first page.
func (m *Model) Open(table, displayName string) tea.Cmd {
	m.table = table
	m.displayName = displayName
	m.fields = nil
	m.columns = nil
	m.rows = nil
	m.cells = nil
	m.tableCols = nil
	m.col = 0
	m.total = 0
	m.page = 1
	m.err = nil
	m.viewTop = 0
	m.grid.SetCursor(0)
	return m.load(1)
}

// load marks the grid busy and asks for page. RunID lets the grid drop
// responses to requests it has since superseded.
func (m *Model) load(page int) tea.Cmd {
	m.loading = true
	m.runID++
	req := appmsg.LoadPageMsg{Table: m.table, Page: page, PageSize: m.pageSize, RunID: m.runID}
	return func() tea.Msg { return req }
}

// RunID is the id the next PageLoadedMsg must carry.
func (m Model) RunID() uint64 { return m.runID }

// Update handles page results and grid keys.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case appmsg.PageLoadedMsg:
		if msg.Table != m.table || msg.RunID != m.runID {
			return m, nil
		}
		m.loading = false
		m.err = nil
		m.setPage(msg.Fields, msg.Page)

	case appmsg.PageErrMsg:
		if msg.Table != m.table || msg.RunID != m.runID {
			return m, nil
		}
		m.loading = false
		m.err = msg.Err

	case tea.KeyMsg:
		if !m.focused {
			return m, nil
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.grid.MoveUp(1)
		m.updateViewTop()
	case "down", "j":
		m.grid.MoveDown(1)
		m.updateViewTop()
	case "h", "shift+left":
		if m.col > 0 {
			m.col--
		}
	case "l", "shift+right":
		if m.col < len(m.columns)-1 {
			m.col++
		}
	case "c":
		if req, ok := m.cellEdit(); ok {
			return m, func() tea.Msg { return req }
		}
	case "home", "g":
		m.grid.GotoTop()
		m.updateViewTop()
	case "end", "G":
		m.grid.GotoBottom()
		m.updateViewTop()
	case "n", "right", "pgdown":
		if !m.loading && m.page < m.TotalPages() {
			loadCmd := m.load(m.page + 1)
			return m, loadCmd
		}
	case "p", "left", "pgup":
		if !m.loading && m.page > 1 {
			loadCmd := m.load(m.page - 1)
			return m, loadCmd
		}
	case "r":
		loadCmd := m.load(m.page)
		return m, loadCmd
	case "enter":
		if id, ok := m.selectedID(); ok {
			table := m.table
			return m, func() tea.Msg {
				return appmsg.NavigateMsg{Screen: appmsg.ScreenRecord, Table: table, RecordID: id}
			}
		}
	case "a":
		req := appmsg.OpenFormMsg{Mode: appmsg.FormCreate, Table: m.table, Fields: m.fields}
		return m, func() tea.Msg { return req }
	case "e":
		if id, ok := m.selectedID(); ok {
			req := appmsg.OpenFormMsg{Mode: appmsg.FormEdit, Table: m.table, ID: id, Fields: m.fields, Row: m.rows[m.grid.Cursor()]}
			return m, func() tea.Msg { return req }
		}
	case "d", "delete":
		if id, ok := m.selectedID(); ok {
			req := appmsg.ConfirmDeleteMsg{Table: m.table, ID: id}
			return m, func() tea.Msg { return req }
		}
	case "x", "X":
		format := string(export.FormatCSV)
		if msg.String() == "X" {
			format = string(export.FormatJSON)
		}
		req := appmsg.ExportRequestMsg{Table: m.table, Format: format}
		return m, func() tea.Msg { return req }
	case "esc", "backspace":
		return m, func() tea.Msg { return appmsg.BackMsg{} }
	}
	return m, nil
}

// cellEdit builds a one-field edit for the cell under the cursor. Key
// columns identify the row and cannot be edited in place.
func (m Model) cellEdit() (appmsg.OpenFormMsg, bool) {
	id, ok := m.selectedID()
	if !ok || m.col < 0 || m.col >= len(m.columns) {
		return appmsg.OpenFormMsg{}, false
	}
	name := m.columns[m.col]
	if name == schema.PrimaryKey(m.fields) {
		return appmsg.OpenFormMsg{}, false
	}
	f, found := schema.FieldByName(m.fields, name)
	if !found {
		f = schema.TableField{Name: name, Type: "text"}
	}
	if f.IsPrimaryKey {
		return appmsg.OpenFormMsg{}, false
	}
	return appmsg.OpenFormMsg{
		Mode:   appmsg.FormEdit,
		Table:  m.table,
		ID:     id,
		Fields: []schema.TableField{f},
		Row:    m.rows[m.grid.Cursor()],
	}, true
}

// Refresh refetches the current page.
func (m *Model) Refresh() tea.Cmd { return m.load(m.page) }

// Reload refetches the current page, stepping back one page when the
// last row of a trailing page was deleted.
func (m *Model) Reload() tea.Cmd {
	page := m.page
	if len(m.rows) == 1 && page > 1 {
		page--
	}
	return m.load(page)
}

func (m *Model) setPage(fields []schema.TableField, p *backend.Page) {
	prevPage := m.page
	m.fields = fields
	m.rows = nil
	m.total = 0
	if p != nil {
		m.rows = p.Rows
		m.total = p.Total
		m.page = p.Page
		if p.PageSize > 0 {
			m.pageSize = p.PageSize
		}
	}
	m.columns = gridColumns(export.Columns(fields, m.rows))
	m.cells = make([][]string, len(m.rows))
	for i, r := range m.rows {
		line := make([]string, len(m.columns))
		for j, c := range m.columns {
			line[j] = cellText(r[c])
		}
		m.cells[i] = line
	}
	if m.col >= len(m.columns) {
		m.col = max(len(m.columns)-1, 0)
	}
	m.rebuild()
	if m.page != prevPage {
		m.grid.SetCursor(0)
		m.viewTop = 0
	}
	m.updateViewTop()
}

// gridColumns drops underscore-prefixed columns, which are internal to
// the backend. Exports keep them.
func gridColumns(cols []string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if !strings.HasPrefix(c, "_") {
			out = append(out, c)
		}
	}
	return out
}

// cellText flattens a value onto one line.
func cellText(v any) string {
	s := export.Value(v)
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\t", " ").Replace(s)
}

func (m *Model) rebuild() {
	m.tableCols = autoSizeColumns(m.columns, m.fields, m.cells, m.contentWidth(), m.maxColWidth)
	rows := make([]table.Row, len(m.cells))
	for i, r := range m.cells {
		rows[i] = table.Row(r)
	}
	// The grid renders every row against the current columns, so the old
	// rows go before the columns change and the new rows come after.
	cursor := m.grid.Cursor()
	m.grid.SetRows(nil)
	m.grid.SetColumns(m.tableCols)
	m.grid.SetRows(rows)
	m.grid.SetCursor(cursor)
}

func (m Model) selectedID() (string, bool) {
	c := m.grid.Cursor()
	if c < 0 || c >= len(m.rows) {
		return "", false
	}
	v, ok := m.rows[c][schema.PrimaryKey(m.fields)]
	if !ok || v == nil {
		return "", false
	}
	return export.Value(v), true
}

// TotalPages is the page count for the current total.
func (m Model) TotalPages() int {
	return backend.TotalPages(m.total, m.pageSize)
}

// View renders the header line, the grid and the paging footer.
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}
	th := theme.Current
	t := i18n.For(m.lang)

	name := m.displayName
	if name == "" {
		name = m.table
	}
	title := th.PageTitle.Render(name)
	if name != m.table {
		title += " " + th.PageSubtitle.Render("("+m.table+")")
	}

	var body string
	switch {
	case m.err != nil:
		body = th.ErrorText.Render(m.err.Error())
	case m.loading && len(m.rows) == 0:
		body = th.MutedText.Render(t("loading"))
	case len(m.rows) == 0:
		body = th.GridEmpty.Render(t("noRecords"))
	default:
		body = m.renderGrid()
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, m.wrapBorder(body), m.footer())
}

func (m Model) renderGrid() string {
	th := theme.Current
	w := m.contentWidth()
	visH := m.visibleDataHeight()

	var sb strings.Builder
	sb.WriteString(m.renderHeader(th, w))
	sb.WriteByte('\n')
	sb.WriteString(strings.Repeat("─", w))
	cursor := m.grid.Cursor()
	for i := 0; i < visH; i++ {
		idx := m.viewTop + i
		if idx >= len(m.cells) {
			break
		}
		sb.WriteByte('\n')
		sb.WriteString(m.renderRow(th, idx, idx == cursor, w))
	}
	return sb.String()
}

func (m Model) renderHeader(th *theme.Theme, total int) string {
	var sb strings.Builder
	used := 0
	for _, col := range m.tableCols {
		sb.WriteString(th.GridHeader.Render(padRight(runewidth.Truncate(col.Title, col.Width, "…"), col.Width)))
		used += col.Width + 2
	}
	if used < total {
		sb.WriteString(th.GridHeader.Padding(0).Render(strings.Repeat(" ", total-used)))
	}
	return sb.String()
}

func (m Model) renderRow(th *theme.Theme, idx int, selected bool, total int) string {
	style := th.GridCell
	switch {
	case selected && m.focused:
		style = th.GridSelectedRow
	case idx%2 == 1:
		style = th.GridCellAlt
	}
	var sb strings.Builder
	used := 0
	for j, col := range m.tableCols {
		var v string
		if j < len(m.cells[idx]) {
			v = m.cells[idx][j]
		}
		cell := style
		if selected && m.focused && j == m.col {
			cell = th.GridSelectedCell
		}
		sb.WriteString(cell.Render(padRight(runewidth.Truncate(v, col.Width, "…"), col.Width)))
		used += col.Width + 2
	}
	if used < total {
		sb.WriteString(style.Padding(0).Render(strings.Repeat(" ", total-used)))
	}
	return sb.String()
}

func (m Model) footer() string {
	t := i18n.For(m.lang)
	parts := []string{
		fmt.Sprintf("%s %d %s %d", t("page"), m.page, t("of"), max(m.TotalPages(), 1)),
		fmt.Sprintf("%d %s", m.total, t("recordsCount")),
	}
	if m.loading {
		parts = append(parts, t("loading"))
	}
	hints := "n/p " + t("page") + "  enter " + t("details") + "  a " + t("add") + "  e " + t("edit") +
		"  h/l c " + t("editCell") + "  d " + t("delete") + "  x/X " + t("export")
	return theme.Current.MutedText.Render("  " + strings.Join(parts, " | ") + "    " + hints)
}

func (m Model) wrapBorder(content string) string {
	style := theme.Current.UnfocusedBorder
	if m.focused {
		style = theme.Current.FocusedBorder
	}
	return style.Width(max(m.width-2, 0)).Height(max(m.height-4, 1)).Render(content)
}

func padRight(s string, w int) string {
	if sw := runewidth.StringWidth(s); sw < w {
		return s + strings.Repeat(" ", w-sw)
	}
	return s
}

func (m *Model) contentWidth() int {
	return max(m.width-2, 10)
}

// visibleDataHeight leaves room for the title, the border, the grid
// header with its rule, and the footer.
func (m Model) visibleDataHeight() int {
	return max(m.height-8, 1)
}

func (m *Model) updateViewTop() {
	cursor := m.grid.Cursor()
	visH := m.visibleDataHeight()
	if cursor < m.viewTop {
		m.viewTop = cursor
	}
	if cursor >= m.viewTop+visH {
		m.viewTop = cursor - visH + 1
	}
	if m.viewTop < 0 {
		m.viewTop = 0
	}
}

// autoSizeColumns sizes each column to its widest sampled value, caps it
// at maxCol and scales everything down when the total exceeds maxWidth.
// Primary-key columns are marked in the title.
func autoSizeColumns(cols []string, fields []schema.TableField, rows [][]string, maxWidth, maxCol int) []table.Column {
	if len(cols) == 0 {
		return nil
	}
	if maxCol <= 0 {
		maxCol = defaultMaxColWidth
	}
	titles := make([]string, len(cols))
	widths := make([]int, len(cols))
	for i, c := range cols {
		titles[i] = c
		if f, ok := schema.FieldByName(fields, c); ok && f.IsPrimaryKey {
			titles[i] = c + " *"
		}
		widths[i] = max(runewidth.StringWidth(titles[i]), 4)
	}
	for _, r := range rows {
		for j := 0; j < len(cols) && j < len(r); j++ {
			widths[j] = max(widths[j], runewidth.StringWidth(r[j]))
		}
	}
	total := 0
	for i := range widths {
		widths[i] = min(widths[i], maxCol)
		total += widths[i]
	}

	padding := len(cols) * 2
	if total+padding > maxWidth {
		available := max(maxWidth-padding, len(cols))
		for i := range widths {
			widths[i] = max(widths[i]*available/total, 2)
		}
	}

	out := make([]table.Column, len(cols))
	for i := range cols {
		out[i] = table.Column{Title: titles[i], Width: widths[i]}
	}
	return out
}

// SetSize resizes the grid and recomputes column widths.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.grid.SetHeight(m.visibleDataHeight())
	if len(m.columns) > 0 {
		m.rebuild()
	}
	m.updateViewTop()
}

func (m *Model) SetLanguage(lang string) { m.lang = lang }

func (m *Model) SetPageSize(n int) {
	if n > 0 {
		m.pageSize = n
	}
}

func (m *Model) SetMaxColumnWidth(n int) { m.maxColWidth = n }

func (m *Model) SetDisplayName(name string) { m.displayName = name }

func (m *Model) Focus() { m.focused = true }

func (m *Model) Blur() { m.focused = false }

func (m Model) Table() string { return m.table }

func (m Model) Page() int { return m.page }

func (m Model) Loading() bool { return m.loading }

func (m Model) Fields() []schema.TableField { return m.fields }

// Columns lists the grid's visible columns in display order.
func (m Model) Columns() []string { return m.columns }

// SelectedColumn is the column the cell cursor is on.
func (m Model) SelectedColumn() string {
	if m.col < 0 || m.col >= len(m.columns) {
		return ""
	}
	return m.columns[m.col]
}

// SelectedRow returns the row under the cursor.
func (m Model) SelectedRow() (backend.Row, bool) {
	c := m.grid.Cursor()
	if c < 0 || c >= len(m.rows) {
		return nil, false
	}
	return m.rows[c], true
}
