// Package form is the create/edit modal for one row. It turns its inputs
// into a typed row and hands it to the app as SubmitFormMsg.
package form

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/supadmin/internal/backend"
	"github.com/sadopc/supadmin/internal/errs"
	"github.com/sadopc/supadmin/internal/i18n"
	appmsg "github.com/sadopc/supadmin/internal/msg"
	"github.com/sadopc/supadmin/internal/schema"
	"github.com/sadopc/supadmin/internal/theme"
)

// CancelledMsg is sent when the user closes the form without saving.
type CancelledMsg struct{}

// rawField names the single JSON input used when a table's columns are
// unknown.
const rawField = ""

// Model is the form modal.
type Model struct {
	mode   appmsg.FormMode
	table  string
	id     string
	fields []schema.TableField
	inputs []textinput.Model
	orig   []string

	focus     int
	fieldErrs map[int]string
	formErr   string
	pending   bool
	visible   bool

	lang   string
	width  int
	height int
}

func New() Model {
	return Model{lang: i18n.Fallback, fieldErrs: map[int]string{}}
}

// Open shows the form for req. Primary-key columns are never editable:
// the backend assigns them on create and they identify the row on edit.
func (m *Model) Open(req appmsg.OpenFormMsg) tea.Cmd {
	m.mode = req.Mode
	m.table = req.Table
	m.id = req.ID
	m.fields = schema.CreatableFields(req.Fields)
	m.fieldErrs = map[int]string{}
	m.formErr = ""
	m.pending = false
	m.focus = 0
	m.visible = true

	if len(m.fields) == 0 {
		m.fields = []schema.TableField{{Name: rawField, Type: "object"}}
	}

	pk := schema.PrimaryKey(req.Fields)
	m.inputs = make([]textinput.Model, len(m.fields))
	m.orig = make([]string, len(m.fields))
	for i, f := range m.fields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 0
		ti.Width = m.inputWidth()
		ti.Placeholder = placeholder(f)
		if req.Mode == appmsg.FormEdit && req.Row != nil {
			if f.Name == rawField {
				m.orig[i] = rowJSON(req.Row, pk)
			} else if v, ok := req.Row[f.Name]; ok && v != nil {
				m.orig[i] = formatValue(v)
			}
			ti.SetValue(m.orig[i])
		}
		m.inputs[i] = ti
	}
	return m.inputs[0].Focus()
}

func placeholder(f schema.TableField) string {
	switch {
	case f.Name == rawField:
		return `{"column": "value"}`
	case f.Default != "":
		return f.Default
	}
	switch kindOf(f) {
	case kindBool:
		return "true / false"
	case kindJSON:
		return "{}"
	}
	return f.Type
}

// rowJSON renders row without its key column for the raw editor.
func rowJSON(row backend.Row, pk string) string {
	out := make(map[string]any, len(row))
	for k, v := range row {
		if k != pk {
			out[k] = v
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func (m Model) Init() tea.Cmd { return nil }

// Update handles input, focus movement, submit and save results.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.visible {
		return m, nil
	}
	switch msg := msg.(type) {
	case appmsg.SaveErrMsg:
		m.pending = false
		m.formErr = errs.MessageOf(msg.Err)
		return m, nil

	case appmsg.SavedMsg:
		m.pending = false
		m.visible = false
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.visible = false
			return m, func() tea.Msg { return CancelledMsg{} }
		case "ctrl+s":
			return m.submit()
		case "enter":
			if m.focus == len(m.inputs)-1 {
				return m.submit()
			}
			focusCmd := m.moveFocus(1)
			return m, focusCmd
		case "tab", "down":
			focusCmd := m.moveFocus(1)
			return m, focusCmd
		case "shift+tab", "up":
			focusCmd := m.moveFocus(-1)
			return m, focusCmd
		}
	}

	if m.pending {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	delete(m.fieldErrs, m.focus)
	return m, cmd
}

func (m *Model) moveFocus(delta int) tea.Cmd {
	n := len(m.inputs)
	if n == 0 {
		return nil
	}
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + n) % n
	return m.inputs[m.focus].Focus()
}

// submit validates every input and, when all are valid, emits the typed
// values. Nothing is sent while a previous submit is pending.
func (m Model) submit() (Model, tea.Cmd) {
	if m.pending {
		return m, nil
	}
	values, ok := m.collect()
	if !ok {
		return m, nil
	}
	if m.mode == appmsg.FormEdit && len(values) == 0 {
		m.formErr = i18n.T(m.lang, "noChanges")
		return m, nil
	}
	m.pending = true
	m.formErr = ""
	req := appmsg.SubmitFormMsg{Mode: m.mode, Table: m.table, ID: m.id, Values: values}
	return m, func() tea.Msg { return req }
}

// collect builds the row to send. Creates omit empty optional fields so
// column defaults apply; edits send only changed fields, with a cleared
// field becoming null.
func (m *Model) collect() (backend.Row, bool) {
	m.fieldErrs = map[int]string{}
	m.formErr = ""
	values := backend.Row{}
	for i, f := range m.fields {
		raw := m.inputs[i].Value()
		if m.mode == appmsg.FormEdit && raw == m.orig[i] {
			continue
		}
		if f.Name == rawField {
			if strings.TrimSpace(raw) == "" {
				m.fieldErrs[i] = i18n.T(m.lang, "required")
				continue
			}
			obj, err := parseObject(raw)
			if err != nil {
				m.fieldErrs[i] = errs.MessageOf(err)
				continue
			}
			for k, v := range obj {
				values[k] = v
			}
			continue
		}
		if strings.TrimSpace(raw) == "" {
			switch {
			case f.Required && (m.mode == appmsg.FormEdit || f.Default == ""):
				m.fieldErrs[i] = i18n.T(m.lang, "required")
			case m.mode == appmsg.FormEdit:
				values[f.Name] = nil
			}
			continue
		}
		v, err := ParseValue(f, raw)
		if err != nil {
			m.fieldErrs[i] = errs.MessageOf(err)
			continue
		}
		values[f.Name] = v
	}
	return values, len(m.fieldErrs) == 0
}

// View renders the modal.
func (m Model) View() string {
	if !m.visible {
		return ""
	}
	th := theme.Current
	t := i18n.For(m.lang)

	title := t("addRecord")
	if m.mode == appmsg.FormEdit {
		title = fmt.Sprintf("%s #%s", t("editRecord"), m.id)
	}
	lines := []string{th.DialogTitle.Render(title + " · " + m.table), ""}

	for i, f := range m.fields {
		label := f.Name
		if label == rawField {
			label = "JSON"
		}
		label = th.FieldLabel.Render(label)
		if f.Required {
			label += th.FieldRequired.Render(" *")
		}
		if f.Name != rawField {
			label += " " + th.FieldHint.Render(f.Type)
		}
		marker := "  "
		if i == m.focus {
			marker = th.FieldRequired.Render("> ")
		}
		lines = append(lines, marker+label, "  "+m.inputs[i].View())
		if e, ok := m.fieldErrs[i]; ok {
			lines = append(lines, "  "+th.ErrorText.Render(e))
		}
	}

	if m.formErr != "" {
		lines = append(lines, "", th.ErrorText.Render(m.formErr))
	}
	lines = append(lines, "")
	if m.pending {
		lines = append(lines, th.WarningText.Render(t("saving")))
	} else {
		lines = append(lines, th.MutedText.Render("ctrl+s "+t("save")+"  tab "+t("nextField")+"  esc "+t("cancel")))
	}
	return th.DialogBorder.Width(m.boxWidth()).Render(strings.Join(lines, "\n"))
}

func (m Model) boxWidth() int {
	w := 70
	if m.width > 0 && w > m.width-4 {
		w = m.width - 4
	}
	return w
}

func (m Model) inputWidth() int {
	return max(m.boxWidth()-10, 10)
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	for i := range m.inputs {
		m.inputs[i].Width = m.inputWidth()
	}
}

func (m *Model) SetLanguage(lang string) { m.lang = lang }

func (m Model) Visible() bool { return m.visible }

func (m *Model) Hide() { m.visible = false }

func (m Model) Pending() bool { return m.pending }

func (m Model) Mode() appmsg.FormMode { return m.mode }

func (m Model) Table() string { return m.table }

// FieldNames lists the editable fields in order.
func (m Model) FieldNames() []string {
	out := make([]string, len(m.fields))
	for i, f := range m.fields {
		out[i] = f.Name
	}
	return out
}
