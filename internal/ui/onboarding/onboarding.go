// Package onboarding is the first-run screen that collects the backend
// URL and API keys. It validates the format locally and leaves the live
// check to the app.
package onboarding

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/supadmin/internal/errs"
	"github.com/sadopc/supadmin/internal/i18n"
	appmsg "github.com/sadopc/supadmin/internal/msg"
	"github.com/sadopc/supadmin/internal/session"
	"github.com/sadopc/supadmin/internal/theme"
)

const (
	fieldURL = iota
	fieldKey
	fieldServiceKey
	fieldCount
)

// Model is the onboarding form.
type Model struct {
	inputs  []textinput.Model
	focus   int
	errs    [fieldCount]string
	general string
	pending bool

	lang   string
	width  int
	height int
}

func New() Model {
	m := Model{lang: i18n.Fallback}
	m.inputs = make([]textinput.Model, fieldCount)
	placeholders := [fieldCount]string{
		"https://your-project.supabase.co",
		"eyJhbGciOi...",
		"",
	}
	for i := range m.inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = placeholders[i]
		ti.Width = 50
		if i != fieldURL {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		m.inputs[i] = ti
	}
	m.inputs[fieldURL].Focus()
	return m
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

// SetValues prefills the inputs, e.g. from the environment.
func (m *Model) SetValues(url, key, serviceKey string) {
	m.inputs[fieldURL].SetValue(url)
	m.inputs[fieldKey].SetValue(key)
	m.inputs[fieldServiceKey].SetValue(serviceKey)
}

// Update handles typing, focus and the connect result.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case appmsg.ConnectErrMsg:
		m.pending = false
		m.showError(msg.Err)
		return m, nil

	case appmsg.ConnectedMsg:
		m.pending = false
		m.errs = [fieldCount]string{}
		m.general = ""
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "down":
			focusCmd := m.moveFocus(1)
			return m, focusCmd
		case "shift+tab", "up":
			focusCmd := m.moveFocus(-1)
			return m, focusCmd
		case "enter":
			if m.focus < fieldCount-1 {
				focusCmd := m.moveFocus(1)
				return m, focusCmd
			}
			return m.submit()
		case "ctrl+s":
			return m.submit()
		}
	}

	if m.pending {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	m.errs[m.focus] = ""
	return m, cmd
}

func (m *Model) moveFocus(delta int) tea.Cmd {
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + fieldCount) % fieldCount
	return m.inputs[m.focus].Focus()
}

// submit validates the format and asks the app to connect. The button is
// disabled while a connection attempt is pending.
func (m Model) submit() (Model, tea.Cmd) {
	if m.pending {
		return m, nil
	}
	url := strings.TrimSpace(m.inputs[fieldURL].Value())
	key := strings.TrimSpace(m.inputs[fieldKey].Value())
	serviceKey := strings.TrimSpace(m.inputs[fieldServiceKey].Value())

	m.errs = [fieldCount]string{}
	m.general = ""
	if err := session.ValidateConnection(url, key); err != nil {
		m.showError(err)
		return m, nil
	}
	m.pending = true
	req := appmsg.ConnectRequestMsg{URL: url, Key: key, ServiceKey: serviceKey}
	return m, func() tea.Msg { return req }
}

// showError places err under the input it concerns.
func (m *Model) showError(err error) {
	t := i18n.For(m.lang)
	detail := errs.MessageOf(err)
	switch errs.KindOf(err) {
	case errs.ErrKindInvalidURL:
		m.errs[fieldURL] = t("invalidUrl") + ": " + detail
	case errs.ErrKindInvalidKey:
		m.errs[fieldKey] = t("invalidKey") + ": " + detail
	default:
		m.general = t("connectionFailed") + ": " + detail
	}
}

// View renders the centered card.
func (m Model) View() string {
	th := theme.Current
	t := i18n.For(m.lang)

	labels := [fieldCount]string{t("supabaseUrl"), t("supabaseKey"), t("serviceKey")}
	lines := []string{
		th.DialogTitle.Render(t("welcomeToAdminDB")),
		th.PageSubtitle.Render(t("enterSupabaseCredentials")),
		"",
	}
	for i := range m.inputs {
		label := th.FieldLabel.Render(labels[i])
		if i == fieldURL {
			if hint := m.hostHint(); hint != "" {
				label += "  " + th.FieldHint.Render(hint)
			}
		}
		marker := "  "
		if i == m.focus {
			marker = th.FieldRequired.Render("> ")
		}
		lines = append(lines, marker+label, "  "+m.inputs[i].View())
		if m.errs[i] != "" {
			lines = append(lines, "  "+th.ErrorText.Render(m.errs[i]))
		}
		lines = append(lines, "")
	}
	if m.general != "" {
		lines = append(lines, th.ErrorText.Render(m.general), "")
	}

	button := th.DialogButtonActive.Render(t("connect"))
	if m.pending {
		button = th.DialogButton.Render(t("connecting"))
	}
	lines = append(lines, button, "", th.MutedText.Render("tab "+t("nextField")+"  ctrl+s "+t("connect")+"  ctrl+q "+t("quit")))

	card := th.DialogBorder.Width(min(72, max(m.width-4, 40))).Render(strings.Join(lines, "\n"))
	if m.width == 0 || m.height == 0 {
		return card
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, card)
}

// hostHint tells self-hosted URLs from hosted ones once the URL parses.
func (m Model) hostHint() string {
	url := strings.TrimSpace(m.inputs[fieldURL].Value())
	if url == "" || session.ValidateConnection(url, strings.Repeat("x", session.MinKeyLength+1)) != nil {
		return ""
	}
	if session.IsSelfHosted(url) {
		return i18n.T(m.lang, "selfHosted")
	}
	return i18n.T(m.lang, "hostedOnSupabase")
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) SetLanguage(lang string) { m.lang = lang }

func (m Model) Pending() bool { return m.pending }
