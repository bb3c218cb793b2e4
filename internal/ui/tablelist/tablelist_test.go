package tablelist

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	appmsg "github.com/sadopc/supadmin/internal/msg"
	"github.com/sadopc/supadmin/internal/schema"
	"github.com/sadopc/supadmin/internal/theme"
)

func init() {
	theme.Current = theme.Default()
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func newList(t *testing.T) Model {
	t.Helper()
	m := New()
	m.SetSize(80, 40)
	m.SetTables([]schema.TableInfo{
		{Name: "orders", RecordCount: 12, Description: "Customer orders"},
		{Name: "products", RecordCount: 3},
		{Name: "audit_events", RecordCount: 0},
	}, func(name string) string {
		if name == "audit_events" {
			return "Events"
		}
		return name
	})
	m.Focus()
	return m
}

func TestSortedByLabel(t *testing.T) {
	m := newList(t)
	got := strings.Join(m.Shown(), ",")
	if got != "audit_events,orders,products" {
		t.Fatalf("Shown() = %s", got)
	}
}

func TestFuzzySearch(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"ord", []string{"orders"}},
		{"prd", []string{"products"}},
		{"evt", []string{"audit_events"}},
		{"zzz", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			m := newList(t)
			m, _ = m.Update(runes("/"))
			if !m.Filtering() {
				t.Fatal("expected filtering after /")
			}
			for _, r := range tt.query {
				m, _ = m.Update(runes(string(r)))
			}
			got := m.Shown()
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Fatalf("Shown() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesDisplayName(t *testing.T) {
	m := newList(t)
	m, _ = m.Update(runes("/"))
	for _, r := range "Events" {
		m, _ = m.Update(runes(string(r)))
	}
	if got := m.Shown(); len(got) != 1 || got[0] != "audit_events" {
		t.Fatalf("Shown() = %v", got)
	}
}

func TestEscClearsSearch(t *testing.T) {
	m := newList(t)
	m, _ = m.Update(runes("/"))
	m, _ = m.Update(runes("o"))
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEscape})
	if m.Filtering() {
		t.Fatal("esc should leave the search box")
	}
	if len(m.Shown()) != 3 {
		t.Fatalf("esc should clear the filter, got %v", m.Shown())
	}
}

func TestEnterOpensTable(t *testing.T) {
	m := newList(t)
	m, _ = m.Update(runes("j"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected command")
	}
	nav, ok := cmd().(appmsg.NavigateMsg)
	if !ok || nav.Table != "orders" || nav.Screen != appmsg.ScreenTableView {
		t.Fatalf("unexpected %#v", cmd())
	}
}

func TestEnterFromSearch(t *testing.T) {
	m := newList(t)
	m, _ = m.Update(runes("/"))
	m, _ = m.Update(runes("p"))
	m, _ = m.Update(runes("r"))
	m, _ = m.Update(runes("o"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected command")
	}
	if nav := cmd().(appmsg.NavigateMsg); nav.Table != "products" {
		t.Fatalf("opened %q, want products", nav.Table)
	}
}

func TestEmptyFilterHasNoSelection(t *testing.T) {
	m := newList(t)
	m, _ = m.Update(runes("/"))
	m, _ = m.Update(runes("q"))
	m, _ = m.Update(runes("q"))
	m, _ = m.Update(runes("q"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("enter with no matches should do nothing")
	}
}

func TestView(t *testing.T) {
	m := newList(t)
	view := m.View()
	for _, want := range []string{"Tables", "Events", "(audit_events)", "12 records", "Customer orders"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestViewStates(t *testing.T) {
	m := New()
	m.SetSize(80, 20)
	if !strings.Contains(m.View(), "Loading") {
		t.Fatalf("expected loading:\n%s", m.View())
	}
	m.SetTables(nil, nil)
	if !strings.Contains(m.View(), "No tables found") {
		t.Fatalf("expected empty text:\n%s", m.View())
	}
	m.SetError(errors.New("listing failed"))
	if !strings.Contains(m.View(), "listing failed") {
		t.Fatalf("expected error:\n%s", m.View())
	}
}
