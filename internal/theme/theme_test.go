package theme

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestThemes_AllRegistered(t *testing.T) {
	for _, name := range Names() {
		if _, ok := Themes[name]; !ok {
			t.Errorf("expected theme %q to be registered", name)
		}
	}
	if len(Themes) != len(Names()) {
		t.Errorf("Names() = %v but %d themes registered", Names(), len(Themes))
	}
}

func TestThemes_NamesMatch(t *testing.T) {
	for name, th := range Themes {
		if th.Name != name {
			t.Errorf("theme registered as %q has Name=%q", name, th.Name)
		}
	}
}

func TestDefault(t *testing.T) {
	d := Default()
	if d == nil {
		t.Fatal("Default() returned nil")
	}
	if d.Name != "default" {
		t.Errorf("Default().Name = %q, want %q", d.Name, "default")
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"default", "default"},
		{"light", "light"},
		{"nonexistent", "default"},
		{"", "default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := Get(tt.name)
			if th == nil {
				t.Fatalf("Get(%q) returned nil", tt.name)
			}
			if th.Name != tt.want {
				t.Errorf("Get(%q).Name = %q, want %q", tt.name, th.Name, tt.want)
			}
		})
	}
}

func TestCurrent_CanBeSwapped(t *testing.T) {
	original := Current
	defer func() { Current = original }()

	Current = Get("light")
	if Current.Name != "light" {
		t.Errorf("Current.Name = %q after swap", Current.Name)
	}
}

func TestThemesRender(t *testing.T) {
	for name, th := range Themes {
		if th.GridHeader.Render("id") == "" {
			t.Errorf("%s: GridHeader rendered empty", name)
		}
		if th.DialogBorder.Render("x") == "" {
			t.Errorf("%s: DialogBorder rendered empty", name)
		}
	}
}

func TestBuildUsesPalette(t *testing.T) {
	th := build("custom", palette{fg: "#112233", border: "#445566"})
	if got := th.GridCell.GetForeground(); got != lipgloss.Color("#112233") {
		t.Errorf("GridCell foreground = %v, want #112233", got)
	}
	if got := th.SidebarBorder.GetBorderTopForeground(); got != lipgloss.Color("#445566") {
		t.Errorf("SidebarBorder border = %v, want #445566", got)
	}
}
