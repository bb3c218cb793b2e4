// Package theme provides the styling for the supadmin terminal UI. Every
// visual element references a lipgloss.Style held in a Theme struct so the
// whole look can be swapped at runtime.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme holds lipgloss.Style values for every UI element in the application.
type Theme struct {
	Name string

	// Sidebar / navigation
	SidebarBorder   lipgloss.Style
	SidebarTitle    lipgloss.Style
	SidebarNav      lipgloss.Style
	SidebarTable    lipgloss.Style
	SidebarCount    lipgloss.Style
	SidebarSelected lipgloss.Style

	// Page chrome
	PageTitle    lipgloss.Style
	PageSubtitle lipgloss.Style

	// Dashboard and table cards
	Card      lipgloss.Style
	CardTitle lipgloss.Style
	CardValue lipgloss.Style
	CardFocus lipgloss.Style
	Bar       lipgloss.Style

	// Data grid
	GridHeader       lipgloss.Style
	GridCell         lipgloss.Style
	GridCellAlt      lipgloss.Style
	GridSelectedRow  lipgloss.Style
	GridSelectedCell lipgloss.Style
	GridEmpty        lipgloss.Style

	// JSON highlighting
	JSONKey         lipgloss.Style
	JSONString      lipgloss.Style
	JSONNumber      lipgloss.Style
	JSONLiteral     lipgloss.Style
	JSONPunctuation lipgloss.Style

	// Record tabs
	TabActive   lipgloss.Style
	TabInactive lipgloss.Style
	TabBar      lipgloss.Style

	// Forms
	FieldLabel    lipgloss.Style
	FieldRequired lipgloss.Style
	FieldHint     lipgloss.Style

	// Status bar
	StatusBar        lipgloss.Style
	StatusBarKey     lipgloss.Style
	StatusBarValue   lipgloss.Style
	StatusBarError   lipgloss.Style
	StatusBarSuccess lipgloss.Style

	// Dialog/Modal
	DialogBorder       lipgloss.Style
	DialogTitle        lipgloss.Style
	DialogButton       lipgloss.Style
	DialogButtonActive lipgloss.Style

	// General
	FocusedBorder   lipgloss.Style
	UnfocusedBorder lipgloss.Style
	ErrorText       lipgloss.Style
	SuccessText     lipgloss.Style
	WarningText     lipgloss.Style
	MutedText       lipgloss.Style
}

// palette is the small set of colours a theme is built from.
type palette struct {
	bg, surface, border, fg, muted string
	accent, accentAlt, green, red  string
	yellow, purple, selBg, selFg   string
	stripe                         string
}

func build(name string, p palette) *Theme {
	c := func(s string) lipgloss.Color { return lipgloss.Color(s) }
	return &Theme{
		Name: name,

		SidebarBorder: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(c(p.border)),
		SidebarTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.accent)).
			PaddingLeft(1),
		SidebarNav: lipgloss.NewStyle().
			Foreground(c(p.fg)),
		SidebarTable: lipgloss.NewStyle().
			Foreground(c(p.accentAlt)),
		SidebarCount: lipgloss.NewStyle().
			Foreground(c(p.muted)).
			Italic(true),
		SidebarSelected: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.selFg)).
			Background(c(p.selBg)),

		PageTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.accent)).
			MarginBottom(1),
		PageSubtitle: lipgloss.NewStyle().
			Foreground(c(p.muted)),

		Card: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(c(p.border)).
			Padding(0, 1),
		CardTitle: lipgloss.NewStyle().
			Foreground(c(p.muted)),
		CardValue: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.fg)),
		CardFocus: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(c(p.accent)).
			Padding(0, 1),
		Bar: lipgloss.NewStyle().
			Foreground(c(p.accent)),

		GridHeader: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.accent)).
			Padding(0, 1),
		GridCell: lipgloss.NewStyle().
			Foreground(c(p.fg)).
			Padding(0, 1),
		GridCellAlt: lipgloss.NewStyle().
			Foreground(c(p.fg)).
			Background(c(p.stripe)).
			Padding(0, 1),
		GridSelectedRow: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.selFg)).
			Background(c(p.selBg)).
			Padding(0, 1),
		GridSelectedCell: lipgloss.NewStyle().
			Bold(true).
			Underline(true).
			Foreground(c(p.selBg)).
			Background(c(p.selFg)).
			Padding(0, 1),
		GridEmpty: lipgloss.NewStyle().
			Foreground(c(p.muted)).
			Italic(true),

		JSONKey: lipgloss.NewStyle().
			Foreground(c(p.accentAlt)),
		JSONString: lipgloss.NewStyle().
			Foreground(c(p.yellow)),
		JSONNumber: lipgloss.NewStyle().
			Foreground(c(p.green)),
		JSONLiteral: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.purple)),
		JSONPunctuation: lipgloss.NewStyle().
			Foreground(c(p.muted)),

		TabActive: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.selFg)).
			Background(c(p.selBg)).
			Padding(0, 2),
		TabInactive: lipgloss.NewStyle().
			Foreground(c(p.muted)).
			Background(c(p.surface)).
			Padding(0, 2),
		TabBar: lipgloss.NewStyle().
			Background(c(p.surface)),

		FieldLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.fg)),
		FieldRequired: lipgloss.NewStyle().
			Foreground(c(p.red)),
		FieldHint: lipgloss.NewStyle().
			Foreground(c(p.muted)).
			Italic(true),

		StatusBar: lipgloss.NewStyle().
			Foreground(c(p.fg)).
			Background(c(p.surface)),
		StatusBarKey: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.selFg)).
			Background(c(p.selBg)).
			Padding(0, 1),
		StatusBarValue: lipgloss.NewStyle().
			Foreground(c(p.fg)).
			Background(c(p.surface)),
		StatusBarError: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.red)).
			Background(c(p.surface)),
		StatusBarSuccess: lipgloss.NewStyle().
			Foreground(c(p.green)).
			Background(c(p.surface)),

		DialogBorder: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(c(p.accent)).
			Padding(1, 2),
		DialogTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.accent)),
		DialogButton: lipgloss.NewStyle().
			Foreground(c(p.fg)).
			Background(c(p.surface)).
			Padding(0, 2).
			MarginRight(1),
		DialogButtonActive: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.selFg)).
			Background(c(p.selBg)).
			Padding(0, 2).
			MarginRight(1),

		FocusedBorder: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(c(p.accent)),
		UnfocusedBorder: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(c(p.border)),
		ErrorText: lipgloss.NewStyle().
			Foreground(c(p.red)),
		SuccessText: lipgloss.NewStyle().
			Foreground(c(p.green)),
		WarningText: lipgloss.NewStyle().
			Foreground(c(p.yellow)),
		MutedText: lipgloss.NewStyle().
			Foreground(c(p.muted)),
	}
}

func newDefaultTheme() *Theme {
	return build("default", palette{
		bg:        "#1C1C1C",
		surface:   "#262626",
		border:    "#3A3A3A",
		fg:        "#E4E4E4",
		muted:     "#8A8A8A",
		accent:    "#3ECF8E",
		accentAlt: "#7DD3FC",
		green:     "#86EFAC",
		red:       "#F87171",
		yellow:    "#FCD34D",
		purple:    "#C4B5FD",
		selBg:     "#24634A",
		selFg:     "#FFFFFF",
		stripe:    "#212121",
	})
}

func newLightTheme() *Theme {
	return build("light", palette{
		bg:        "#FFFFFF",
		surface:   "#F1F5F9",
		border:    "#CBD5E1",
		fg:        "#1E293B",
		muted:     "#64748B",
		accent:    "#059669",
		accentAlt: "#0369A1",
		green:     "#15803D",
		red:       "#B91C1C",
		yellow:    "#A16207",
		purple:    "#7C3AED",
		selBg:     "#D1FAE5",
		selFg:     "#064E3B",
		stripe:    "#F8FAFC",
	})
}

// Themes holds every built-in theme keyed by name.
var Themes = map[string]*Theme{
	"default": newDefaultTheme(),
	"light":   newLightTheme(),
}

// Current is the active theme.
var Current = Themes["default"]

// Default returns the default dark theme.
func Default() *Theme {
	return Themes["default"]
}

// Get returns the theme registered under name, falling back to the
// default theme.
func Get(name string) *Theme {
	if th, ok := Themes[name]; ok {
		return th
	}
	return Default()
}

// Names lists the built-in theme names.
func Names() []string {
	return []string{"default", "light"}
}
