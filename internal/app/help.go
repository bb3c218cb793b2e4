package app

import (
	"fmt"
	"strings"

	"github.com/sadopc/supadmin/internal/i18n"
	"github.com/sadopc/supadmin/internal/theme"
)

type helpLine struct{ key, desc string }

func (m Model) helpView() string {
	th := theme.Current
	t := i18n.For(m.lang)

	line := func(l helpLine) string {
		return fmt.Sprintf("  %s  %s", th.StatusBarKey.Render(fmt.Sprintf("%-14s", l.key)), l.desc)
	}

	var b strings.Builder
	b.WriteString(th.DialogTitle.Render("supadmin · "+t("keyboardShortcuts")) + "\n\n")
	b.WriteString(th.CardTitle.Render(t("global")) + "\n")
	b.WriteString(m.help.View(m.keyMap) + "\n")

	sections := []struct {
		title string
		lines []helpLine
	}{
		{t("tables"), []helpLine{
			{"/", t("search")},
			{"enter", t("open")},
			{"r", t("refresh")},
		}},
		{t("viewTable"), []helpLine{
			{"n / p", t("next") + " / " + t("previous")},
			{"enter", t("details")},
			{"a", t("addRecord")},
			{"e", t("editRecord")},
			{"h / l, c", t("editCell")},
			{"d", t("deleteRecord")},
			{"x / X", t("export") + " CSV / JSON"},
		}},
		{t("details"), []helpLine{
			{"1 2 3", t("details") + " / " + t("json") + " / " + t("history")},
			{"e / d", t("edit") + " / " + t("delete")},
			{"esc", t("back")},
		}},
		{t("settings"), []helpLine{
			{"enter", t("toggle") + " / " + t("rename")},
			{"space", t("hidden") + " / " + t("visible")},
			{"x", t("resetName")},
		}},
	}
	for _, s := range sections {
		b.WriteString("\n" + th.CardTitle.Render(s.title) + "\n")
		for _, l := range s.lines {
			b.WriteString(line(l) + "\n")
		}
	}

	b.WriteString("\n" + th.MutedText.Render("? / f1 / esc  "+t("close")))
	return th.DialogBorder.Render(b.String())
}
