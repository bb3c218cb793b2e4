package record

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/supadmin/internal/theme"
)

// Highlighter colours JSON documents with the active theme.
type Highlighter struct {
	lexer chroma.Lexer
}

// NewHighlighter returns a JSON highlighter.
func NewHighlighter() *Highlighter {
	l := lexers.Get("JSON")
	if l == nil {
		l = lexers.Fallback
	}
	return &Highlighter{lexer: chroma.Coalesce(l)}
}

// Highlight styles each token of src. Newlines are emitted unstyled so a
// multi-line token never carries escape codes across lines.
func (h *Highlighter) Highlight(src string, th *theme.Theme) string {
	if th == nil {
		return src
	}
	iter, err := h.lexer.Tokenise(nil, src)
	if err != nil {
		return src
	}

	var b strings.Builder
	b.Grow(len(src) * 2)
	for _, tok := range iter.Tokens() {
		if tok.Value == "" {
			continue
		}
		style, ok := styleFor(tok.Type, th)
		if !ok {
			b.WriteString(tok.Value)
			continue
		}
		lines := strings.Split(tok.Value, "\n")
		for i, line := range lines {
			if line != "" {
				b.WriteString(style.Render(line))
			}
			if i < len(lines)-1 {
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}

// styleFor maps a token type to a theme style. Object keys lex as
// NameTag in chroma's JSON lexer.
func styleFor(tt chroma.TokenType, th *theme.Theme) (lipgloss.Style, bool) {
	switch {
	case tt == chroma.NameTag:
		return th.JSONKey, true
	case tt.InSubCategory(chroma.LiteralString):
		return th.JSONString, true
	case tt.InSubCategory(chroma.LiteralNumber):
		return th.JSONNumber, true
	case tt == chroma.KeywordConstant:
		return th.JSONLiteral, true
	case tt == chroma.Punctuation:
		return th.JSONPunctuation, true
	}
	return lipgloss.Style{}, false
}
