package render

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Line is one display line of review text.
type Line struct {
	Tokens []Token
	Code   bool // inside a fenced code block
	Fence  bool // the ``` delimiter itself
}

// Token is a syntax-highlighted chunk of text.
type Token struct {
	Text  string
	Color string // hex color, empty for default
}

// Plain returns the concatenated plain text of all tokens.
func (l Line) Plain() string {
	var b strings.Builder
	for _, t := range l.Tokens {
		b.WriteString(t.Text)
	}
	return b.String()
}

// Body splits review text into display lines, highlighting fenced code
// blocks by their info string (```go, ```python ...).
func Body(text string) []Line {
	var (
		out   []Line
		code  []string
		lang  string
		inFen bool
	)
	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(raw)
		if strings.HasPrefix(trimmed, "```") {
			if inFen {
				out = append(out, highlightCode(lang, code)...)
				code = code[:0]
			} else {
				lang = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			}
			inFen = !inFen
			out = append(out, Line{Tokens: []Token{{Text: raw}}, Fence: true})
			continue
		}
		if inFen {
			code = append(code, raw)
			continue
		}
		out = append(out, Line{Tokens: []Token{{Text: raw}}})
	}
	// An unterminated fence still shows its code.
	if inFen && len(code) > 0 {
		out = append(out, highlightCode(lang, code)...)
	}
	return out
}

func highlightCode(lang string, lines []string) []Line {
	hl := HighlightLines(lang, lines)
	for i := range hl {
		hl[i].Code = true
	}
	return hl
}

// HighlightLines applies syntax highlighting to source lines. lang may be a
// language name ("go"), an alias ("py") or a filename. Returns one Line per
// input line.
func HighlightLines(lang string, lines []string) []Line {
	lexer := lexerFor(lang)
	if lexer == nil {
		return plainLines(lines)
	}

	iterator, err := lexer.Tokenise(nil, strings.Join(lines, "\n"))
	if err != nil {
		return plainLines(lines)
	}

	style := styles.Get("dracula")
	if style == nil {
		style = styles.Fallback
	}

	result := make([]Line, 0, len(lines))
	current := Line{}
	for _, token := range iterator.Tokens() {
		for i, part := range strings.Split(token.Value, "\n") {
			if i > 0 {
				result = append(result, current)
				current = Line{}
			}
			if part != "" {
				current.Tokens = append(current.Tokens, Token{
					Text:  part,
					Color: tokenColor(style, token.Type),
				})
			}
		}
	}
	result = append(result, current)

	// Lexers may swallow the trailing newline or add one.
	if len(result) > len(lines) {
		result = result[:len(lines)]
	}
	for len(result) < len(lines) {
		result = append(result, Line{})
	}
	return result
}

func plainLines(lines []string) []Line {
	result := make([]Line, len(lines))
	for i, line := range lines {
		result[i] = Line{Tokens: []Token{{Text: line}}}
	}
	return result
}

func lexerFor(lang string) chroma.Lexer {
	if lang == "" {
		return nil
	}
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Match(lang)
	}
	if lexer == nil {
		return nil
	}
	return chroma.Coalesce(lexer)
}

func tokenColor(style *chroma.Style, tt chroma.TokenType) string {
	entry := style.Get(tt)
	if entry.Colour.IsSet() {
		return entry.Colour.String()
	}
	return ""
}
