// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromastyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/unialerta/uce-tui/internal/ui/styles"
)

// =============================================================================
// CODE BLOCK
// =============================================================================

// CodeBlock renders a fenced code block with syntax highlighting and
// line numbers.
type CodeBlock struct {
	Language string
	Code     string
	MaxWidth int

	// Style is the chroma style name; empty uses monokai.
	Style string
}

var (
	codeBorderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(styles.Overlay).
			Padding(0, 1)

	codeLangStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Italic(true)

	lineNumberStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)
)

// Render renders the block.
func (cb CodeBlock) Render() string {
	code := strings.TrimSuffix(cb.Code, "\n")
	highlighted := highlightCode(code, cb.Language, cb.styleName())

	lines := strings.Split(highlighted, "\n")
	gutterWidth := len(strconv.Itoa(len(lines)))

	var b strings.Builder
	if cb.Language != "" {
		b.WriteString(codeLangStyle.Render(cb.Language))
		b.WriteString("\n")
	}
	for i, line := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		num := strconv.Itoa(i + 1)
		b.WriteString(lineNumberStyle.Render(strings.Repeat(" ", gutterWidth-len(num)) + num + " "))
		b.WriteString(line)
	}

	style := codeBorderStyle
	if cb.MaxWidth > 4 {
		style = style.MaxWidth(cb.MaxWidth)
	}
	return style.Render(b.String())
}

// styleName returns the configured chroma style.
func (cb CodeBlock) styleName() string {
	if cb.Style != "" {
		return cb.Style
	}
	return "monokai"
}

// highlightCode runs chroma over the code. On any failure the raw code
// comes back unstyled.
func highlightCode(code, language, styleName string) string {
	var lexer chroma.Lexer
	if language != "" {
		lexer = lexers.Get(language)
	}
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromastyles.Get(styleName)
	if style == nil {
		style = chromastyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		return code
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var b strings.Builder
	if err := formatter.Format(&b, style, iterator); err != nil {
		return code
	}
	return strings.TrimSuffix(b.String(), "\n")
}
