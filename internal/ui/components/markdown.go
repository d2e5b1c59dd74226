// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the UniAlerta TUI.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/unialerta/uce-tui/internal/ui/styles"
)

// =============================================================================
// MARKDOWN SEGMENTS
// =============================================================================

// Segment is a top-level piece of assistant output: prose or a fenced
// code block.
type Segment struct {
	IsCode   bool
	Language string
	Content  string
}

// ParseSegments splits content on ``` fences. An unterminated fence is
// tolerated: everything after it becomes a code segment, so streaming
// output renders sensibly before the closing fence arrives.
func ParseSegments(content string) []Segment {
	var segments []Segment
	lines := strings.Split(content, "\n")

	var current strings.Builder
	var language string
	inCode := false

	flush := func(isCode bool) {
		text := current.String()
		current.Reset()
		if text == "" && !isCode {
			return
		}
		// Trim the trailing newline added by the line join.
		text = strings.TrimSuffix(text, "\n")
		segments = append(segments, Segment{IsCode: isCode, Language: language, Content: text})
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inCode {
				flush(true)
				language = ""
				inCode = false
			} else {
				flush(false)
				language = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
				inCode = true
			}
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	flush(inCode)

	return segments
}

// =============================================================================
// INLINE SPANS
// =============================================================================

// InlineStyle classifies an inline span.
type InlineStyle int

const (
	InlinePlain InlineStyle = iota
	InlineBold
	InlineItalic
	InlineCode
)

// InlineSpan is one styled run of text.
type InlineSpan struct {
	Text  string
	Style InlineStyle
}

// ParseInline splits prose into styled spans: **bold**, *italic*, and
// `code`. Matching is left-to-right and first-match-wins with no
// nesting. A marker without its closing pair renders literally, which
// keeps half-arrived streaming text readable.
func ParseInline(text string) []InlineSpan {
	var spans []InlineSpan
	var plain strings.Builder

	flushPlain := func() {
		if plain.Len() > 0 {
			spans = append(spans, InlineSpan{Text: plain.String(), Style: InlinePlain})
			plain.Reset()
		}
	}

	runes := []rune(text)
	i := 0
	for i < len(runes) {
		rest := string(runes[i:])

		if strings.HasPrefix(rest, "**") {
			if end := strings.Index(rest[2:], "**"); end > 0 {
				flushPlain()
				spans = append(spans, InlineSpan{Text: rest[2 : 2+end], Style: InlineBold})
				i += len([]rune(rest[:end+4]))
				continue
			}
		} else if runes[i] == '*' {
			if end := strings.IndexRune(rest[1:], '*'); end > 0 {
				flushPlain()
				spans = append(spans, InlineSpan{Text: rest[1 : 1+end], Style: InlineItalic})
				i += len([]rune(rest[:end+2]))
				continue
			}
		} else if runes[i] == '`' {
			if end := strings.IndexRune(rest[1:], '`'); end > 0 {
				flushPlain()
				spans = append(spans, InlineSpan{Text: rest[1 : 1+end], Style: InlineCode})
				i += len([]rune(rest[:end+2]))
				continue
			}
		}

		plain.WriteRune(runes[i])
		i++
	}
	flushPlain()

	return spans
}

// =============================================================================
// RENDERING
// =============================================================================

var (
	inlineBoldStyle   = lipgloss.NewStyle().Bold(true)
	inlineItalicStyle = lipgloss.NewStyle().Italic(true)
	inlineCodeStyle   = lipgloss.NewStyle().
				Foreground(styles.Cyan).
				Background(styles.SurfaceDim)
)

// RenderInline renders prose with inline styling applied.
func RenderInline(text string) string {
	var b strings.Builder
	for _, span := range ParseInline(text) {
		switch span.Style {
		case InlineBold:
			b.WriteString(inlineBoldStyle.Render(span.Text))
		case InlineItalic:
			b.WriteString(inlineItalicStyle.Render(span.Text))
		case InlineCode:
			b.WriteString(inlineCodeStyle.Render(span.Text))
		default:
			b.WriteString(span.Text)
		}
	}
	return b.String()
}

// RenderMarkdown renders assistant output: fenced code blocks through
// the syntax highlighter, prose through the inline renderer. Safe on
// partial input and never errors.
func RenderMarkdown(content string, maxWidth int) string {
	var b strings.Builder
	for i, seg := range ParseSegments(content) {
		if i > 0 {
			b.WriteString("\n")
		}
		if seg.IsCode {
			block := CodeBlock{Language: seg.Language, Code: seg.Content, MaxWidth: maxWidth}
			b.WriteString(block.Render())
			continue
		}
		for j, line := range strings.Split(seg.Content, "\n") {
			if j > 0 {
				b.WriteString("\n")
			}
			b.WriteString(RenderInline(line))
		}
	}
	return b.String()
}
