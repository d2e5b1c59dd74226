// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// SEGMENT PARSING TESTS
// =============================================================================

func TestParseSegmentsPlainProse(t *testing.T) {
	segments := ParseSegments("hello world")
	require.Len(t, segments, 1)
	assert.False(t, segments[0].IsCode)
	assert.Equal(t, "hello world", segments[0].Content)
}

func TestParseSegmentsFencedBlock(t *testing.T) {
	content := "before\n```go\nfmt.Println(\"hi\")\n```\nafter"
	segments := ParseSegments(content)
	require.Len(t, segments, 3)

	assert.False(t, segments[0].IsCode)
	assert.Equal(t, "before", segments[0].Content)

	assert.True(t, segments[1].IsCode)
	assert.Equal(t, "go", segments[1].Language)
	assert.Equal(t, "fmt.Println(\"hi\")", segments[1].Content)

	assert.False(t, segments[2].IsCode)
	assert.Equal(t, "after", segments[2].Content)
}

func TestParseSegmentsUnterminatedFence(t *testing.T) {
	// A fence still streaming in must not break rendering; everything
	// after it is treated as code.
	segments := ParseSegments("text\n```python\nprint(1)")
	require.Len(t, segments, 2)
	assert.False(t, segments[0].IsCode)
	assert.True(t, segments[1].IsCode)
	assert.Equal(t, "python", segments[1].Language)
	assert.Equal(t, "print(1)", segments[1].Content)
}

func TestParseSegmentsEmptyCodeBlock(t *testing.T) {
	segments := ParseSegments("```\n```")
	require.Len(t, segments, 1)
	assert.True(t, segments[0].IsCode)
	assert.Equal(t, "", segments[0].Content)
}

// =============================================================================
// INLINE PARSING TESTS
// =============================================================================

func TestParseInlineStyles(t *testing.T) {
	spans := ParseInline("a **b** *c* `d` e")
	require.Len(t, spans, 7)

	assert.Equal(t, InlineSpan{Text: "a ", Style: InlinePlain}, spans[0])
	assert.Equal(t, InlineSpan{Text: "b", Style: InlineBold}, spans[1])
	assert.Equal(t, InlineSpan{Text: " ", Style: InlinePlain}, spans[2])
	assert.Equal(t, InlineSpan{Text: "c", Style: InlineItalic}, spans[3])
	assert.Equal(t, InlineSpan{Text: " ", Style: InlinePlain}, spans[4])
	assert.Equal(t, InlineSpan{Text: "d", Style: InlineCode}, spans[5])
	assert.Equal(t, InlineSpan{Text: " e", Style: InlinePlain}, spans[6])
}

func TestParseInlineUnmatchedMarkersStayLiteral(t *testing.T) {
	cases := []string{
		"unmatched **bold start",
		"stray * asterisk",
		"lone ` backtick",
		"trailing **",
	}
	for _, input := range cases {
		spans := ParseInline(input)
		var joined string
		for _, s := range spans {
			joined += s.Text
		}
		assert.Equal(t, input, joined, "input %q must survive verbatim", input)
	}
}

func TestParseInlineLeftToRightFirstMatchWins(t *testing.T) {
	// The opening ** claims the first closing **; the rest is literal.
	spans := ParseInline("**a** ** b")
	require.GreaterOrEqual(t, len(spans), 2)
	assert.Equal(t, InlineSpan{Text: "a", Style: InlineBold}, spans[0])

	var rest string
	for _, s := range spans[1:] {
		assert.Equal(t, InlinePlain, s.Style)
		rest += s.Text
	}
	assert.Equal(t, " ** b", rest)
}

func TestParseInlineEmptySpansRenderLiteral(t *testing.T) {
	// "****" has no content between markers, so it stays literal.
	spans := ParseInline("****")
	var joined string
	for _, s := range spans {
		assert.Equal(t, InlinePlain, s.Style)
		joined += s.Text
	}
	assert.Equal(t, "****", joined)
}

func TestParseInlineNoMarkersSingleSpan(t *testing.T) {
	spans := ParseInline("plain text with no styling")
	require.Len(t, spans, 1)
	assert.Equal(t, InlinePlain, spans[0].Style)
}

func TestParseInlineUnicode(t *testing.T) {
	// UNICODE: rune indexing must not split multibyte characters.
	spans := ParseInline("reporte **dañado** en baño")
	require.Len(t, spans, 3)
	assert.Equal(t, InlineSpan{Text: "dañado", Style: InlineBold}, spans[1])
	assert.Equal(t, " en baño", spans[2].Text)
}

// =============================================================================
// RENDER IDEMPOTENCE TESTS
// =============================================================================

func TestRenderMarkdownIdempotentOnPlainText(t *testing.T) {
	input := "already rendered output with no markers"
	once := RenderMarkdown(input, 80)
	twice := RenderMarkdown(once, 80)
	assert.Equal(t, once, twice)
}

func TestRenderInlineIdempotent(t *testing.T) {
	// Styled output contains no marker characters, so feeding it back
	// through the renderer is a no-op.
	inputs := []string{
		"plain",
		"con **negrita** y *cursiva*",
		"inline `code` span",
	}
	for _, input := range inputs {
		once := RenderInline(input)
		twice := RenderInline(once)
		assert.Equal(t, once, twice, "input %q", input)
	}
}

func TestRenderMarkdownNeverErrorsOnPartialInput(t *testing.T) {
	partials := []string{
		"",
		"```",
		"```go\nfunc ma",
		"**",
		"`",
		"half a **sente",
	}
	for _, p := range partials {
		assert.NotPanics(t, func() { RenderMarkdown(p, 80) })
	}
}
