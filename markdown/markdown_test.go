package markdown

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInline(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"**bold**", "<strong>bold</strong>"},
		{"text *italic* more", "text <em>italic</em> more"},
		{"**bold *italic* text**", "<strong>bold <em>italic</em> text</strong>"},
		{"use `a**b**`", "use <code>a**b**</code>"},
		{"<script>", "&lt;script&gt;"},
		{"[home](/)", `<a href="/">home</a>`},
		{"[docs](https://example.com/a_b)", `<a href="https://example.com/a_b" rel="noopener noreferrer" target="_blank">docs</a>`},
		{"[**Email**](mailto:a@b.c)", `<a href="mailto:a@b.c"><strong>Email</strong></a>`},
		{"[bad](javascript:alert(1))", "bad)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Inline(tt.input), "Inline(%q)", tt.input)
	}
}

func TestRenderBlocks(t *testing.T) {
	md := "# Title\n\nFirst line\nsecond line\n\n## Section Two\n- one\n- two\n\n1. a\n2. b\n\n> quoted\n> more\n\n---\n"
	got := Render(md)

	assert.Contains(t, got, `<h1 id="title">Title</h1>`)
	assert.Contains(t, got, "<p>First line second line</p>")
	assert.Contains(t, got, `<h2 id="section-two">Section Two</h2>`)
	assert.Contains(t, got, "<ul>\n<li>one</li>\n<li>two</li>\n</ul>")
	assert.Contains(t, got, "<ol>\n<li>a</li>\n<li>b</li>\n</ol>")
	assert.Contains(t, got, "<blockquote>quoted more</blockquote>")
	assert.Contains(t, got, "<hr/>")
}

func TestRenderListEndsParagraph(t *testing.T) {
	got := Render("intro\n- item")
	assert.Equal(t, "<p>intro</p>\n<ul>\n<li>item</li>\n</ul>\n", got)
}

func TestTitleAndBody(t *testing.T) {
	md := "# About Us\n\nWelcome."
	assert.Equal(t, "About Us", Title(md))
	assert.Equal(t, "\nWelcome.", Body(md))

	assert.Equal(t, "", Title("## Not a title"))
	assert.Equal(t, "no heading", Body("no heading"))
}

func TestSafeURL(t *testing.T) {
	assert.Equal(t, "/about-us", SafeURL("/about-us"))
	assert.Equal(t, "tel:+123", SafeURL(" tel:+123 "))
	assert.Equal(t, "", SafeURL("javascript:alert(1)"))
	assert.Equal(t, "", SafeURL("data:text/html,hi"))
	assert.Equal(t, "", SafeURL("relative/path"))
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Component("Hello **world**").Render(context.Background(), &buf))
	assert.Equal(t, "<p>Hello <strong>world</strong></p>\n", buf.String())
}
