// Package markdown renders the small Markdown subset used by the site's
// informational pages: headings, paragraphs, lists, block quotes, rules and
// inline emphasis, code and links.
package markdown

import (
	"context"
	"html"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/a-h/templ"
)

var (
	reStrong  = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reEm      = regexp.MustCompile(`\*([^*]+)\*`)
	reCode    = regexp.MustCompile("`([^`]+)`")
	reLink    = regexp.MustCompile(`\[([^\]]*)\]\(([^)]*)\)`)
	reOrdered = regexp.MustCompile(`^\d+\.\s+`)
	reAnchor  = regexp.MustCompile(`[^a-z0-9]+`)
)

// Component returns a templ.Component that writes md as HTML.
func Component(md string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, Render(md))
		return err
	})
}

type block int

const (
	none block = iota
	para
	bullets
	numbered
	quote
)

var closing = map[block]string{
	para:     "</p>\n",
	bullets:  "</ul>\n",
	numbered: "</ol>\n",
	quote:    "</blockquote>\n",
}

type renderer struct {
	out  strings.Builder
	open block
}

func (r *renderer) enter(b block, tag string) {
	if r.open == b {
		return
	}
	r.close()
	r.out.WriteString(tag)
	r.open = b
}

func (r *renderer) close() {
	r.out.WriteString(closing[r.open])
	r.open = none
}

// Render converts md to HTML. Raw HTML in the input is escaped.
func Render(md string) string {
	var r renderer
	for _, raw := range strings.Split(md, "\n") {
		line := strings.TrimRight(raw, " \t\r")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			r.close()
		case trimmed == "---" || trimmed == "***":
			r.close()
			r.out.WriteString("<hr/>\n")
		case headingLevel(trimmed) > 0:
			r.close()
			level := headingLevel(trimmed)
			text := strings.TrimSpace(trimmed[level:])
			tag := "h" + string(rune('0'+level))
			r.out.WriteString("<" + tag + ` id="` + Anchor(text) + `">` + Inline(text) + "</" + tag + ">\n")
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			r.enter(bullets, "<ul>\n")
			r.out.WriteString("<li>" + Inline(strings.TrimSpace(trimmed[2:])) + "</li>\n")
		case reOrdered.MatchString(trimmed):
			r.enter(numbered, "<ol>\n")
			r.out.WriteString("<li>" + Inline(reOrdered.ReplaceAllString(trimmed, "")) + "</li>\n")
		case strings.HasPrefix(trimmed, ">"):
			if r.open == quote {
				r.out.WriteString(" ")
			}
			r.enter(quote, "<blockquote>")
			r.out.WriteString(Inline(strings.TrimSpace(trimmed[1:])))
		default:
			if r.open == para {
				r.out.WriteString(" ")
			}
			r.enter(para, "<p>")
			r.out.WriteString(Inline(trimmed))
		}
	}
	r.close()
	return r.out.String()
}

// headingLevel returns 1-3 for "# ", "## " and "### " lines, else 0.
func headingLevel(line string) int {
	for level := 3; level >= 1; level-- {
		if strings.HasPrefix(line, strings.Repeat("#", level)+" ") {
			return level
		}
	}
	return 0
}

// Title returns the text of the first level-one heading, or "".
func Title(md string) string {
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if headingLevel(line) == 1 {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

// Body returns md without its first level-one heading.
func Body(md string) string {
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		if headingLevel(strings.TrimSpace(line)) == 1 {
			return strings.Join(append(lines[:i:i], lines[i+1:]...), "\n")
		}
	}
	return md
}

// Anchor turns heading text into a fragment id.
func Anchor(text string) string {
	return strings.Trim(reAnchor.ReplaceAllString(strings.ToLower(text), "-"), "-")
}

// Inline escapes s and applies code spans, links, strong and emphasis.
// Code spans are left unformatted.
func Inline(s string) string {
	parts := reCode.Split(s, -1)
	codes := reCode.FindAllStringSubmatch(s, -1)

	var b strings.Builder
	for i, part := range parts {
		b.WriteString(inlineText(part))
		if i < len(codes) {
			b.WriteString("<code>" + html.EscapeString(codes[i][1]) + "</code>")
		}
	}
	return b.String()
}

func inlineText(s string) string {
	var b strings.Builder
	last := 0
	for _, m := range reLink.FindAllStringSubmatchIndex(s, -1) {
		b.WriteString(emphasis(html.EscapeString(s[last:m[0]])))
		label := emphasis(html.EscapeString(s[m[2]:m[3]]))
		if href := SafeURL(s[m[4]:m[5]]); href != "" {
			b.WriteString(`<a href="` + href + `"` + linkAttrs(href) + `>` + label + `</a>`)
		} else {
			b.WriteString(label)
		}
		last = m[1]
	}
	b.WriteString(emphasis(html.EscapeString(s[last:])))
	return b.String()
}

func emphasis(s string) string {
	s = reStrong.ReplaceAllString(s, "<strong>$1</strong>")
	return reEm.ReplaceAllString(s, "<em>$1</em>")
}

func linkAttrs(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return ` rel="noopener noreferrer" target="_blank"`
	}
	return ""
}

// SafeURL returns raw escaped for an href attribute, or "" when the scheme
// is not one of http, https, mailto or tel. Site-relative URLs are allowed.
func SafeURL(raw string) string {
	val := strings.TrimSpace(raw)
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	u, err := url.Parse(val)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	}
	return ""
}
