package gameground

import (
	"errors"
	"io/fs"
	"path"
	"strings"

	"github.com/mygameground/gameground/markdown"
)

// ErrPageNotFound is returned for an unknown static page slug.
var ErrPageNotFound = errors.New("page not found")

// page is an informational page rendered from embedded Markdown.
type page struct {
	Slug        string
	Title       string
	Description string
	HTML        string
}

// loadPages renders every embedded/pages/*.md file. The file name without
// extension becomes the route, the first "# " heading the title.
func loadPages() (map[string]page, error) {
	files, err := fs.Glob(EmbeddedAssets, "embedded/pages/*.md")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]page, len(files))
	for _, name := range files {
		data, err := fs.ReadFile(EmbeddedAssets, name)
		if err != nil {
			return nil, err
		}
		src := string(data)
		slug := strings.TrimSuffix(path.Base(name), ".md")
		title := markdown.Title(src)
		if title == "" {
			title = slug
		}
		body := markdown.Body(src)
		pages[slug] = page{
			Slug:        slug,
			Title:       title,
			Description: Truncate(StripHTML(markdown.Render(firstParagraph(body))), descriptionLen),
			HTML:        markdown.Render(body),
		}
	}
	return pages, nil
}

func firstParagraph(md string) string {
	for _, block := range strings.Split(strings.TrimSpace(md), "\n\n") {
		if b := strings.TrimSpace(block); b != "" && !strings.HasPrefix(b, "#") {
			return b
		}
	}
	return ""
}

// lookupPage returns the rendered static page for slug.
func (a *App) lookupPage(slug string) (page, error) {
	p, ok := a.pages[slug]
	if !ok {
		return page{}, ErrPageNotFound
	}
	return p, nil
}
