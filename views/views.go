// Package views provides the default page templates for gameground. Each
// view is a templ.Component executing an embedded html/template file inside
// the shared layout.
package views

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mygameground/gameground"
)

//go:embed templates/*.html
var templateFS embed.FS

var printer = message.NewPrinter(language.AmericanEnglish)

var funcs = template.FuncMap{
	"trustedHTML": func(s string) template.HTML { return template.HTML(s) },
	"jsonLD":      func(s string) template.JS { return template.JS(s) },
	"number":      func(n int) string { return printer.Sprintf("%d", n) },
	"date":        formatDate,
	"isoDate":     func(t time.Time) string { return t.Format(time.RFC3339) },
	"year":        func() int { return time.Now().Year() },
	"add":         func(a, b int) int { return a + b },
	"cardExcerpt": func(a gameground.ArticleView, i int) string { return a.CardExcerpt(i == 0) },
	"card":        func(i int, a gameground.ArticleView) articleCard { return articleCard{Index: i, Article: a} },
	"plainText":   func(s string, n int) string { return gameground.Ellipsize(gameground.StripHTML(s), n) },
	"active":      active,
}

type articleCard struct {
	Index   int
	Article gameground.ArticleView
}

// formatDate renders t as "January 2, 2006", or "" for the zero time.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006")
}

// active reports whether the navigation link href matches the current path.
func active(path, href string) bool {
	if href == "/" {
		return path == "/"
	}
	return path == href || strings.HasPrefix(path, href+"/")
}

var pages = map[string]*template.Template{}

func init() {
	base := template.Must(template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/partials.html"))
	for _, name := range []string{"home", "game", "articles", "article", "page", "notfound", "error"} {
		t := template.Must(base.Clone())
		pages[name] = template.Must(t.ParseFS(templateFS, "templates/"+name+".html"))
	}
}

// page returns a component that renders the named page template with data.
func page(name string, data interface{}) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, ok := pages[name]
		if !ok {
			return fmt.Errorf("views: unknown template %q", name)
		}
		return t.ExecuteTemplate(w, "layout", data)
	})
}

func Home(p gameground.HomePage) templ.Component { return page("home", p) }

func Game(p gameground.GamePage) templ.Component { return page("game", p) }

func Articles(p gameground.ArticlesPage) templ.Component { return page("articles", p) }

func Article(p gameground.ArticlePage) templ.Component { return page("article", p) }

func StaticPage(p gameground.StaticPage) templ.Component { return page("page", p) }

func NotFound(p gameground.NotFoundPage) templ.Component { return page("notfound", p) }

func Error(p gameground.ErrorPage) templ.Component { return page("error", p) }

// Funcs returns the default ViewFuncs.
func Funcs() gameground.ViewFuncs {
	return gameground.ViewFuncs{
		Home:       Home,
		Game:       Game,
		Articles:   Articles,
		Article:    Article,
		StaticPage: StaticPage,
		NotFound:   NotFound,
		Error:      Error,
	}
}
