// Package templates embeds the HTML pages and renders them inside the shared layout.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/debemdeboas/post-editor/internal/config"
	"github.com/debemdeboas/post-editor/internal/model"
	"github.com/debemdeboas/post-editor/internal/util"
)

//go:embed *.html
var files embed.FS

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	},
}

// Parse returns the layout combined with the given page template.
func Parse(page string) (*template.Template, error) {
	tmpl, err := template.New(config.TemplateLayout).Funcs(funcs).ParseFS(files, config.TemplateLayout, page)
	if err != nil {
		return nil, fmt.Errorf("error parsing template %s: %w", page, err)
	}
	return tmpl, nil
}

var pages = map[string]*template.Template{}

func init() {
	for _, page := range []string{
		config.TemplateIndex,
		config.TemplatePost,
		config.TemplateEditor,
		config.TemplateError,
	} {
		pages[page] = template.Must(Parse(page))
	}
}

// Render executes page into a buffer and only writes the response once the
// template succeeded, so a failing template never leaves a half written page.
func Render(w http.ResponseWriter, status int, page string, data any) error {
	tmpl, ok := pages[page]
	if !ok {
		return fmt.Errorf("unknown template %s", page)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, config.TemplateLayout, data); err != nil {
		return fmt.Errorf("error executing template %s: %w", page, err)
	}

	w.Header().Set(config.HCType, config.CTypeHTML)
	w.Header().Set(config.HETag, util.ContentHash(buf.Bytes()))
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// ErrorPage is the data for error.html.
type ErrorPage struct {
	Title   string
	Message string
	Status  int
}

// RenderError renders the error page with the given status.
func RenderError(w http.ResponseWriter, r *http.Request, status int, message string) error {
	data := struct {
		*model.PageData
		Error ErrorPage
	}{
		PageData: model.NewPageData(r, http.StatusText(status)),
		Error: ErrorPage{
			Title:   http.StatusText(status),
			Message: message,
			Status:  status,
		},
	}
	return Render(w, status, config.TemplateError, data)
}
