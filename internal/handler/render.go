package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/bookbazar/internal/middleware"
	"github.com/mmeshcher/bookbazar/internal/model"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

var pageNames = []string{
	"index", "register", "login", "books", "cart", "checkout", "confirmation",
	"account", "about", "contact", "faq", "terms", "privacy", "404", "500",
}

var templateFuncs = template.FuncMap{
	"money": func(v float64) string {
		return fmt.Sprintf("$%.2f", v)
	},
	"date": func(t time.Time) string {
		return t.Format("January 2, 2006")
	},
	"datetime": func(t time.Time) string {
		return t.Format("January 2, 2006 at 15:04 MST")
	},
}

var pages = mustParsePages()

func mustParsePages() map[string]*template.Template {
	parsed := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t := template.Must(template.New(name).Funcs(templateFuncs).ParseFS(templatesFS,
			"templates/layout.html", "templates/"+name+".html"))
		parsed[name] = t
	}
	return parsed
}

func staticFiles() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// page содержит данные для шаблонов страниц.
type page struct {
	Title    string
	Username string
	Flashes  []middleware.Flash
	Year     int

	FormUsername string

	Books     []model.Book
	WithCart  bool
	CartCount int
	Cart      model.Cart
	Order     *model.Order
	User      *model.User
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, p *page) {
	t, ok := pages[name]
	if !ok {
		h.logger.Error("unknown template", zap.String("template", name))
		h.renderFailed(w, r)
		return
	}

	p.Username = middleware.Username(r.Context())
	p.Year = h.service.Now().Year()
	p.Flashes = middleware.Flashes(r.Context())

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		h.logger.Error("render template error", zap.String("template", name), zap.Error(err))
		h.renderFailed(w, r)
		return
	}

	// Сообщения считаются показанными только после успешной отрисовки.
	h.sessions.PopFlashes(w, r)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Debug("write response error", zap.Error(err))
	}
}

// renderFailed сохраняет непоказанные сообщения до следующей страницы и отвечает 500.
func (h *Handler) renderFailed(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Save(w, r); err != nil {
		h.logger.Error("save flash error", zap.Error(err))
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
