package api

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/profiles/internal/app"
	"github.com/okian/profiles/pkg/logger"
)

//go:embed templates/index.html.tmpl
var indexTemplate string

var pageTemplate = template.Must(template.New("index").Funcs(template.FuncMap{
	"accept": func(exts []string) string { return strings.Join(exts, ", ") },
	"score":  func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) },
}).Parse(indexTemplate))

// HandleIndex handles GET / and renders the page. A "page" query selects
// the page first; an invalid one is ignored.
func (s *Server) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if !allowMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	sess := s.session(w, r)

	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err == nil {
			err = sess.SetPage(n)
		}
		if err != nil {
			s.logger.Debug(r.Context(), "ignoring page query", logger.String("page", raw), logger.Error(err))
		}
	}

	var buf bytes.Buffer
	if err := s.render(&buf, sess.State()); err != nil {
		s.logger.Error(r.Context(), "render page", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "render_failed", nil)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func (s *Server) render(buf *bytes.Buffer, st app.State) error {
	if err := s.page.Execute(buf, st); err != nil {
		return fmt.Errorf("%w: %w", ErrTemplate, err)
	}
	return nil
}
