// Package api serves the server-rendered profiles page and its form actions.
package api

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/okian/profiles/internal/app"
	"github.com/okian/profiles/pkg/logger"
)

const (
	// SessionCookie carries the session id.
	SessionCookie = "profiles_session"

	defaultMaxUploadBytes = 32 << 20
	// multipartMemory is kept in memory; the rest of a form spills to disk.
	multipartMemory = 8 << 20
)

// Sessions resolves the caller's session from its cookie value.
type Sessions interface {
	GetOrCreate(ctx context.Context, id string) (*app.Session, bool)
}

// Server wires HTTP routes for the profiles page.
type Server struct {
	sessions       Sessions
	logger         logger.Logger
	maxUploadBytes int64
	secureCookie   bool
	page           *template.Template
	healthHandler  *HealthHandler
}

// NewServer creates a new server over the session registry.
func NewServer(sessions Sessions, opts ...Option) *Server {
	s := &Server{
		sessions:       sessions,
		logger:         logger.Nop(),
		maxUploadBytes: defaultMaxUploadBytes,
		page:           pageTemplate,
		healthHandler:  NewHealthHandler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/upload", MetricsMiddleware(s.HandleUpload, "upload"))
	mux.HandleFunc("/download", MetricsMiddleware(s.HandleDownload, "download"))
	mux.HandleFunc("/sort", MetricsMiddleware(s.HandleSort, "sort"))
	mux.HandleFunc("/page", MetricsMiddleware(s.HandlePage, "page"))
	mux.HandleFunc("/api/view", MetricsMiddleware(s.HandleView, "view"))
	mux.HandleFunc("/", MetricsMiddleware(s.HandleIndex, "index"))
}

// session returns the caller's session, issuing a cookie for new ones.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *app.Session {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}
	sess, created := s.sessions.GetOrCreate(r.Context(), id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID(),
			Path:     "/",
			HttpOnly: true,
			Secure:   s.secureCookie,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}

// finish answers a form action: JSON state for API callers, otherwise a
// redirect back to the page.
func (s *Server) finish(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, sess.State())
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func allowMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	return false
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
