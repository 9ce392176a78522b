package api

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/okian/profiles/internal/adapters/scoringapi"
	"github.com/okian/profiles/internal/app"
	"github.com/okian/profiles/internal/domain/table"
	"github.com/okian/profiles/pkg/logger"
)

// contentTypes maps accepted spreadsheet extensions to their media types.
var contentTypes = map[string]string{
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":  "application/vnd.ms-excel",
}

// HandleUpload handles POST /upload. A file part replaces the selection;
// the current selection (if any) is then uploaded.
func (s *Server) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	sess := s.session(w, r)
	ctx := r.Context()

	if r.ContentLength > s.maxUploadBytes {
		s.reject(w, r, http.StatusRequestEntityTooLarge, "too_large",
			fmt.Errorf("%w: body of %d bytes exceeds %d", ErrBadRequest, r.ContentLength, s.maxUploadBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.reject(w, r, http.StatusRequestEntityTooLarge, "too_large", err)
			return
		case !errors.Is(err, http.ErrNotMultipart):
			s.reject(w, r, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
			return
		}
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	if err := s.selectPart(r, sess); err != nil {
		switch {
		case errors.Is(err, app.ErrUnsupportedFile):
			s.reject(w, r, http.StatusUnsupportedMediaType, "unsupported_file", err)
			return
		case errors.Is(err, app.ErrClosed):
			s.reject(w, r, http.StatusConflict, "session_closed", err)
			return
		}
		s.reject(w, r, http.StatusBadRequest, "bad_request", err)
		return
	}

	if err := sess.Upload(ctx); err != nil {
		if errors.Is(err, app.ErrUploadInProgress) {
			s.reject(w, r, http.StatusConflict, "upload_in_progress", err)
			return
		}
		s.reject(w, r, http.StatusBadGateway, "upload_failed", fmt.Errorf("%w: %w", ErrUploadFailed, err))
		return
	}
	s.finish(w, r, sess)
}

// selectPart moves the "file" part, when present, into the session.
func (s *Server) selectPart(r *http.Request, sess *app.Session) error {
	if r.MultipartForm == nil {
		return nil
	}
	f, hdr, err := r.FormFile(scoringapi.FormField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read file part: %w", ErrBadRequest, err)
	}
	defer func() { _ = f.Close() }()

	return sess.SelectFrom(hdr.Filename, f)
}

// HandleDownload handles GET /download. Without a processed file it
// redirects to the page and makes no upstream call.
func (s *Server) HandleDownload(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	sess := s.session(w, r)

	// Buffered so an upstream failure can still be answered cleanly.
	var buf bytes.Buffer
	ok, err := sess.Download(r.Context(), &buf)
	switch {
	case err != nil:
		s.reject(w, r, http.StatusBadGateway, "download_failed", err)
		return
	case !ok:
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	name := sess.Uploader().DownloadName()
	ct, known := contentTypes[strings.ToLower(filepath.Ext(name))]
	if !known {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn(r.Context(), "client went away during download", logger.Error(err))
	}
}

// HandleSort handles POST /sort. An "order" value sets the order,
// otherwise it toggles.
func (s *Server) HandleSort(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	sess := s.session(w, r)

	if raw := r.FormValue("order"); raw != "" {
		order, err := table.ParseOrder(raw)
		if err != nil {
			s.reject(w, r, http.StatusBadRequest, "invalid_order", err)
			return
		}
		if err := sess.SetOrder(order); err != nil {
			s.reject(w, r, http.StatusBadRequest, "invalid_order", err)
			return
		}
	} else {
		sess.ToggleSort()
	}
	s.finish(w, r, sess)
}

// HandlePage handles POST /page?n=N.
func (s *Server) HandlePage(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	sess := s.session(w, r)

	n, err := strconv.Atoi(strings.TrimSpace(r.FormValue("n")))
	if err != nil {
		s.reject(w, r, http.StatusBadRequest, "invalid_page", fmt.Errorf("%w: page must be a number", ErrBadRequest))
		return
	}
	if err := sess.SetPage(n); err != nil {
		s.reject(w, r, http.StatusBadRequest, "invalid_page", err)
		return
	}
	s.finish(w, r, sess)
}

// HandleView handles GET /api/view.
func (s *Server) HandleView(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.session(w, r).State())
}

// reject logs a failed action. API callers get the error; browsers are sent
// back to the unchanged page.
func (s *Server) reject(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	s.logger.Warn(r.Context(), "request rejected",
		logger.String("path", r.URL.Path),
		logger.String("code", code),
		logger.Error(err),
	)
	if wantsJSON(r) {
		writeError(w, status, code, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
