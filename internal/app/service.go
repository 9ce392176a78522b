// Package app wires the upload widget to the table view and hands out one
// session per user.
package app

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/okian/profiles/internal/domain/model"
	"github.com/okian/profiles/internal/domain/table"
	"github.com/okian/profiles/pkg/logger"
)

// Service holds what every session shares: the scoring API and the table
// and widget settings.
type Service struct {
	api          ScoringAPI
	logger       logger.Logger
	pageSize     int
	siblingCount int
	extensions   []string
	downloadName string
	tempDir      string
}

// New constructs a Service with default settings.
func New(api ScoringAPI, opts ...Option) *Service {
	s := &Service{
		api:          api,
		logger:       logger.Nop(),
		pageSize:     table.DefaultPageSize,
		siblingCount: table.DefaultSiblingCount,
		extensions:   []string{".xlsx", ".xls"},
		downloadName: "profiles_with_scores.xlsx",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSession creates the state of one user: an upload widget whose results
// replace the records of a fresh table view.
func (s *Service) NewSession(id string) *Session {
	sess := &Session{
		id:      id,
		created: time.Now(),
		view:    table.NewView(table.WithPageSize(s.pageSize), table.WithSiblingCount(s.siblingCount)),
	}
	l := s.logger.With(logger.String("session", id))
	sess.uploader = NewUploader(s.api, sess.setRecords, s.extensions, s.downloadName, l)
	sess.uploader.tempDir = s.tempDir
	return sess
}

// Session is the single owner of one user's view state. All view access
// goes through its lock; network calls run outside it.
type Session struct {
	id      string
	created time.Time

	mu       sync.RWMutex
	view     *table.View
	uploader *Uploader
}

// State is a render-ready copy of a session.
type State struct {
	ID           string         `json:"id"`
	Selected     string         `json:"selected,omitempty"`
	FilePath     string         `json:"file_path,omitempty"`
	Loading      bool           `json:"loading"`
	DownloadName string         `json:"download_name"`
	Extensions   []string       `json:"extensions"`
	View         table.Snapshot `json:"view"`
}

// CanDownload reports whether a processed file is available.
func (st State) CanDownload() bool { return st.FilePath != "" }

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Created returns when the session was made.
func (s *Session) Created() time.Time { return s.created }

// Uploader exposes the session's upload widget.
func (s *Session) Uploader() *Uploader { return s.uploader }

func (s *Session) setRecords(records []model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.SetRecords(records)
}

// Select stores the picked file; see Uploader.Select.
func (s *Session) Select(name string, content []byte) error {
	return s.uploader.Select(name, content)
}

// SelectFrom stores a streamed file; see Uploader.SelectFrom.
func (s *Session) SelectFrom(name string, r io.Reader) error {
	return s.uploader.SelectFrom(name, r)
}

// Close releases the session's selected file.
func (s *Session) Close() error {
	return s.uploader.Close()
}

// Upload sends the selected file; see Uploader.Upload.
func (s *Session) Upload(ctx context.Context) error {
	return s.uploader.Upload(ctx)
}

// Download streams the processed file; see Uploader.Download.
func (s *Session) Download(ctx context.Context, w io.Writer) (bool, error) {
	return s.uploader.Download(ctx, w)
}

// ToggleSort flips the score order and returns the new one.
func (s *Session) ToggleSort() table.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.ToggleSort()
}

// SetOrder switches to order.
func (s *Session) SetOrder(order table.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.SetOrder(order)
}

// SetPage selects a page of the table.
func (s *Session) SetPage(page int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.SetPage(page)
}

// Snapshot copies the table state.
func (s *Session) Snapshot() table.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view.Snapshot()
}

// Sorted returns the whole dataset in display order.
func (s *Session) Sorted() []model.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view.Sorted()
}

// State copies everything a front end needs to render the session.
func (s *Session) State() State {
	return State{
		ID:           s.id,
		Selected:     s.uploader.Selected(),
		FilePath:     s.uploader.FilePath(),
		Loading:      s.uploader.Loading(),
		DownloadName: s.uploader.DownloadName(),
		Extensions:   s.uploader.Extensions(),
		View:         s.Snapshot(),
	}
}
