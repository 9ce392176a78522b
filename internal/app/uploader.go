package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/okian/profiles/internal/domain/model"
	"github.com/okian/profiles/pkg/logger"
	"github.com/okian/profiles/pkg/metrics"
)

// ScoringAPI is the external service the upload widget talks to.
type ScoringAPI interface {
	Upload(ctx context.Context, filename string, content io.Reader) (model.UploadResult, error)
	Download(ctx context.Context, filePath string, w io.Writer) (int64, error)
}

// SelectedFile is the file picked by the user. Its bytes live in a private
// temp file at Path until the selection is replaced or the widget closed.
type SelectedFile struct {
	Name string
	Path string
}

// Uploader is the upload widget: one selected file, the server-side path of
// the last processed upload and a loading flag. Failures are logged and
// leave the state as it was.
type Uploader struct {
	mu sync.Mutex

	api          ScoringAPI
	onUpload     func([]model.Profile)
	extensions   []string
	downloadName string
	logger       logger.Logger
	tempDir      string

	selected *SelectedFile
	filePath string
	loading  bool
	closed   bool
}

// NewUploader wires the widget to api; onUpload receives the rows of every
// successful upload.
func NewUploader(api ScoringAPI, onUpload func([]model.Profile), extensions []string, downloadName string, l logger.Logger) *Uploader {
	if l == nil {
		l = logger.Nop()
	}
	if onUpload == nil {
		onUpload = func([]model.Profile) {}
	}
	return &Uploader{
		api:          api,
		onUpload:     onUpload,
		extensions:   extensions,
		downloadName: downloadName,
		logger:       l,
	}
}

// Accepts reports whether name has one of the accepted extensions.
func (u *Uploader) Accepts(name string) bool {
	return slices.Contains(u.extensions, strings.ToLower(filepath.Ext(name)))
}

// Select replaces the current selection. Rejected files keep the previous one.
func (u *Uploader) Select(name string, content []byte) error {
	return u.SelectFrom(name, bytes.NewReader(content))
}

// SelectFrom is Select for a streamed file. The content is spooled to a temp
// file, so a selection costs disk, not memory, for as long as it is held.
func (u *Uploader) SelectFrom(name string, r io.Reader) error {
	if !u.Accepts(name) {
		return fmt.Errorf("%w: %q (accepted: %s)", ErrUnsupportedFile, name, strings.Join(u.extensions, ", "))
	}
	u.mu.Lock()
	closed := u.closed
	u.mu.Unlock()
	if closed {
		return ErrClosed
	}

	path, err := u.spool(r)
	if err != nil {
		return err
	}

	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		_ = os.Remove(path)
		return ErrClosed
	}
	prev := u.selected
	u.selected = &SelectedFile{Name: filepath.Base(name), Path: path}
	u.mu.Unlock()

	if prev != nil {
		u.release(prev.Path)
	}
	return nil
}

func (u *Uploader) spool(r io.Reader) (string, error) {
	f, err := os.CreateTemp(u.tempDir, "selection-*")
	if err != nil {
		return "", fmt.Errorf("create selection file: %w", err)
	}
	_, err = io.Copy(f, r)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write selection file: %w", err)
	}
	return f.Name(), nil
}

func (u *Uploader) release(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		u.logger.Warn(context.Background(), "error removing selection file", logger.String("path", path), logger.Error(err))
	}
}

// Close drops the selection and its temp file. Later selections fail with
// ErrClosed; closing twice is a no-op.
func (u *Uploader) Close() error {
	u.mu.Lock()
	prev := u.selected
	u.selected = nil
	u.closed = true
	u.mu.Unlock()
	if prev != nil {
		u.release(prev.Path)
	}
	return nil
}

// Upload sends the selected file. Without a selection it does nothing.
// While another upload of this widget is running it returns
// ErrUploadInProgress without touching the network.
func (u *Uploader) Upload(ctx context.Context) error {
	u.mu.Lock()
	if u.selected == nil {
		u.mu.Unlock()
		_ = metrics.RecordUpload(metrics.OutcomeSkipped, 0)
		return nil
	}
	if u.loading {
		u.mu.Unlock()
		return ErrUploadInProgress
	}
	file := *u.selected
	// Opened under the lock: a concurrent Select or Close may unlink the
	// path, but not before this upload holds the file.
	f, err := os.Open(file.Path)
	if err != nil {
		u.mu.Unlock()
		return fmt.Errorf("open selection file: %w", err)
	}
	u.loading = true
	u.mu.Unlock()
	defer func() { _ = f.Close() }()

	start := time.Now()
	res, err := u.api.Upload(ctx, file.Name, f)

	u.mu.Lock()
	u.loading = false
	if err == nil {
		u.filePath = res.FilePath
	}
	u.mu.Unlock()

	if err != nil {
		u.logger.Error(ctx, "error uploading file",
			logger.String("file", file.Name),
			logger.Duration("elapsed", time.Since(start)),
			logger.Error(err),
		)
		return err
	}

	u.logger.Info(ctx, "file uploaded",
		logger.String("file", file.Name),
		logger.Int("profiles", len(res.Profiles)),
		logger.String("file_path", res.FilePath),
	)
	u.onUpload(res.Profiles)
	return nil
}

// Download streams the processed file of the last successful upload to w.
// It reports false, with no network call, when nothing was uploaded yet.
func (u *Uploader) Download(ctx context.Context, w io.Writer) (bool, error) {
	u.mu.Lock()
	path := u.filePath
	u.mu.Unlock()
	if path == "" {
		_ = metrics.RecordDownload(metrics.OutcomeSkipped, 0)
		return false, nil
	}

	n, err := u.api.Download(ctx, path, w)
	if err != nil {
		u.logger.Error(ctx, "error downloading file", logger.String("file_path", path), logger.Error(err))
		return true, err
	}
	u.logger.Info(ctx, "file downloaded", logger.String("file_path", path), logger.Int64("bytes", n))
	return true, nil
}

// DownloadName is the fixed name the processed file is saved under.
func (u *Uploader) DownloadName() string { return u.downloadName }

// Extensions returns the accepted file extensions.
func (u *Uploader) Extensions() []string { return slices.Clone(u.extensions) }

// Loading reports whether an upload is in flight.
func (u *Uploader) Loading() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.loading
}

// FilePath returns the server-side path of the last processed upload.
func (u *Uploader) FilePath() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.filePath
}

// Selected returns the name of the selected file, or "".
func (u *Uploader) Selected() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.selected == nil {
		return ""
	}
	return u.selected.Name
}
