// Package scoringapi is the HTTP client of the external scoring service:
// multipart upload of a spreadsheet and download of the processed file.
package scoringapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/profiles/internal/domain/model"
	"github.com/okian/profiles/pkg/logger"
	"github.com/okian/profiles/pkg/metrics"
)

// Endpoint paths relative to the base URL.
const (
	uploadPath   = "/upload"
	downloadPath = "/download"

	// FormField is the multipart field carrying the spreadsheet.
	FormField = "file"
	// PathParam is the query parameter naming the processed file.
	PathParam = "file_path"

	// errorBodyLimit caps how much of an error body ends up in the error text.
	errorBodyLimit = 512
)

// Client talks to the scoring API.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  logger.Logger
}

// New creates a client for baseURL (e.g. "http://localhost:8000").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

// Upload posts the spreadsheet as multipart form data and decodes the result.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (model.UploadResult, error) {
	start := time.Now()
	res, err := c.upload(ctx, filename, content)
	latencyMs := float64(time.Since(start).Milliseconds())
	if err != nil {
		_ = metrics.RecordUpload(metrics.OutcomeError, latencyMs)
		return model.UploadResult{}, err
	}
	_ = metrics.RecordUpload(metrics.OutcomeSuccess, latencyMs)
	metrics.UpdateProfilesLoaded(len(res.Profiles))
	c.logger.Debug(ctx, "upload completed",
		logger.String("file", filename),
		logger.Int("profiles", len(res.Profiles)),
		logger.String("file_path", res.FilePath),
		logger.Float64("latency_ms", latencyMs),
	)
	return res, nil
}

func (c *Client) upload(ctx context.Context, filename string, content io.Reader) (model.UploadResult, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	// Stream the body through a pipe so large spreadsheets are not buffered twice.
	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile(FormField, filename)
		if err == nil {
			_, err = io.Copy(part, content)
		}
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadPath, pr)
	if err != nil {
		return model.UploadResult{}, fmt.Errorf("%w: build request: %w", ErrTransport, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return model.UploadResult{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return model.UploadResult{}, err
	}

	var res model.UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return model.UploadResult{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return res, nil
}

// Download fetches the processed file named by filePath and copies it to w.
// It returns the number of bytes written.
func (c *Client) Download(ctx context.Context, filePath string, w io.Writer) (int64, error) {
	n, err := c.download(ctx, filePath, w)
	if err != nil {
		_ = metrics.RecordDownload(metrics.OutcomeError, n)
		return n, err
	}
	_ = metrics.RecordDownload(metrics.OutcomeSuccess, n)
	c.logger.Debug(ctx, "download completed", logger.String("file_path", filePath), logger.Int64("bytes", n))
	return n, nil
}

func (c *Client) download(ctx context.Context, filePath string, w io.Writer) (int64, error) {
	if filePath == "" {
		return 0, ErrEmptyPath
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	q := url.Values{}
	q.Set(PathParam, filePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+downloadPath+"?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("%w: build request: %w", ErrTransport, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return 0, err
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("%w: copy body: %w", ErrTransport, err)
	}
	return n, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}
	return fmt.Errorf("%w: %s: %s", ErrUnexpectedStatus, resp.Status, msg)
}
