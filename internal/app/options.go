package app

import (
	"github.com/okian/profiles/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets the logger handed to every session.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPageSize sets the table page size.
func WithPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithSiblingCount sets the page selector window.
func WithSiblingCount(count int) Option {
	return func(s *Service) {
		if count >= 0 {
			s.siblingCount = count
		}
	}
}

// WithAcceptedExtensions restricts the selectable file types.
func WithAcceptedExtensions(exts []string) Option {
	return func(s *Service) {
		if len(exts) > 0 {
			s.extensions = exts
		}
	}
}

// WithDownloadName sets the name the processed file is saved under.
func WithDownloadName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.downloadName = name
		}
	}
}

// WithTempDir sets where selected files are spooled. Empty means the
// system temp directory.
func WithTempDir(dir string) Option {
	return func(s *Service) {
		s.tempDir = dir
	}
}
