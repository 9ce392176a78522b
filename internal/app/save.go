package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

const downloadFileMode = 0o644

// SaveDownload writes the processed file to dest. A directory dest (or an
// empty one, meaning the working directory) receives the fixed download
// name. The file is written beside its target and renamed into place, so a
// failed download leaves nothing behind. It reports the written path, or
// "" with no network call when nothing was uploaded yet.
func (s *Session) SaveDownload(ctx context.Context, dest string) (string, error) {
	if s.uploader.FilePath() == "" {
		return "", nil
	}
	path, err := resolveDest(dest, s.uploader.DownloadName())
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	ok, err := s.uploader.Download(ctx, tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close temp file: %w", cerr)
	}
	if err != nil || !ok {
		return "", err
	}
	if err := os.Chmod(tmp.Name(), downloadFileMode); err != nil {
		return "", fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}

func resolveDest(dest, name string) (string, error) {
	if dest == "" {
		dest = "."
	}
	info, err := os.Stat(dest)
	switch {
	case err == nil && info.IsDir():
		return filepath.Join(dest, name), nil
	case err == nil, os.IsNotExist(err):
		return dest, nil
	default:
		return "", fmt.Errorf("stat %s: %w", dest, err)
	}
}
