package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"mediavault/services/media-api/internal/config"
	domain "mediavault/services/media-api/internal/domain/media"
)

const (
	localBackend = "local"

	// ownerDepth is the number of key segments ("media/<owner>") that Delete never prunes.
	ownerDepth = 2
)

var errLocalStorageDisabled = errors.New("local storage is not configured; set MEDIA_LOCAL_STORAGE_PATH to enable")

// LocalStorage keeps media blobs on the local filesystem.
type LocalStorage struct {
	basePath string
	baseURL  string
	log      zerolog.Logger
	disabled bool
}

// NewLocalStorage creates a new local filesystem storage backend.
func NewLocalStorage(cfg *config.Config, log zerolog.Logger) (*LocalStorage, error) {
	logger := log.With().Str("component", "local-storage").Logger()

	basePath := strings.TrimSpace(cfg.LocalStoragePath)
	if basePath == "" {
		logger.Warn().Msg("MEDIA_LOCAL_STORAGE_PATH is not set; local storage will be disabled")
		return &LocalStorage{log: logger, disabled: true}, nil
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve local storage directory: %w", err)
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory: %w", err)
	}

	storage := &LocalStorage{
		basePath: absPath,
		baseURL:  strings.TrimSuffix(strings.TrimSpace(cfg.LocalStorageBaseURL), "/"),
		log:      logger,
	}

	logger.Info().
		Str("path", absPath).
		Str("base_url", storage.baseURL).
		Msg("local storage initialized")

	return storage, nil
}

func (l *LocalStorage) ensureEnabled() error {
	if l.disabled {
		return errLocalStorageDisabled
	}
	return nil
}

// resolve maps a storage key to a path under basePath, rejecting traversal.
func (l *LocalStorage) resolve(key string) (string, error) {
	fullPath := filepath.Join(l.basePath, filepath.FromSlash(key))
	rel, err := filepath.Rel(l.basePath, fullPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return fullPath, nil
}

// Upload writes the object through a temp file so readers never see partial data.
func (l *LocalStorage) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (err error) {
	defer observe(localBackend, "upload", time.Now(), &err)
	if err := l.ensureEnabled(); err != nil {
		return err
	}
	fullPath, err := l.resolve(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(fullPath)
	if err := makeDir(dir); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	written, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return fmt.Errorf("failed to commit file: %w", err)
	}

	l.log.Debug().
		Str("key", key).
		Str("content_type", contentType).
		Int64("bytes", written).
		Msg("file uploaded to local storage")
	return nil
}

// URL returns baseURL/key when a base URL is configured, otherwise a file:// URL.
func (l *LocalStorage) URL(ctx context.Context, key string) (ref string, err error) {
	defer observe(localBackend, "url", time.Now(), &err)
	if err := l.ensureEnabled(); err != nil {
		return "", err
	}
	fullPath, err := l.resolve(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", domain.ErrObjectNotFound
		}
		return "", fmt.Errorf("stat file: %w", err)
	}
	if l.baseURL != "" {
		return l.baseURL + "/" + escapeKey(filepath.ToSlash(key)), nil
	}
	return "file://" + filepath.ToSlash(fullPath), nil
}

// Download opens the object and sniffs its content type.
func (l *LocalStorage) Download(ctx context.Context, key string) (body io.ReadCloser, contentType string, err error) {
	defer observe(localBackend, "download", time.Now(), &err)
	if err := l.ensureEnabled(); err != nil {
		return nil, "", err
	}
	fullPath, err := l.resolve(key)
	if err != nil {
		return nil, "", err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", domain.ErrObjectNotFound
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}

	detected, err := mimetype.DetectFile(fullPath)
	if err == nil {
		contentType = detected.String()
	}
	return file, contentType, nil
}

// Delete removes the object and prunes its now-empty object directories.
func (l *LocalStorage) Delete(ctx context.Context, key string) (err error) {
	defer observe(localBackend, "delete", time.Now(), &err)
	if err := l.ensureEnabled(); err != nil {
		return err
	}
	fullPath, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ErrObjectNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	l.pruneObjectDirs(fullPath)
	return nil
}

// pruneObjectDirs removes empty directories above fullPath down to, but not
// including, the owner directory that concurrent uploads create children in.
func (l *LocalStorage) pruneObjectDirs(fullPath string) {
	for dir := filepath.Dir(fullPath); ; dir = filepath.Dir(dir) {
		rel, err := filepath.Rel(l.basePath, dir)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			return
		}
		if len(strings.Split(filepath.ToSlash(rel), "/")) <= ownerDepth {
			return
		}
		if os.Remove(dir) != nil {
			return
		}
	}
}

// makeDir retries once when a concurrent prune removed a parent mid-creation.
func makeDir(dir string) error {
	err := os.MkdirAll(dir, 0o755)
	if errors.Is(err, fs.ErrNotExist) {
		err = os.MkdirAll(dir, 0o755)
	}
	return err
}

// Health checks if the storage directory is writable.
func (l *LocalStorage) Health(ctx context.Context) error {
	if l.disabled {
		return nil
	}
	testFile := filepath.Join(l.basePath, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("storage directory not writable: %w", err)
	}
	_ = os.Remove(testFile)
	return nil
}
