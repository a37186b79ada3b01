package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 25 * time.Millisecond

// FileDocuments stores each document as <dir>/<name>.json.
type FileDocuments struct {
	dir string
}

// NewFileDocuments prepares dir for use, creating it when missing.
func NewFileDocuments(dir string) (*FileDocuments, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileDocuments{dir: dir}, nil
}

// Path returns the file backing the named document.
func (f *FileDocuments) Path(name string) string {
	return filepath.Join(f.dir, name+".json")
}

// Read returns the document body. A missing or empty file counts as not found.
func (f *FileDocuments) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := os.ReadFile(f.Path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, ErrDocumentNotFound
	}
	return body, nil
}

// Write stages the body in a temp file, syncs it and renames it over the
// document so a crash never leaves a truncated file behind.
func (f *FileDocuments) Write(ctx context.Context, name string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, "."+name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp %s: %w", name, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmpPath != "" {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, f.Path(name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	tmpPath = ""

	if err := syncDir(f.dir); err != nil {
		return fmt.Errorf("sync dir for %s: %w", name, err)
	}
	return nil
}

// syncDir flushes the directory entry so a rename survives a crash.
var syncDir = func(path string) error {
	dir, err := os.Open(path)
	if err != nil {
		return err
	}
	if err := dir.Sync(); err != nil {
		_ = dir.Close()
		return err
	}
	return dir.Close()
}

// LockDocument takes an exclusive advisory lock on <dir>/<name>.lock,
// retrying until ctx is done.
func (f *FileDocuments) LockDocument(ctx context.Context, name string) (func() error, error) {
	return lockFile(ctx, filepath.Join(f.dir, name+".lock"), name)
}

func lockFile(ctx context.Context, path, name string) (func() error, error) {
	lock := flock.New(path)
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", name, err)
	}
	if !locked {
		return nil, fmt.Errorf("lock %s: not acquired", name)
	}
	return lock.Unlock, nil
}

// Close is a no-op; files are opened per call.
func (f *FileDocuments) Close() error {
	return nil
}
