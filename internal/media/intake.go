// Package media accepts uploaded audio files and stores them on disk.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// DefaultMaxBytes is the upload size limit used when none is configured.
const DefaultMaxBytes int64 = 20 << 20

// URLPrefix is the public path under which stored files are served.
const URLPrefix = "/uploads/"

var (
	// ErrUnsupportedType rejects anything that is not MP3 audio.
	ErrUnsupportedType = errors.New("only MP3 files are allowed")
	// ErrTooLarge rejects uploads above the configured limit.
	ErrTooLarge = errors.New("file too large")
	// ErrEmptyUpload rejects zero-byte uploads.
	ErrEmptyUpload = errors.New("no file uploaded")
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Upload describes a stored file.
type Upload struct {
	Locator  string
	Filename string
	Title    string
	Size     int64
}

// DiskIntake writes uploads into a single directory.
type DiskIntake struct {
	dir      string
	maxBytes int64
	now      func() time.Time
}

// NewDiskIntake prepares dir, creating it when missing. A non-positive
// maxBytes selects DefaultMaxBytes.
func NewDiskIntake(dir string, maxBytes int64) (*DiskIntake, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("uploads directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &DiskIntake{dir: dir, maxBytes: maxBytes, now: time.Now}, nil
}

// Dir returns the directory uploads are written to.
func (d *DiskIntake) Dir() string {
	return d.dir
}

// MaxBytes returns the configured size limit.
func (d *DiskIntake) MaxBytes() int64 {
	return d.maxBytes
}

// Store copies r into a new file named <unix-ms>-<sanitized filename>.
func (d *DiskIntake) Store(ctx context.Context, r io.Reader, filename, contentType string) (Upload, error) {
	if err := ctx.Err(); err != nil {
		return Upload{}, err
	}
	if !Accepts(filename, contentType) {
		return Upload{}, ErrUnsupportedType
	}

	file, name, err := d.create(filename)
	if err != nil {
		return Upload{}, err
	}
	full := filepath.Join(d.dir, name)

	n, err := io.Copy(file, io.LimitReader(r, d.maxBytes+1))
	closeErr := file.Close()
	switch {
	case err != nil:
		_ = os.Remove(full)
		return Upload{}, fmt.Errorf("write upload: %w", err)
	case closeErr != nil:
		_ = os.Remove(full)
		return Upload{}, fmt.Errorf("close upload: %w", closeErr)
	case n > d.maxBytes:
		_ = os.Remove(full)
		return Upload{}, fmt.Errorf("%w: limit is %s", ErrTooLarge, humanize.IBytes(uint64(d.maxBytes)))
	case n == 0:
		_ = os.Remove(full)
		return Upload{}, ErrEmptyUpload
	}

	if err := ctx.Err(); err != nil {
		_ = os.Remove(full)
		return Upload{}, err
	}

	return Upload{
		Locator:  URLPrefix + name,
		Filename: name,
		Title:    TitleFromFilename(filename),
		Size:     n,
	}, nil
}

// Remove deletes the file behind a locator produced by Store. Locators
// outside the intake directory are ignored.
func (d *DiskIntake) Remove(locator string) error {
	name := strings.TrimPrefix(locator, URLPrefix)
	if name == locator || name == "" || name != path.Base(name) {
		return nil
	}
	if err := os.Remove(filepath.Join(d.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

// create opens a fresh file, adding a counter when two uploads share a
// millisecond and a name.
func (d *DiskIntake) create(filename string) (*os.File, string, error) {
	base := strconv.FormatInt(d.now().UnixMilli(), 10) + "-" + SanitizeFilename(filename)
	name := base
	for i := 1; ; i++ {
		file, err := os.OpenFile(filepath.Join(d.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return file, name, nil
		}
		if !errors.Is(err, os.ErrExist) || i > 100 {
			return nil, "", fmt.Errorf("create upload: %w", err)
		}
		name = strconv.Itoa(i) + "-" + base
	}
}

// Accepts reports whether an upload looks like MP3 audio, by declared
// content type or by extension.
func Accepts(filename, contentType string) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType == "audio/mpeg" {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".mp3")
}

// SanitizeFilename keeps letters, digits, dots, dashes and underscores.
func SanitizeFilename(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	name = unsafeNameChars.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." {
		return "upload.mp3"
	}
	return name
}

// TitleFromFilename derives a display title from the original filename.
func TitleFromFilename(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	if strings.EqualFold(filepath.Ext(name), ".mp3") {
		name = name[:len(name)-len(".mp3")]
	}
	return strings.TrimSpace(name)
}
