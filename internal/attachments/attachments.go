// Package attachments stores receipt files referenced by transactions.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxSize caps a single upload.
const MaxSize = 10 << 20

var (
	ErrTooLarge    = errors.New("attachment too large")
	ErrInvalidName = errors.New("invalid attachment name")
)

// Store persists blobs and returns their public URL.
type Store interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, publicURL string) error
}

// LocalStore keeps attachments in a directory served under /attachments/.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create attachments dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the bucket directory.
func (s *LocalStore) Dir() string { return s.dir }

// Upload stores r under a fresh uuid name keeping the original extension.
func (s *LocalStore) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	name := uuid.NewString() + strings.ToLower(filepath.Ext(filename))

	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create attachment: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(r, MaxSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxSize {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(filepath.Join(s.dir, name))
		return "", fmt.Errorf("write attachment: %w", err)
	}

	slog.InfoContext(ctx, "Attachment uploaded", "component", "attachments", "name", name, "bytes", n)
	return s.baseURL + "/attachments/" + name, nil
}

// Delete removes the blob named by the last path segment of publicURL.
// URLs that do not name a blob are logged and ignored.
func (s *LocalStore) Delete(ctx context.Context, publicURL string) error {
	name, err := NameFromURL(publicURL)
	if err != nil {
		slog.WarnContext(ctx, "Skipping attachment delete", "component", "attachments", "url", publicURL, "error", err)
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}

// NameFromURL extracts the blob name from a public attachment URL.
func NameFromURL(publicURL string) (string, error) {
	u, err := url.Parse(publicURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	name := path.Base(u.Path)
	if !ValidName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return name, nil
}

// ValidName accepts only names Upload could have produced.
func ValidName(name string) bool {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if _, err := uuid.Parse(base); err != nil {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
