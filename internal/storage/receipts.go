package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// FileStore persists uploaded files and returns the URL they are served from.
type FileStore interface {
	Save(ctx context.Context, objectPath string, r io.Reader) (url string, err error)
}

// LocalFileStore writes under a root directory served at BaseURL.
type LocalFileStore struct {
	Root    string
	BaseURL string
}

func NewLocalFileStore(root, baseURL string) *LocalFileStore {
	return &LocalFileStore{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalFileStore) Save(ctx context.Context, objectPath string, r io.Reader) (string, error) {
	clean := path.Clean("/" + objectPath)[1:]
	if clean == "" || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid object path %q", objectPath)
	}

	full := filepath.Join(s.Root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create receipt dir: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create receipt file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, &ctxReader{ctx: ctx, r: r}); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("write receipt file: %w", err)
	}
	return s.BaseURL + "/" + clean, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFileName strips directories and anything outside [A-Za-z0-9._-].
func SanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "receipt"
	}
	return name
}
