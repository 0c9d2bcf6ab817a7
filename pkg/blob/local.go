package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/meridianhq/corpsite/pkg/config"
)

// Compile-time interface check.
var _ Store = (*localStore)(nil)

// localStore keeps objects on the local filesystem, for development and
// single-host deployments. Keys map directly to paths under the root.
type localStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates a Store backed by a local directory.
func NewLocalStore(cfg *config.LocalStorageConfig) Store {
	return &localStore{
		root:    filepath.Clean(cfg.Root),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

func (l *localStore) Put(
	_ context.Context, key, _ string, body io.Reader,
) (string, error) {
	full, err := l.resolve(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("creating object dir: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("creating object %q: %w", key, err)
	}

	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(full)

		return "", fmt.Errorf("writing object %q: %w", key, err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing object %q: %w", key, err)
	}

	return l.URL(key), nil
}

func (l *localStore) Delete(_ context.Context, key string) error {
	full, err := l.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil {
		return fmt.Errorf("deleting object %q: %w", key, err)
	}

	return nil
}

func (l *localStore) URL(key string) string {
	return l.baseURL + "/" + key
}

func (l *localStore) KeyForURL(ref string) (string, bool) {
	prefix := l.baseURL + "/"
	if !strings.HasPrefix(ref, prefix) {
		return "", false
	}

	key := strings.TrimPrefix(ref, prefix)
	if key == "" {
		return "", false
	}

	return key, true
}

// resolve maps a key to an absolute path, rejecting traversal.
func (l *localStore) resolve(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || filepath.IsAbs(key) {
		return "", fmt.Errorf("invalid object key %q", key)
	}

	full := filepath.Join(l.root, filepath.FromSlash(key))

	if !strings.HasPrefix(full, l.root+string(filepath.Separator)) {
		return "", fmt.Errorf("object key %q escapes storage root", key)
	}

	return full, nil
}
