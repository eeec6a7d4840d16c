package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// localStorage keeps blobs as files under a root directory. Keys map to
// relative paths; traversal outside the root is rejected.
type localStorage struct {
	root string
}

// NewLocal creates filesystem-backed storage rooted at dir.
func NewLocal(dir string) (Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "blob: create root %s", dir)
	}
	return &localStorage{root: dir}, nil
}

func (s *localStorage) path(key string) (string, error) {
	p := filepath.Join(s.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", eris.Errorf("blob: key %q escapes storage root", key)
	}
	return p, nil
}

func (s *localStorage) Put(_ context.Context, key string, data []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return eris.Wrapf(err, "blob: mkdir for %s", key)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return eris.Wrapf(err, "blob: write %s", key)
	}
	return nil
}

func (s *localStorage) Get(_ context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, eris.Wrapf(err, "blob: read %s", key)
	}
	return data, nil
}

func (s *localStorage) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "blob: delete %s", key)
	}
	return nil
}

func (s *localStorage) Presign(_ context.Context, key string) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", eris.Wrapf(err, "blob: resolve %s", key)
	}
	return "file://" + filepath.ToSlash(abs), nil
}
