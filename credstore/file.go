package credstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/cmstar/go-errx"
	"gopkg.in/yaml.v3"
)

// fileMode keeps the document private to the current user.
const fileMode = 0o600

type fileStore struct {
	mu   sync.Mutex
	path string
}

// DefaultFilePath returns the per-user location of the credentials file.
func DefaultFilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, "ovhapi", "credentials.yaml"), nil
}

// NewFile builds a store persisting values in a YAML document at path.
// The file and its directory are created on first write.
func NewFile(path string) (Store, error) {
	if path == "" {
		p, err := DefaultFilePath()
		if err != nil {
			return nil, errx.Wrap("credstore: resolve default path", err)
		}
		path = p
	}

	return &fileStore{path: path}, nil
}

func (s *fileStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return "", err
	}

	v, ok := items[key]
	if !ok {
		return "", ErrNotFound
	}

	return v, nil
}

func (s *fileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return err
	}

	items[key] = value
	return s.save(items)
}

func (s *fileStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return err
	}

	if _, ok := items[key]; !ok {
		return nil
	}

	delete(items, key)
	return s.save(items)
}

func (s *fileStore) Close() error {
	return nil
}

func (s *fileStore) load() (map[string]string, error) {
	items := make(map[string]string)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return items, nil
	}
	if err != nil {
		return nil, errx.Wrap("credstore: read "+s.path, err)
	}

	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, errx.Wrap("credstore: decode "+s.path, err)
	}

	return items, nil
}

// save writes through a temporary file and renames it into place.
func (s *fileStore) save(items map[string]string) error {
	data, err := yaml.Marshal(items)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errx.Wrap("credstore: create "+dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return errx.Wrap("credstore: create temp file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errx.Wrap("credstore: write temp file", err)
	}

	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return errx.Wrap("credstore: chmod temp file", err)
	}

	if err := tmp.Close(); err != nil {
		return errx.Wrap("credstore: close temp file", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errx.Wrap("credstore: replace "+s.path, err)
	}

	return nil
}
