package storage

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidPath = errors.New("invalid storage path")

// LocalStore keeps blobs on the local filesystem under a public root
// directory.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Join(root, "tasks"), 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) Put(_ context.Context, data []byte, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	rel := path.Join("tasks", uuid.New().String()+ext)

	if err := os.WriteFile(filepath.Join(s.root, filepath.FromSlash(rel)), data, 0o644); err != nil {
		return "", err
	}
	return rel, nil
}

func (s *LocalStore) Delete(_ context.Context, p string) error {
	clean := path.Clean("/" + p)[1:] // no escaping the root
	if clean == "" || clean == "." {
		return ErrInvalidPath
	}

	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(clean)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
