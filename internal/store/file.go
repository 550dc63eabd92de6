package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/roach88/stateshift/internal/state"
)

// FileStore keeps a single document in a JSON file. It records no history.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path. The file need not exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the document. A missing file is reported as not found, not as
// an error.
func (f *FileStore) Load(ctx context.Context) (state.Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return state.Document{}, false, err
	}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return state.Document{}, false, nil
	}
	if err != nil {
		return state.Document{}, false, fmt.Errorf("load %s: %w", f.path, err)
	}
	doc, err := state.Parse(data)
	if err != nil {
		return state.Document{}, false, fmt.Errorf("load %s: %w", f.path, err)
	}
	return doc, true, nil
}

// Save writes the document bytes as they are. The file is written to a
// temporary sibling and renamed over the target, so readers never see a torn
// write.
func (f *FileStore) Save(ctx context.Context, doc state.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc.IsZero() {
		return fmt.Errorf("save %s: %w: empty document", f.path, state.ErrMalformed)
	}
	body := doc.Bytes()
	if body[len(body)-1] != '\n' {
		body = append(body, '\n')
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("save %s: %w", f.path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", f.path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %s: %w", f.path, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("save %s: %w", f.path, err)
	}
	return nil
}
