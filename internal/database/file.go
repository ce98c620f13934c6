package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// jsonFile stores a collection as one indented JSON array. A missing file is
// an empty collection. Writes land in a temp file that is renamed over the
// target, so readers never see a half-written snapshot.
type jsonFile[R any] struct {
	mu   sync.Mutex
	path string
}

func newJSONFile[R any](path string) *jsonFile[R] {
	return &jsonFile[R]{path: path}
}

func (f *jsonFile[R]) LoadAll(ctx context.Context) ([]R, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return []R{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	var rows []R
	if len(data) == 0 {
		return []R{}, nil
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	if rows == nil {
		rows = []R{}
	}
	return rows, nil
}

func (f *jsonFile[R]) ReplaceAll(ctx context.Context, rows []R) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if rows == nil {
		rows = []R{}
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.path, err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", f.path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("rename to %s: %w", f.path, err)
	}
	return nil
}
