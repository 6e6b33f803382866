package sink

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/corpscan/internal/interfaces"
)

// fileTarget names and writes one output file per batch
type fileTarget struct {
	dir    string
	prefix string
}

// path returns <dir>/<prefix>_<run>[_partial].<ext>
func (t fileTarget) path(batch interfaces.Batch, ext string) string {
	name := t.prefix
	if name == "" {
		name = "corpscan"
	}
	if batch.RunID != "" {
		name += "_" + batch.RunID
	}
	if batch.Partial {
		name += "_partial"
	}
	return filepath.Join(t.dir, name+"."+ext)
}

// write stores data through a temp file so readers never see a torn file
func (t fileTarget) write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".corpscan-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
