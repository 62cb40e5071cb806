package persist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// FileSink writes each snapshot to its own file, overwriting it wholesale.
// A write goes to a synced temporary file that is renamed into place, so concurrent
// readers see either the previous or the new snapshot.
type FileSink struct {
	paths map[string]string
}

// NewFileSink maps snapshot names to file paths, e.g. {"users": "session.json"}.
func NewFileSink(paths map[string]string) (*FileSink, error) {
	for name, path := range paths {
		if path == "" {
			return nil, fmt.Errorf("file sink: empty path for snapshot %q", name)
		}

		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("file sink: create directory for %q: %w", name, err)
			}
		}
	}

	return &FileSink{paths: paths}, nil
}

// Put implements Sink. Snapshots without a configured path are ignored.
func (s *FileSink) Put(_ context.Context, name string, body []byte) error {
	path, ok := s.paths[name]
	if !ok {
		return nil
	}

	if err := renameio.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("file sink: replace %s: %w", path, err)
	}

	return nil
}

// Close implements Sink.
func (s *FileSink) Close() error { return nil }
