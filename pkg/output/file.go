package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Sternrassler/gh-harvest/pkg/pagination"
	"github.com/rs/zerolog"
)

// FileSink writes the result set as one pretty-printed JSON array.
type FileSink struct {
	path   string
	logger zerolog.Logger
}

// NewFileSink creates a sink for path. An empty path uses DefaultPath.
func NewFileSink(path string, logger zerolog.Logger) *FileSink {
	if path == "" {
		path = DefaultPath
	}
	return &FileSink{path: path, logger: logger}
}

// Path returns the destination file.
func (s *FileSink) Path() string {
	return s.path
}

// Write encodes results with 4-space indentation. Items are copied as
// received; HTML characters and non-ASCII text are not escaped. The file is
// written to a temporary sibling and renamed into place.
func (s *FileSink) Write(results pagination.ResultSet) error {
	if results == nil {
		results = pagination.ResultSet{}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(results); err != nil {
		tmp.Close()
		return fmt.Errorf("encode results: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}

	s.logger.Info().
		Str("path", s.path).
		Int("items", len(results)).
		Msg("Results written")
	return nil
}
