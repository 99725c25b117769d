// Package tempfile stages uploaded bytes on disk for readers that only accept
// a path.
package tempfile

import (
	"errors"
	"fmt"
	"os"

	"aerialdetect/internal/logger"
)

// Pattern names staged uploads inside the temp directory.
const Pattern = "upload-*.img"

var writeFile = func(f *os.File, data []byte) error {
	_, err := f.Write(data)
	return err
}

// With writes data to a new file in dir, calls fn with its path and removes
// the file on every exit path. A failed removal is logged, not returned.
func With(dir string, data []byte, logger *logger.Logger, fn func(path string) error) error {
	f, err := os.CreateTemp(dir, Pattern)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warning("Could not remove temp file %s: %v", path, err)
		}
	}()

	writeErr := writeFile(f, data)
	closeErr := f.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	return fn(path)
}
