package tempfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"aerialdetect/internal/config"
	"aerialdetect/internal/logger"
)

func setupTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.NewLogger(&config.Config{LogDirectory: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	t.Cleanup(log.Close)
	return log
}

func assertEmpty(t *testing.T, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected %s to be empty, found %d entries", dir, len(entries))
	}
}

func TestWith_FileVisibleDuringCallback(t *testing.T) {
	dir := t.TempDir()
	log := setupTestLogger(t)

	var seen string
	err := With(dir, []byte("jpeg bytes"), log, func(path string) error {
		seen = path
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if string(data) != "jpeg bytes" {
			t.Errorf("Unexpected content: %q", data)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("With failed: %v", err)
	}
	if filepath.Dir(seen) != dir {
		t.Errorf("Expected file in %s, got %s", dir, seen)
	}
	assertEmpty(t, dir)
}

func TestWith_RemovesOnCallbackError(t *testing.T) {
	dir := t.TempDir()
	log := setupTestLogger(t)
	boom := errors.New("decode failed")

	err := With(dir, []byte("data"), log, func(path string) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Expected callback error, got %v", err)
	}
	assertEmpty(t, dir)
}

func TestWith_RemovesOnWriteError(t *testing.T) {
	dir := t.TempDir()
	log := setupTestLogger(t)

	original := writeFile
	writeFile = func(f *os.File, data []byte) error { return errors.New("disk full") }
	t.Cleanup(func() { writeFile = original })

	called := false
	err := With(dir, []byte("data"), log, func(path string) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("Expected write error")
	}
	if called {
		t.Error("Callback should not run after a failed write")
	}
	assertEmpty(t, dir)
}

func TestWith_MissingDirectory(t *testing.T) {
	log := setupTestLogger(t)
	dir := filepath.Join(t.TempDir(), "missing")

	err := With(dir, []byte("data"), log, func(path string) error {
		t.Error("Callback should not run")
		return nil
	})
	if err == nil {
		t.Fatal("Expected create error")
	}
}

func TestWith_CallbackMayRemoveFile(t *testing.T) {
	dir := t.TempDir()
	log := setupTestLogger(t)

	err := With(dir, []byte("data"), log, func(path string) error { return os.Remove(path) })
	if err != nil {
		t.Fatalf("With failed: %v", err)
	}

	data, err := os.ReadFile(log.Path(logger.WarningFile))
	if err != nil {
		t.Fatalf("Failed to read warning log: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("A file already gone should not be reported, got %q", data)
	}
}
