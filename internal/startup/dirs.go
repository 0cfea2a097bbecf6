package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"media-relay/internal/logging"
)

// ensureDirectory creates path if missing and fails if it is not a directory.
func ensureDirectory(path, name string) error {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("  Created %s directory: %s", name, path)
		return nil
	case err != nil:
		return fmt.Errorf("failed to stat directory: %w", err)
	case !info.IsDir():
		return fmt.Errorf("%s exists but is not a directory", path)
	}
	logging.Debug("  %s directory exists: %s", name, path)
	return nil
}

// testWriteAccess creates and removes a probe file in dir.
func testWriteAccess(dir string) error {
	f, err := os.CreateTemp(dir, ".write-test-*")
	if err != nil {
		return err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		logging.Warn("failed to close write test file %s: %v", name, err)
	}
	if err := os.Remove(name); err != nil {
		logging.Warn("failed to remove write test file %s: %v", name, err)
	}
	return nil
}

// setupOptionalDir prepares a directory for an optional feature and reports
// whether the feature can be used.
func setupOptionalDir(path, name string) bool {
	if err := ensureDirectory(path, name); err != nil {
		logging.Warn("  %s directory unavailable, %s disabled: %v", name, name, err)
		return false
	}
	if err := testWriteAccess(path); err != nil {
		logging.Warn("  %s directory not writable, %s disabled: %v", name, name, err)
		return false
	}
	logging.Info("  [OK] %s directory ready", name)
	return true
}
