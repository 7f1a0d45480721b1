package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Indirection for simulating rename failures in tests.
var renameFile = os.Rename

// writeJSONAtomic serializes v to a temporary file in the target's directory
// and renames it over the target. On any failure the temporary file is
// removed and the prior target content is untouched.
func writeJSONAtomic(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("atomic write %q: marshal: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("atomic write %q: ensure dir: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("atomic write %q: create temp: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("atomic write %q: write temp: %w", path, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("atomic write %q: close temp: %w", path, err)
	}

	if err := renameFile(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("atomic write %q: rename: %w", path, err)
	}

	return nil
}

// readJSON loads path into v; missing files are reported via os.IsNotExist
// on the returned error.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("read %q: unmarshal: %w", path, err)
	}
	return nil
}
