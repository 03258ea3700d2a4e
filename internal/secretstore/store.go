package secretstore

import (
	"os"
	"path/filepath"
)

// Read parses the secret file at path into a map. A missing file reads as
// empty, matching the teacher's read-or-default bootstrap pattern.
func Read(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, wrapError("secret_file_read_failed", err)
	}
	return Parse(raw).ToMap(), nil
}

// Update rewrites the secret file at path, applying entries (nil value
// deletes, everything else upserts) while preserving every untouched line.
// No-ops (nothing changed) skip the rewrite entirely.
func Update(path string, entries map[string]*string) error {
	raw, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return wrapError("secret_file_read_failed", err)
	}
	file := Parse(raw)
	if !file.Update(entries) {
		return nil
	}
	return writeAtomic(path, file.Bytes())
}

// UpsertSecret validates name, sanitizes value, and writes it to the secret
// file at path. Callers are responsible for triggering a re-render
// afterward (spec.md §4.2).
func UpsertSecret(path, name, value string) error {
	if !ValidName(name) {
		return newError("invalid_secret_name")
	}
	sanitized := Sanitize(value)
	v := sanitized
	return Update(path, map[string]*string{name: &v})
}

// DeleteSecret removes name from the secret file at path. usedBy lists
// every reason the caller found this name still referenced (enabled
// channel/service config keys, core requirements); a non-empty usedBy
// refuses the delete with secret_in_use (spec.md §4.2 invariant 3).
func DeleteSecret(path, name string, usedBy []string) error {
	if len(usedBy) > 0 {
		return newError("secret_in_use")
	}
	current, err := Read(path)
	if err != nil {
		return err
	}
	if _, ok := current[name]; !ok {
		return newError("unknown_secret_name")
	}
	return Update(path, map[string]*string{name: nil})
}

// writeAtomic writes contents to path via write-temp-then-rename, mirroring
// tools/si/internal/vault's WriteDotenvFileAtomic.
func writeAtomic(path string, contents []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return wrapError("secret_file_write_failed", err)
	}
	mode := os.FileMode(0o600)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	tmp, err := os.CreateTemp(dir, ".secrets.tmp-*")
	if err != nil {
		return wrapError("secret_file_write_failed", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return wrapError("secret_file_write_failed", err)
	}
	if _, err := tmp.Write(contents); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return wrapError("secret_file_write_failed", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return wrapError("secret_file_write_failed", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return wrapError("secret_file_write_failed", err)
	}
	return nil
}
