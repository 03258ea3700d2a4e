package stackspec

import (
	"os"
	"path/filepath"
)

// EnsureSpec reads path and parses it, or — if path does not exist — writes
// CreateDefault there and returns it. Grounded on the teacher's
// read-or-create bootstrap in tools/si's vault init command.
func EnsureSpec(path string) (StackSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return StackSpec{}, wrapError("stack_spec_read_failed", err, path)
		}
		spec := CreateDefault()
		if err := WriteSpec(path, spec); err != nil {
			return StackSpec{}, err
		}
		return spec, nil
	}
	return Parse(raw)
}

// WriteSpec stringifies spec and atomically rewrites path: write to a
// sibling temp file, then rename over the target, so a reader never
// observes a partially written spec file.
func WriteSpec(path string, spec StackSpec) error {
	body, err := Stringify(spec)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return wrapError("stack_spec_write_failed", err, path)
	}
	tmp, err := os.CreateTemp(dir, ".stack-spec-*.tmp")
	if err != nil {
		return wrapError("stack_spec_write_failed", err, path)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return wrapError("stack_spec_write_failed", err, path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return wrapError("stack_spec_write_failed", err, path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return wrapError("stack_spec_write_failed", err, path)
	}
	return nil
}
