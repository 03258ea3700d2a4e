package secretstore

import (
	"bytes"
	"regexp"
	"strings"
)

var secretNamePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// ValidName reports whether name is a legal secret name: [A-Z][A-Z0-9_]*.
func ValidName(name string) bool {
	return secretNamePattern.MatchString(name)
}

// Sanitize strips CR/LF and surrounding whitespace from a raw secret value,
// mirroring the newline-stripping every other string in the system undergoes
// before it reaches a generated file.
func Sanitize(value string) string {
	value = strings.ReplaceAll(value, "\r\n", "")
	value = strings.ReplaceAll(value, "\n", "")
	value = strings.ReplaceAll(value, "\r", "")
	return strings.TrimSpace(value)
}

// RawLine is one physical line of a secret file, its trailing newline kept
// distinct so the file's original line endings survive a rewrite.
type RawLine struct {
	Text string
	NL   string // "\n", "\r\n", or "" for a final line with no trailing newline
}

// File is a secret file kept as its original lines: any line that isn't a
// recognizable KEY=VALUE assignment (blank, comment, malformed) is preserved
// verbatim across every Update.
type File struct {
	Lines     []RawLine
	DefaultNL string
}

// Parse splits raw into a File, recording the file's dominant newline style
// so appended lines match it.
func Parse(raw []byte) File {
	lines := splitRawLines(raw)
	nl := "\n"
	for _, l := range lines {
		if l.NL != "" {
			nl = l.NL
			break
		}
	}
	return File{Lines: lines, DefaultNL: nl}
}

// Bytes renders f back to its on-disk form, terminating every line with its
// own newline (DefaultNL for a final line that had none). Trailing blank
// lines are kept, and a File with no lines renders as empty.
func (f File) Bytes() []byte {
	var buf bytes.Buffer
	for i, line := range f.Lines {
		buf.WriteString(line.Text)
		nl := line.NL
		if nl == "" {
			if i == len(f.Lines)-1 {
				nl = f.DefaultNL
			} else {
				nl = f.DefaultNL
			}
		}
		buf.WriteString(nl)
	}
	return buf.Bytes()
}

// ToMap parses every KEY=VALUE line into a map, skipping blanks and
// #-comments. The last occurrence of a duplicate key wins.
func (f File) ToMap() map[string]string {
	out := map[string]string{}
	for _, line := range f.Lines {
		key, val, ok := parseAssignment(line.Text)
		if !ok {
			continue
		}
		out[key] = val
	}
	return out
}

// Update applies entries to f in place: a non-nil value replaces the last
// existing line for that key or inserts a new one in key order; a nil value
// deletes every line for that key. Lines that aren't KEY=VALUE assignments
// are untouched. Reports whether anything changed.
func (f *File) Update(entries map[string]*string) bool {
	changed := false
	for key, val := range entries {
		if val == nil {
			if f.remove(key) {
				changed = true
			}
			continue
		}
		if f.set(key, *val) {
			changed = true
		}
	}
	return changed
}

func (f *File) set(key, value string) bool {
	last := -1
	for i, line := range f.Lines {
		k, _, ok := parseAssignment(line.Text)
		if ok && k == key {
			last = i
		}
	}
	rendered := key + "=" + value
	if last >= 0 {
		if f.Lines[last].Text == rendered {
			return false
		}
		f.Lines[last].Text = rendered
		return true
	}
	f.insertSorted(key, RawLine{Text: rendered, NL: f.DefaultNL})
	return true
}

// insertSorted inserts line just before the first existing assignment line
// whose key sorts after key, or at the end if none does. Ordering new keys
// this way rather than always appending means a delete of key followed by
// an upsert of the same key lands back in its original slot instead of at
// the tail, so the file comes back byte-identical to what it was before the
// delete (spec.md §8: "deleteSecret followed by upsertSecret with same
// value produces identical secret file to the original").
func (f *File) insertSorted(key string, line RawLine) {
	insertAt := len(f.Lines)
	for i, existing := range f.Lines {
		k, _, ok := parseAssignment(existing.Text)
		if ok && k > key {
			insertAt = i
			break
		}
	}
	if insertAt == len(f.Lines) {
		if len(f.Lines) > 0 && f.Lines[len(f.Lines)-1].NL == "" {
			f.Lines[len(f.Lines)-1].NL = f.DefaultNL
		}
		f.Lines = append(f.Lines, line)
		return
	}
	f.Lines = append(f.Lines, RawLine{})
	copy(f.Lines[insertAt+1:], f.Lines[insertAt:])
	f.Lines[insertAt] = line
}

func (f *File) remove(key string) bool {
	changed := false
	out := make([]RawLine, 0, len(f.Lines))
	for _, line := range f.Lines {
		k, _, ok := parseAssignment(line.Text)
		if ok && k == key {
			changed = true
			continue
		}
		out = append(out, line)
	}
	f.Lines = out
	return changed
}

func parseAssignment(text string) (key, value string, ok bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}
	eq := strings.IndexByte(trimmed, '=')
	if eq < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(trimmed[:eq])
	if key == "" {
		return "", "", false
	}
	value = trimmed[eq+1:]
	return key, value, true
}

func splitRawLines(data []byte) []RawLine {
	if len(data) == 0 {
		return nil
	}
	var out []RawLine
	start := 0
	for start < len(data) {
		idx := bytes.IndexByte(data[start:], '\n')
		if idx < 0 {
			out = append(out, RawLine{Text: string(data[start:]), NL: ""})
			break
		}
		idx += start
		line := data[start:idx]
		nl := "\n"
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
			nl = "\r\n"
		}
		out = append(out, RawLine{Text: string(line), NL: nl})
		start = idx + 1
	}
	return out
}
