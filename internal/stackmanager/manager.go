package stackmanager

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/openpalm/stackctl/internal/artifacts"
	"github.com/openpalm/stackctl/internal/secretstore"
	"github.com/openpalm/stackctl/internal/stackspec"
)

// coreServiceDirs are never subject to stale-directory garbage collection:
// they exist for the lifetime of the stack regardless of spec contents.
var coreServiceDirs = map[string]bool{
	"gateway": true, "assistant": true, "postgres": true,
	"qdrant": true, "openmemory": true,
}

// reservedOverrideFile, if present in an otherwise-stale service directory,
// pins that directory against garbage collection (spec.md §3 "Lifecycle":
// "except a reserved user-override file").
const reservedOverrideFile = "KEEP"

// Paths are every file this manager owns or writes, injected at
// construction per spec.md §4.4 ("Paths for every artifact are injected at
// construction") and §9 ("Global state": every dependency is injected
// through the constructor).
type Paths struct {
	SpecPath        string
	SecretsPath     string
	StateRoot       string
	ComposeFilePath string
	ProxyConfigPath string
}

// Manager owns the spec file, the secret file, and the rendered-artifacts
// tree, serializing every mutation behind a single process-wide mutex
// (spec.md §5).
type Manager struct {
	paths Paths
	mu    sync.Mutex
	now   func() time.Time
}

// New constructs a Manager over paths. now defaults to time.Now; tests may
// inject a fixed clock for deterministic temp-file names.
func New(paths Paths, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{paths: paths, now: now}
}

// Paths returns the file layout this manager was constructed with, for
// callers (the apply engine) that need to read the same on-disk locations
// directly to snapshot prior artifact state.
func (m *Manager) Paths() Paths { return m.paths }

// GetSpec reads a consistent snapshot of the spec file, creating it with
// defaults if absent (spec.md §3 "Lifecycle").
func (m *Manager) GetSpec() (stackspec.StackSpec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return stackspec.EnsureSpec(m.paths.SpecPath)
}

// SetSpec parses raw, rejects it wholesale on any validation error (no
// partial writes), atomically rewrites the spec file, and re-renders every
// artifact (spec.md §4.4 "parse-validate-write-render").
func (m *Manager) SetSpec(raw []byte) (stackspec.StackSpec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spec, err := stackspec.Parse(raw)
	if err != nil {
		return stackspec.StackSpec{}, err
	}
	if err := stackspec.WriteSpec(m.paths.SpecPath, spec); err != nil {
		return stackspec.StackSpec{}, err
	}
	if _, err := m.renderLocked(spec, "setSpec"); err != nil {
		return spec, err
	}
	return spec, nil
}

// RenderPreview renders the current spec and secrets without writing
// anything (spec.md §4.4 "renderPreview").
func (m *Manager) RenderPreview() (artifacts.Artifacts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spec, err := stackspec.EnsureSpec(m.paths.SpecPath)
	if err != nil {
		return artifacts.Artifacts{}, err
	}
	return m.generate(spec)
}

// RenderArtifacts renders the current spec and secrets and writes every
// artifact to its final path, creating intermediate directories and
// garbage-collecting stale per-channel/per-service directories (spec.md
// §4.4 "renderArtifacts").
func (m *Manager) RenderArtifacts() (artifacts.Artifacts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spec, err := stackspec.EnsureSpec(m.paths.SpecPath)
	if err != nil {
		return artifacts.Artifacts{}, err
	}
	return m.renderLocked(spec, "renderArtifacts")
}

func (m *Manager) generate(spec stackspec.StackSpec) (artifacts.Artifacts, error) {
	secrets, err := secretstore.Read(m.paths.SecretsPath)
	if err != nil {
		return artifacts.Artifacts{}, err
	}
	return artifacts.Generate(spec, secrets)
}

func (m *Manager) renderLocked(spec stackspec.StackSpec, trigger string) (artifacts.Artifacts, error) {
	out, err := m.generate(spec)
	if err != nil {
		return artifacts.Artifacts{}, err
	}
	if err := m.writeArtifacts(out); err != nil {
		return artifacts.Artifacts{}, err
	}
	m.appendAuditLog(trigger)
	return out, nil
}

func (m *Manager) writeArtifacts(out artifacts.Artifacts) error {
	if err := m.writeFileAtomic(m.paths.ProxyConfigPath, out.ProxyConfig); err != nil {
		return err
	}
	if err := m.writeFileAtomic(m.paths.ComposeFilePath, out.ComposeDoc); err != nil {
		return err
	}
	if err := m.writeFileAtomic(filepath.Join(m.paths.StateRoot, "system.env"), out.SystemEnv); err != nil {
		return err
	}
	fixed := map[string][]byte{
		"gateway":    out.GatewayEnv,
		"assistant":  out.AssistantEnv,
		"postgres":   out.PostgresEnv,
		"qdrant":     out.QdrantEnv,
		"openmemory": out.OpenMemoryEnv,
	}
	for name, body := range fixed {
		if err := m.writeFileAtomic(filepath.Join(m.paths.StateRoot, name, ".env"), body); err != nil {
			return err
		}
	}
	live := map[string]bool{}
	for name, body := range out.ChannelEnvs {
		live[name] = true
		if err := m.writeFileAtomic(filepath.Join(m.paths.StateRoot, name, ".env"), body); err != nil {
			return err
		}
	}
	for name, body := range out.ServiceEnvs {
		live[name] = true
		if err := m.writeFileAtomic(filepath.Join(m.paths.StateRoot, name, ".env"), body); err != nil {
			return err
		}
	}
	return m.gcStaleServiceDirs(live)
}

// gcStaleServiceDirs removes per-channel/per-service directories under
// StateRoot that no longer correspond to an enabled entity, except core
// service directories and any directory pinned by reservedOverrideFile
// (spec.md §3 "stale route files from removed channels are garbage-
// collected").
func (m *Manager) gcStaleServiceDirs(live map[string]bool) error {
	entries, err := os.ReadDir(m.paths.StateRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return wrapError("stack_manager_gc_failed", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() || live[entry.Name()] || coreServiceDirs[entry.Name()] {
			continue
		}
		dir := filepath.Join(m.paths.StateRoot, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, reservedOverrideFile)); err == nil {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return wrapError("stack_manager_gc_failed", err, entry.Name())
		}
	}
	return nil
}

type auditEvent struct {
	Timestamp string `json:"timestamp"`
	Trigger   string `json:"trigger"`
}

func (m *Manager) appendAuditLog(trigger string) {
	line, err := json.Marshal(auditEvent{Timestamp: m.now().UTC().Format(time.RFC3339), Trigger: trigger})
	if err != nil {
		return
	}
	path := filepath.Join(m.paths.StateRoot, "render.log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	f.Write(append(line, '\n'))
}

// writeFileAtomic writes contents to path via write-temp-then-rename
// (spec.md §4.4 "Atomic rewrite": "<path>.<ts>.tmp" then rename).
func (m *Manager) writeFileAtomic(path string, contents []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return wrapError("stack_manager_write_failed", err, path)
	}
	tmpPath := path + "." + strconv.FormatInt(m.now().UnixNano(), 10) + ".tmp"
	if err := os.WriteFile(tmpPath, contents, 0o644); err != nil {
		os.Remove(tmpPath)
		return wrapError("stack_manager_write_failed", err, path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return wrapError("stack_manager_write_failed", err, path)
	}
	return nil
}

