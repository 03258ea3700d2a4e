package stackmanager

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/openpalm/stackctl/internal/stackspec"
)

func testManager(t *testing.T) (*Manager, Paths) {
	t.Helper()
	root := t.TempDir()
	paths := Paths{
		SpecPath:        filepath.Join(root, "openpalm.yaml"),
		SecretsPath:     filepath.Join(root, "secrets.env"),
		StateRoot:       filepath.Join(root, "state"),
		ComposeFilePath: filepath.Join(root, "state", "docker-compose.yml"),
		ProxyConfigPath: filepath.Join(root, "state", "caddy.json"),
	}
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return New(paths, func() time.Time { return fixed }), paths
}

func TestGetSpecCreatesDefaultOnFirstRead(t *testing.T) {
	m, paths := testManager(t)
	spec, err := m.GetSpec()
	if err != nil {
		t.Fatalf("GetSpec: %v", err)
	}
	if spec.AccessScope != stackspec.ScopeLAN {
		t.Fatalf("AccessScope = %v, want lan", spec.AccessScope)
	}
	if _, err := os.Stat(paths.SpecPath); err != nil {
		t.Fatalf("expected spec file written on first read: %v", err)
	}
}

func TestSetSpecRejectsInvalidWithoutWriting(t *testing.T) {
	m, paths := testManager(t)
	if _, err := m.GetSpec(); err != nil {
		t.Fatalf("GetSpec: %v", err)
	}
	before, err := os.ReadFile(paths.SpecPath)
	if err != nil {
		t.Fatalf("read spec: %v", err)
	}

	_, err = m.SetSpec([]byte("version: 1\nunexpected_field: true\n"))
	if err == nil {
		t.Fatalf("expected error for invalid spec")
	}

	after, err := os.ReadFile(paths.SpecPath)
	if err != nil {
		t.Fatalf("read spec: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("spec file was modified despite validation failure")
	}
}

func TestRenderArtifactsWritesEveryFile(t *testing.T) {
	m, paths := testManager(t)
	if _, err := m.RenderArtifacts(); err != nil {
		t.Fatalf("RenderArtifacts: %v", err)
	}

	for _, p := range []string{
		paths.ComposeFilePath,
		paths.ProxyConfigPath,
		filepath.Join(paths.StateRoot, "system.env"),
		filepath.Join(paths.StateRoot, "gateway", ".env"),
		filepath.Join(paths.StateRoot, "channel-chat", ".env"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s to exist: %v", p, err)
		}
	}

	log, err := os.ReadFile(filepath.Join(paths.StateRoot, "render.log"))
	if err != nil {
		t.Fatalf("read render.log: %v", err)
	}
	if !strings.Contains(string(log), "renderArtifacts") {
		t.Fatalf("render.log missing trigger, got %q", log)
	}
}

func TestRenderArtifactsGarbageCollectsStaleChannelDir(t *testing.T) {
	m, paths := testManager(t)
	if _, err := m.RenderArtifacts(); err != nil {
		t.Fatalf("RenderArtifacts: %v", err)
	}

	spec, err := m.GetSpec()
	if err != nil {
		t.Fatalf("GetSpec: %v", err)
	}
	cfg := spec.Channels["chat"]
	cfg.Enabled = false
	spec.Channels["chat"] = cfg
	if err := stackspec.WriteSpec(paths.SpecPath, spec); err != nil {
		t.Fatalf("WriteSpec: %v", err)
	}

	if _, err := m.RenderArtifacts(); err != nil {
		t.Fatalf("RenderArtifacts: %v", err)
	}
	if _, err := os.Stat(filepath.Join(paths.StateRoot, "channel-chat")); !os.IsNotExist(err) {
		t.Fatalf("expected stale channel-chat dir removed, stat err = %v", err)
	}
}

func TestRenderArtifactsPreservesReservedOverride(t *testing.T) {
	m, paths := testManager(t)
	if _, err := m.RenderArtifacts(); err != nil {
		t.Fatalf("RenderArtifacts: %v", err)
	}
	keepPath := filepath.Join(paths.StateRoot, "channel-chat", reservedOverrideFile)
	if err := os.WriteFile(keepPath, []byte("pinned"), 0o644); err != nil {
		t.Fatalf("write KEEP file: %v", err)
	}

	spec, err := m.GetSpec()
	if err != nil {
		t.Fatalf("GetSpec: %v", err)
	}
	cfg := spec.Channels["chat"]
	cfg.Enabled = false
	spec.Channels["chat"] = cfg
	if err := stackspec.WriteSpec(paths.SpecPath, spec); err != nil {
		t.Fatalf("WriteSpec: %v", err)
	}

	if _, err := m.RenderArtifacts(); err != nil {
		t.Fatalf("RenderArtifacts: %v", err)
	}
	if _, err := os.Stat(keepPath); err != nil {
		t.Fatalf("expected pinned directory preserved: %v", err)
	}
}

func TestRenderPreviewDoesNotWrite(t *testing.T) {
	m, paths := testManager(t)
	if _, err := m.RenderPreview(); err != nil {
		t.Fatalf("RenderPreview: %v", err)
	}
	if _, err := os.Stat(paths.ComposeFilePath); !os.IsNotExist(err) {
		t.Fatalf("expected no compose file written by RenderPreview, stat err = %v", err)
	}
}
