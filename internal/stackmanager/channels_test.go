package stackmanager

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openpalm/stackctl/internal/stackspec"
)

func TestSetChannelAccessPersists(t *testing.T) {
	m, _ := testManager(t)
	if _, err := m.GetSpec(); err != nil {
		t.Fatalf("GetSpec: %v", err)
	}

	spec, err := m.SetChannelAccess("chat", stackspec.ScopeHost)
	if err != nil {
		t.Fatalf("SetChannelAccess: %v", err)
	}
	if spec.Channels["chat"].Exposure != stackspec.ScopeHost {
		t.Fatalf("Exposure = %v, want host", spec.Channels["chat"].Exposure)
	}

	reloaded, err := m.GetSpec()
	if err != nil {
		t.Fatalf("GetSpec: %v", err)
	}
	if reloaded.Channels["chat"].Exposure != stackspec.ScopeHost {
		t.Fatalf("persisted Exposure = %v, want host", reloaded.Channels["chat"].Exposure)
	}
}

func TestSetChannelAccessUnknownChannel(t *testing.T) {
	m, _ := testManager(t)
	if _, err := m.GetSpec(); err != nil {
		t.Fatalf("GetSpec: %v", err)
	}
	_, err := m.SetChannelAccess("nope", stackspec.ScopeHost)
	if err == nil {
		t.Fatalf("expected error for unknown channel")
	}
	if got := CodeOf(err); got != "unknown_channel_nope" {
		t.Fatalf("CodeOf = %q, want unknown_channel_nope", got)
	}
}

func TestSetChannelConfigDropsUnrecognizedBuiltinKeys(t *testing.T) {
	m, _ := testManager(t)
	if _, err := m.GetSpec(); err != nil {
		t.Fatalf("GetSpec: %v", err)
	}

	spec, err := m.SetChannelConfig("chat", map[string]string{
		"CHAT_INBOUND_TOKEN": "tok",
		"NOT_A_REAL_KEY":      "dropped",
	})
	if err != nil {
		t.Fatalf("SetChannelConfig: %v", err)
	}
	cfg := spec.Channels["chat"]
	if cfg.Config["CHAT_INBOUND_TOKEN"] != "tok" {
		t.Fatalf("expected recognized key kept, got %v", cfg.Config)
	}
	if _, ok := cfg.Config["NOT_A_REAL_KEY"]; ok {
		t.Fatalf("expected unrecognized key dropped, got %v", cfg.Config)
	}
	if _, ok := cfg.Config["CHAT_WEBHOOK_PATH"]; ok {
		t.Fatalf("expected recognized-but-unset key absent, got %v", cfg.Config)
	}
}

func TestSetChannelConfigCustomChannelReplacesEntirely(t *testing.T) {
	m, _ := testManager(t)
	spec, err := m.GetSpec()
	if err != nil {
		t.Fatalf("GetSpec: %v", err)
	}
	spec.Channels["slack"] = stackspec.ChannelConfig{
		Kind:          stackspec.ChannelKindCustom,
		Enabled:       true,
		Exposure:      stackspec.ScopeLAN,
		Image:         "slack:latest",
		ContainerPort: 8500,
		Config:        map[string]string{"OLD_KEY": "old"},
	}
	body, err := stackspec.Stringify(spec)
	if err != nil {
		t.Fatalf("Stringify: %v", err)
	}
	if _, err := m.SetSpec(body); err != nil {
		t.Fatalf("SetSpec: %v", err)
	}

	updated, err := m.SetChannelConfig("slack", map[string]string{"NEW_KEY": "new"})
	if err != nil {
		t.Fatalf("SetChannelConfig: %v", err)
	}
	cfg := updated.Channels["slack"]
	if len(cfg.Config) != 1 || cfg.Config["NEW_KEY"] != "new" {
		t.Fatalf("expected config fully replaced, got %v", cfg.Config)
	}
}

func TestSetChannelConfigStripsNewlines(t *testing.T) {
	m, _ := testManager(t)
	if _, err := m.GetSpec(); err != nil {
		t.Fatalf("GetSpec: %v", err)
	}

	spec, err := m.SetChannelConfig("chat", map[string]string{
		"CHAT_INBOUND_TOKEN": "line1\nline2\r\nline3",
	})
	if err != nil {
		t.Fatalf("SetChannelConfig: %v", err)
	}
	if got := spec.Channels["chat"].Config["CHAT_INBOUND_TOKEN"]; got != "line1line2line3" {
		t.Fatalf("Config[CHAT_INBOUND_TOKEN] = %q, want newlines stripped", got)
	}
}

func TestSetAccessScopeRerendersSystemEnv(t *testing.T) {
	m, paths := testManager(t)
	if _, err := m.GetSpec(); err != nil {
		t.Fatalf("GetSpec: %v", err)
	}
	if _, err := m.SetAccessScope(stackspec.ScopePublic); err != nil {
		t.Fatalf("SetAccessScope: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(paths.StateRoot, "system.env"))
	if err != nil {
		t.Fatalf("read system.env: %v", err)
	}
	if !strings.Contains(string(raw), "OPENPALM_ACCESS_SCOPE=public") {
		t.Fatalf("system.env = %q, want public scope", raw)
	}
}
