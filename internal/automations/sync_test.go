package automations

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openpalm/stackctl/internal/stackspec"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{Root: t.TempDir(), ReloadBin: "definitely-not-a-real-scheduler-xyz"}
}

func TestSyncAutomationsRejectsInvalidCron(t *testing.T) {
	cfg := testConfig(t)
	list := []stackspec.Automation{
		{ID: "nightly-backup", Name: "Nightly backup", Schedule: "*/0 * * * *", Script: "echo hi", Enabled: true},
	}
	err := SyncAutomations(cfg, list)
	if err == nil {
		t.Fatalf("expected an error for an invalid cron schedule")
	}
	if got := CodeOf(err); got != "invalid_cron_schedule" {
		t.Fatalf("CodeOf = %q, want invalid_cron_schedule", got)
	}
	if _, statErr := os.Stat(cfg.scriptPath("nightly-backup")); !os.IsNotExist(statErr) {
		t.Fatalf("expected no script written on validation failure")
	}
}

func TestSyncAutomationsWritesScriptsAndSchedules(t *testing.T) {
	cfg := testConfig(t)
	list := []stackspec.Automation{
		{ID: "b-job", Name: "B job", Schedule: "0 3 * * *", Script: "echo b", Enabled: true},
		{ID: "a-job", Name: "A job", Schedule: "0 4 * * *", Script: "echo a", Enabled: false},
	}
	if err := SyncAutomations(cfg, list); err != nil {
		t.Fatalf("SyncAutomations: %v", err)
	}

	for _, id := range []string{"a-job", "b-job"} {
		body, err := os.ReadFile(cfg.scriptPath(id))
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", id, err)
		}
		if !strings.Contains(string(body), "echo") {
			t.Fatalf("script for %s missing its body: %q", id, body)
		}
	}

	enabled, err := os.ReadDir(cfg.enabledDir())
	if err != nil {
		t.Fatalf("ReadDir(enabled): %v", err)
	}
	// sorted by id: a-job is 01, b-job is 02; only b-job is enabled.
	if len(enabled) != 1 || enabled[0].Name() != "02-b-job" {
		t.Fatalf("expected exactly [02-b-job] in enabled, got %v", enabled)
	}

	disabled, err := os.ReadDir(cfg.disabledDir())
	if err != nil {
		t.Fatalf("ReadDir(disabled): %v", err)
	}
	if len(enabled)+len(disabled) != 2 {
		t.Fatalf("expected 2 total schedule entries, got enabled=%d disabled=%d", len(enabled), len(disabled))
	}

	schedule, err := os.ReadFile(cfg.schedulePath())
	if err != nil {
		t.Fatalf("ReadFile(cron.schedule): %v", err)
	}
	if strings.Contains(string(schedule), "a-job") {
		t.Fatalf("cron.schedule must only list enabled entries, got %q", schedule)
	}
	if !strings.Contains(string(schedule), "b-job") {
		t.Fatalf("cron.schedule missing enabled entry, got %q", schedule)
	}

	if _, err := os.Stat(cfg.runnerPath()); err != nil {
		t.Fatalf("expected runner.sh to be written: %v", err)
	}
}

func TestSyncAutomationsRemovesStaleScripts(t *testing.T) {
	cfg := testConfig(t)
	first := []stackspec.Automation{
		{ID: "keep", Name: "Keep", Schedule: "0 0 * * *", Script: "echo keep", Enabled: true},
		{ID: "drop", Name: "Drop", Schedule: "0 0 * * *", Script: "echo drop", Enabled: true},
	}
	if err := SyncAutomations(cfg, first); err != nil {
		t.Fatalf("SyncAutomations (first): %v", err)
	}

	second := []stackspec.Automation{
		{ID: "keep", Name: "Keep", Schedule: "0 0 * * *", Script: "echo keep", Enabled: true},
	}
	if err := SyncAutomations(cfg, second); err != nil {
		t.Fatalf("SyncAutomations (second): %v", err)
	}

	if _, err := os.Stat(cfg.scriptPath("keep")); err != nil {
		t.Fatalf("expected keep's script to remain: %v", err)
	}
	if _, err := os.Stat(cfg.scriptPath("drop")); !os.IsNotExist(err) {
		t.Fatalf("expected drop's script to be removed, stat err = %v", err)
	}
}

func TestSyncAutomationsRejectsMissingRoot(t *testing.T) {
	err := SyncAutomations(Config{}, nil)
	if err == nil {
		t.Fatalf("expected an error when Root is unset")
	}
	if got := CodeOf(err); got != "invalid_cron_schedule" {
		t.Fatalf("CodeOf = %q, want invalid_cron_schedule", got)
	}
}

func TestTriggerAutomationRunsScript(t *testing.T) {
	cfg := testConfig(t)
	list := []stackspec.Automation{
		{ID: "ping", Name: "Ping", Schedule: "0 0 * * *", Script: "exit 0", Enabled: true},
	}
	if err := SyncAutomations(cfg, list); err != nil {
		t.Fatalf("SyncAutomations: %v", err)
	}

	if _, err := os.Stat(filepath.Join(cfg.Root, "locks")); err == nil {
		t.Fatalf("locks directory should not exist before the first trigger")
	}

	ok, err := TriggerAutomation(cfg, "ping")
	if err != nil {
		t.Fatalf("TriggerAutomation: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true for an exit-0 script")
	}
}

func TestTriggerAutomationReportsFailingScript(t *testing.T) {
	cfg := testConfig(t)
	list := []stackspec.Automation{
		{ID: "fails", Name: "Fails", Schedule: "0 0 * * *", Script: "exit 7", Enabled: true},
	}
	if err := SyncAutomations(cfg, list); err != nil {
		t.Fatalf("SyncAutomations: %v", err)
	}

	ok, err := TriggerAutomation(cfg, "fails")
	if err != nil {
		t.Fatalf("TriggerAutomation: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for an exit-7 script")
	}
}
