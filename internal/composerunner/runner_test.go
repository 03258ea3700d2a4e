package composerunner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogsRejectsOutOfRangeTail(t *testing.T) {
	r := New(Options{})
	for _, tail := range []int{0, -1, 5001} {
		res := r.Logs("gateway", tail)
		if res.OK {
			t.Fatalf("tail=%d: expected OK=false", tail)
		}
		if res.Stderr != "invalid_tail" {
			t.Fatalf("tail=%d: stderr = %q, want invalid_tail", tail, res.Stderr)
		}
	}
}

func TestUpRejectsServiceOutsideAllowList(t *testing.T) {
	r := New(Options{Bin: "false"})
	res := r.Up("mystery-service")
	if res.OK {
		t.Fatalf("expected OK=false for disallowed service")
	}
	if res.Stderr != "service_not_allowed" {
		t.Fatalf("stderr = %q, want service_not_allowed", res.Stderr)
	}
	if res.Stdout != "" {
		t.Fatalf("expected no subprocess launched, got stdout %q", res.Stdout)
	}
}

func TestUpAllowsCoreService(t *testing.T) {
	r := New(Options{Bin: "true"})
	res := r.Up("gateway")
	if !res.OK {
		t.Fatalf("expected OK=true for core service, got stderr %q", res.Stderr)
	}
}

func TestUpAllowsExtraConfiguredService(t *testing.T) {
	r := New(Options{Bin: "true", ExtraServices: []string{"backup-agent"}})
	res := r.Up("backup-agent")
	if !res.OK {
		t.Fatalf("expected OK=true for configured extra service, got stderr %q", res.Stderr)
	}
}

func TestUpAllowsServiceDiscoveredFromComposeFile(t *testing.T) {
	dir := t.TempDir()
	composePath := filepath.Join(dir, "docker-compose.yml")
	doc := "services:\n  channel-slack:\n    image: slack:latest\n  gateway:\n    image: gateway:latest\n"
	if err := os.WriteFile(composePath, []byte(doc), 0o644); err != nil {
		t.Fatalf("write compose file: %v", err)
	}
	r := New(Options{Bin: "true", ComposeFile: composePath})
	res := r.Up("channel-slack")
	if !res.OK {
		t.Fatalf("expected OK=true for compose-discovered service, got stderr %q", res.Stderr)
	}
}

func TestParseComposeServiceNames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "compose.yml")
	doc := "services:\n  gateway:\n    image: g\n  admin:\n    image: a\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write compose file: %v", err)
	}
	names, err := parseComposeServiceNames(path)
	if err != nil {
		t.Fatalf("parseComposeServiceNames: %v", err)
	}
	if len(names) != 2 || names[0] != "admin" || names[1] != "gateway" {
		t.Fatalf("names = %v, want [admin gateway]", names)
	}
}

func TestRunCapturesStdout(t *testing.T) {
	r := New(Options{Bin: "echo", Subcommand: "marker"})
	res := r.Ps()
	if !res.OK {
		t.Fatalf("expected OK=true, got stderr %q", res.Stderr)
	}
	if !strings.Contains(res.Stdout, "marker") || !strings.Contains(res.Stdout, "ps") {
		t.Fatalf("stdout = %q, want it to contain marker and ps args", res.Stdout)
	}
}

func TestRunSurfacesNonZeroExit(t *testing.T) {
	r := New(Options{Bin: "false"})
	res := r.Config()
	if res.OK {
		t.Fatalf("expected OK=false for non-zero exit")
	}
	if res.Stderr == "" {
		t.Fatalf("expected non-empty stderr describing the failure")
	}
}

func TestRunSurfacesLaunchFailure(t *testing.T) {
	r := New(Options{Bin: "definitely-not-a-real-binary-xyz"})
	res := r.Ps()
	if res.OK {
		t.Fatalf("expected OK=false for missing binary")
	}
	if res.Stderr == "" {
		t.Fatalf("expected stderr describing the launch failure")
	}
}

func TestEnvAddsDockerHostWhenUnset(t *testing.T) {
	for _, name := range []string{"DOCKER_HOST", "CONTAINER_HOST"} {
		prior, hadPrior := os.LookupEnv(name)
		os.Unsetenv(name)
		defer func(name, prior string, hadPrior bool) {
			if hadPrior {
				os.Setenv(name, prior)
			}
		}(name, prior, hadPrior)
	}

	r := New(Options{SocketURI: "tcp://example:2376"})
	env := r.env(nil)
	wantDocker, wantContainer := false, false
	for _, kv := range env {
		if kv == "DOCKER_HOST=tcp://example:2376" {
			wantDocker = true
		}
		if kv == "CONTAINER_HOST=tcp://example:2376" {
			wantContainer = true
		}
	}
	if !wantDocker || !wantContainer {
		t.Fatalf("expected DOCKER_HOST and CONTAINER_HOST both injected into subprocess env, got %v", env)
	}
}

func TestEnvLeavesExistingDockerHostAlone(t *testing.T) {
	os.Setenv("DOCKER_HOST", "unix:///already/set.sock")
	os.Setenv("CONTAINER_HOST", "unix:///already/set.sock")
	defer os.Unsetenv("DOCKER_HOST")
	defer os.Unsetenv("CONTAINER_HOST")

	r := New(Options{SocketURI: "tcp://example:2376"})
	env := r.env(nil)
	for _, kv := range env {
		if kv == "DOCKER_HOST=tcp://example:2376" || kv == "CONTAINER_HOST=tcp://example:2376" {
			t.Fatalf("expected configured socket URI not to override an existing DOCKER_HOST/CONTAINER_HOST, got %v", env)
		}
	}
}
