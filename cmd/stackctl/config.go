package main

import (
	"os"
	"path/filepath"

	"github.com/openpalm/stackctl/internal/automations"
	"github.com/openpalm/stackctl/internal/composerunner"
	"github.com/openpalm/stackctl/internal/stackmanager"
)

// pathsFromEnv builds the Stack Manager's file layout from environment
// variables, falling back to a layout rooted at the current directory
// (spec.md §6 "Files owned").
func pathsFromEnv() stackmanager.Paths {
	specPath := envOr("OPENPALM_SPEC_PATH", "openpalm.yaml")
	secretsPath := envOr("OPENPALM_SECRETS_PATH", "secrets.env")
	stateRoot := envOr("OPENPALM_STATE_ROOT", "state")
	composeFile := envOr("OPENPALM_COMPOSE_FILE", filepath.Join(stateRoot, "docker-compose.yml"))
	proxyConfig := envOr("OPENPALM_PROXY_CONFIG_PATH", filepath.Join(stateRoot, "caddy.json"))

	// composerunner.NewFromEnv reads OPENPALM_COMPOSE_FILE itself; keep it in
	// sync with the path the manager writes to when the operator didn't set
	// it explicitly.
	if os.Getenv("OPENPALM_COMPOSE_FILE") == "" {
		os.Setenv("OPENPALM_COMPOSE_FILE", composeFile)
	}

	return stackmanager.Paths{
		SpecPath:        specPath,
		SecretsPath:     secretsPath,
		StateRoot:       stateRoot,
		ComposeFilePath: composeFile,
		ProxyConfigPath: proxyConfig,
	}
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func newManager() *stackmanager.Manager {
	return stackmanager.New(pathsFromEnv(), nil)
}

func newRunner() *composerunner.Runner {
	return composerunner.NewFromEnv()
}

func cronConfig() automations.Config {
	return automations.ConfigFromEnv()
}
