package apply

import (
	"bytes"
	"sort"

	"github.com/openpalm/stackctl/internal/artifacts"
	"gopkg.in/yaml.v3"
)

// diffImpact compares prior on-disk artifacts against a freshly rendered
// preview and produces the ImpactPlan spec.md §4.5 step 5 describes.
func diffImpact(prior, preview artifacts.Artifacts) ImpactPlan {
	var up, restart, reload []string
	upSeen, restartSeen, reloadSeen := map[string]bool{}, map[string]bool{}, map[string]bool{}

	addUp := func(svc string) {
		if !upSeen[svc] {
			upSeen[svc] = true
			up = append(up, svc)
		}
	}
	addRestart := func(svc string) {
		if !restartSeen[svc] {
			restartSeen[svc] = true
			restart = append(restart, svc)
		}
	}
	addReload := func(svc string) {
		if !reloadSeen[svc] {
			reloadSeen[svc] = true
			reload = append(reload, svc)
		}
	}

	if !bytes.Equal(prior.ProxyConfig, preview.ProxyConfig) {
		addReload("caddy")
	}
	if !bytes.Equal(prior.SystemEnv, preview.SystemEnv) {
		addRestart("admin")
		addRestart("gateway")
	}
	if !bytes.Equal(prior.GatewayEnv, preview.GatewayEnv) {
		addRestart("gateway")
	}
	if !bytes.Equal(prior.AssistantEnv, preview.AssistantEnv) {
		addRestart("assistant")
	}
	if !bytes.Equal(prior.PostgresEnv, preview.PostgresEnv) {
		addRestart("postgres")
	}
	if !bytes.Equal(prior.QdrantEnv, preview.QdrantEnv) {
		addRestart("qdrant")
	}
	if !bytes.Equal(prior.OpenMemoryEnv, preview.OpenMemoryEnv) {
		addRestart("openmemory")
	}
	for name, body := range preview.ChannelEnvs {
		if !bytes.Equal(prior.ChannelEnvs[name], body) {
			addRestart(name)
		}
	}
	for name, body := range preview.ServiceEnvs {
		if !bytes.Equal(prior.ServiceEnvs[name], body) {
			addRestart(name)
		}
	}

	if !bytes.Equal(prior.ComposeDoc, preview.ComposeDoc) {
		oldNames := composeServiceNames(prior.ComposeDoc)
		newNames := composeServiceNames(preview.ComposeDoc)
		oldSet := toSet(oldNames)
		for _, svc := range newNames {
			if oldSet[svc] {
				continue
			}
			// A service absent from the prior compose doc is new-only: it
			// must be started, and the core services it attaches to
			// (network membership, gateway routing) are conservatively
			// restarted alongside it (spec.md §4.5 step 5).
			addUp(svc)
			addRestart("gateway")
			addRestart("assistant")
			addRestart("openmemory")
			addRestart("admin")
		}
	}

	// up wins over restart: drop anything from restart that also up.
	finalRestart := make([]string, 0, len(restart))
	for _, svc := range restart {
		if !upSeen[svc] {
			finalRestart = append(finalRestart, svc)
		}
	}

	return ImpactPlan{Up: up, Restart: finalRestart, Reload: reload}
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// composeServiceNames extracts the top-level services: map's keys from a
// compose document's raw bytes. An empty or unparsable document yields no
// names (treated as "no prior services" rather than an error, matching
// snapshotPrior's missing-file-reads-as-empty convention).
func composeServiceNames(doc []byte) []string {
	if len(doc) == 0 {
		return nil
	}
	var parsed struct {
		Services map[string]yaml.Node `yaml:"services"`
	}
	if err := yaml.Unmarshal(doc, &parsed); err != nil {
		return nil
	}
	names := make([]string, 0, len(parsed.Services))
	for name := range parsed.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
