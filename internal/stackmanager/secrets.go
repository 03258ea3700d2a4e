package stackmanager

import (
	"sort"

	"github.com/openpalm/stackctl/internal/secretstore"
	"github.com/openpalm/stackctl/internal/stackspec"
)

// SecretInfo describes one known secret name's configuration and usage, the
// shape listSecretManagerState returns (spec.md §4.4).
type SecretInfo struct {
	Name        string
	Configured  bool
	UsedBy      []string
	Purpose     string
	Constraints string
	Rotation    string
}

// secretMetadata documents the fixed, well-known secrets every stack needs;
// names outside this table still appear in ListSecretManagerState with
// empty Purpose/Constraints/Rotation if configured or referenced.
var secretMetadata = map[string]struct{ purpose, constraints, rotation string }{
	"ANTHROPIC_API_KEY":            {"Anthropic API credential for the assistant core model", "non-empty", "rotate per provider policy"},
	"OPENPALM_SMALL_MODEL_API_KEY": {"credential for the assistant's small/fast model tier", "non-empty", "rotate per provider policy"},
	"OPENPALM_GATEWAY_SIGNING_KEY": {"signs gateway-issued tokens between channels and the assistant", "non-empty, treat as a symmetric key", "rotate on suspected compromise"},
	"POSTGRES_PASSWORD":            {"Postgres superuser password for the core database", "non-empty", "rotate with a coordinated restart"},
}

// UpsertSecret validates and writes name=value to the secret file, then
// re-renders (spec.md §4.2 "upsertSecret").
func (m *Manager) UpsertSecret(name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := secretstore.UpsertSecret(m.paths.SecretsPath, name, value); err != nil {
		return err
	}
	spec, err := stackspec.EnsureSpec(m.paths.SpecPath)
	if err != nil {
		return err
	}
	_, err = m.renderLocked(spec, "upsertSecret")
	return err
}

// DeleteSecret removes name from the secret file, refusing with
// secret_in_use if it is still referenced by any enabled channel's config,
// any service's config, or the fixed core requirements (spec.md §4.2
// invariant 3).
func (m *Manager) DeleteSecret(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	spec, err := stackspec.EnsureSpec(m.paths.SpecPath)
	if err != nil {
		return err
	}
	usedBy := secretUsage(spec, name)
	if err := secretstore.DeleteSecret(m.paths.SecretsPath, name, usedBy); err != nil {
		return err
	}
	_, err = m.renderLocked(spec, "deleteSecret")
	return err
}

// ListSecretManagerState returns every known secret name (the union of
// secrets configured in the file, secrets referenced by the spec, and the
// fixed core requirements) with its usage manifest (spec.md §4.4).
func (m *Manager) ListSecretManagerState() ([]SecretInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spec, err := stackspec.EnsureSpec(m.paths.SpecPath)
	if err != nil {
		return nil, err
	}
	configured, err := secretstore.Read(m.paths.SecretsPath)
	if err != nil {
		return nil, err
	}

	names := map[string]bool{}
	for _, n := range stackspec.CoreSecretRequirements {
		names[n] = true
	}
	for n := range configured {
		names[n] = true
	}
	referencedBy := referencedSecretNames(spec)
	for n := range referencedBy {
		names[n] = true
	}

	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	out := make([]SecretInfo, 0, len(sorted))
	for _, name := range sorted {
		_, configuredOK := configured[name]
		usedBy := append([]string{}, referencedBy[name]...)
		sort.Strings(usedBy)
		info := SecretInfo{Name: name, Configured: configuredOK, UsedBy: usedBy}
		if meta, ok := secretMetadata[name]; ok {
			info.Purpose, info.Constraints, info.Rotation = meta.purpose, meta.constraints, meta.rotation
		}
		out = append(out, info)
	}
	return out, nil
}

// referencedSecretNames maps secret name -> the entities (channel/service
// names) whose config references it, regardless of enabled state; this
// feeds ListSecretManagerState's UsedBy. DeleteSecret's own check,
// secretUsage, ignores disabled channels.
func referencedSecretNames(spec stackspec.StackSpec) map[string][]string {
	refs := map[string][]string{}
	for name, cfg := range spec.Channels {
		for _, v := range cfg.Config {
			if secretName, ok := stackspec.ParseSecretReference(v); ok {
				refs[secretName] = append(refs[secretName], name)
			}
		}
	}
	for name, cfg := range spec.Services {
		for _, v := range cfg.Config {
			if secretName, ok := stackspec.ParseSecretReference(v); ok {
				refs[secretName] = append(refs[secretName], name)
			}
		}
	}
	return refs
}

// secretUsage is the set of reasons DeleteSecret must refuse to remove name:
// any enabled channel's config references it, any service's config
// references it (enabled or not), or it is a core requirement (spec.md
// §4.2 invariant 3).
func secretUsage(spec stackspec.StackSpec, name string) []string {
	var usedBy []string
	for entity, cfg := range spec.Channels {
		if !cfg.Enabled {
			continue
		}
		if referencesSecret(cfg.Config, name) {
			usedBy = append(usedBy, entity)
		}
	}
	for entity, cfg := range spec.Services {
		if referencesSecret(cfg.Config, name) {
			usedBy = append(usedBy, entity)
		}
	}
	for _, core := range stackspec.CoreSecretRequirements {
		if core == name {
			usedBy = append(usedBy, "core")
		}
	}
	sort.Strings(usedBy)
	return usedBy
}

func referencesSecret(config map[string]string, name string) bool {
	for _, v := range config {
		if secretName, ok := stackspec.ParseSecretReference(v); ok && secretName == name {
			return true
		}
	}
	return false
}
