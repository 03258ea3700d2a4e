package artifacts

import (
	"sort"

	"github.com/openpalm/stackctl/internal/stackspec"
)

// resolveConfig resolves every secret reference in config against secrets.
// entity is the channel/service name, used only to shape the failure code
// unresolved_secret_reference_<entity>_<field>_<name> (spec.md §4.3, §7).
func resolveConfig(entity string, config map[string]string, secrets map[string]string) (map[string]string, error) {
	resolved := make(map[string]string, len(config))
	keys := make([]string, 0, len(config))
	for k := range config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, field := range keys {
		value := config[field]
		name, isRef := stackspec.ParseSecretReference(value)
		if !isRef {
			resolved[field] = value
			continue
		}
		secretValue, ok := secrets[name]
		if !ok || secretValue == "" {
			return nil, newError("unresolved_secret_reference_" + entity + "_" + field + "_" + name)
		}
		resolved[field] = secretValue
	}
	return resolved, nil
}
