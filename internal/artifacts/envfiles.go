package artifacts

import (
	"bytes"
	"sort"
	"strconv"
	"strings"
)

// renderEnv renders entries as sorted KEY=VALUE lines with a trailing
// newline, matching stringify's determinism requirement for every
// generated file (spec.md §4.3 "Determinism").
func renderEnv(entries map[string]string) []byte {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var buf bytes.Buffer
	for _, k := range keys {
		buf.WriteString(k)
		buf.WriteByte('=')
		buf.WriteString(entries[k])
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// pickByPrefix collects every secret whose name starts with any of
// prefixes, plus any literal name explicitly listed.
func pickByPrefix(secrets map[string]string, prefixes []string, literals []string) map[string]string {
	out := map[string]string{}
	for name, value := range secrets {
		for _, prefix := range prefixes {
			if strings.HasPrefix(name, prefix) {
				out[name] = value
				break
			}
		}
	}
	for _, name := range literals {
		if value, ok := secrets[name]; ok {
			out[name] = value
		}
	}
	return out
}

// gatewayEnv picks the gateway's secrets: anything namespaced under
// OPENPALM_GATEWAY_/GATEWAY_, plus the gateway's own signing key.
func gatewayEnv(secrets map[string]string) []byte {
	return renderEnv(pickByPrefix(secrets, []string{"OPENPALM_GATEWAY_", "GATEWAY_"}, []string{"OPENPALM_GATEWAY_SIGNING_KEY"}))
}

// assistantEnv picks the assistant's model-provider credentials.
func assistantEnv(secrets map[string]string) []byte {
	return renderEnv(pickByPrefix(secrets, []string{"ANTHROPIC_", "OPENPALM_SMALL_MODEL_", "OPENPALM_ASSISTANT_"}, nil))
}

// postgresEnv, qdrantEnv, openMemoryEnv are picked from a fixed key list
// per spec.md §4.3; unset entries are simply omitted rather than defaulted,
// since the core database images apply their own defaults.
var postgresEnvKeys = []string{"POSTGRES_PASSWORD", "POSTGRES_USER", "POSTGRES_DB"}
var qdrantEnvKeys = []string{"QDRANT_API_KEY"}
var openMemoryEnvKeys = []string{"OPENMEMORY_API_KEY", "OPENAI_API_KEY"}

func postgresEnv(secrets map[string]string) []byte {
	return renderEnv(pickFixed(secrets, postgresEnvKeys))
}

func qdrantEnv(secrets map[string]string) []byte {
	return renderEnv(pickFixed(secrets, qdrantEnvKeys))
}

func openMemoryEnv(secrets map[string]string) []byte {
	return renderEnv(pickFixed(secrets, openMemoryEnvKeys))
}

func pickFixed(secrets map[string]string, keys []string) map[string]string {
	out := map[string]string{}
	for _, k := range keys {
		if v, ok := secrets[k]; ok {
			out[k] = v
		}
	}
	return out
}

// systemEnv carries the stack-wide access scope and the registry-ordered
// list of enabled channel service names (spec.md §8 scenario 1).
func systemEnv(accessScope string, enabledChannelServiceNames []string) []byte {
	var buf bytes.Buffer
	buf.WriteString("OPENPALM_ACCESS_SCOPE=")
	buf.WriteString(accessScope)
	buf.WriteByte('\n')
	buf.WriteString("OPENPALM_ENABLED_CHANNELS=")
	buf.WriteString(strings.Join(enabledChannelServiceNames, ","))
	buf.WriteByte('\n')
	return buf.Bytes()
}

// channelOrServiceEnv renders the resolved config plus the fixed runtime
// vars every channel/service container receives.
func channelOrServiceEnv(containerPort int, resolvedConfig map[string]string) []byte {
	entries := make(map[string]string, len(resolvedConfig)+2)
	for k, v := range resolvedConfig {
		entries[k] = v
	}
	entries["PORT"] = strconv.Itoa(containerPort)
	entries["GATEWAY_URL"] = "http://gateway:8100"
	return renderEnv(entries)
}
