package artifacts

import (
	"github.com/openpalm/stackctl/internal/stackspec"
)

// channelServiceName is the sanitized compose service name for a channel:
// "channel-" followed by the name with [^a-z0-9_-] replaced by "-".
func channelServiceName(name string) string {
	return "channel-" + stackspec.SanitizeServiceName(name)
}

func serviceServiceName(name string) string {
	return stackspec.SanitizeServiceName(name)
}

// Generate renders spec and secrets into the full artifact set. It is a
// total pure function: given the same inputs it always returns the same
// bytes, and it touches no filesystem state (spec.md §4.3, §9).
func Generate(spec stackspec.StackSpec, secrets map[string]string) (Artifacts, error) {
	if err := stackspec.RequireInvariants(spec); err != nil {
		return Artifacts{}, err
	}

	channelServiceNames := map[string]string{}
	for name := range spec.Channels {
		channelServiceNames[name] = channelServiceName(name)
	}
	serviceServiceNames := map[string]string{}
	for name := range spec.Services {
		serviceServiceNames[name] = serviceServiceName(name)
	}

	channelEnvs := map[string][]byte{}
	var enabledChannelServiceNames []string
	for _, b := range stackspec.BuiltinChannels() {
		cfg, ok := spec.Channels[b.Name]
		if !ok || !cfg.Enabled {
			continue
		}
		resolved, err := resolveConfig(b.Name, cfg.Config, secrets)
		if err != nil {
			return Artifacts{}, err
		}
		svcName := channelServiceNames[b.Name]
		channelEnvs[svcName] = channelOrServiceEnv(cfg.ContainerPort, resolved)
		enabledChannelServiceNames = append(enabledChannelServiceNames, svcName)
	}
	for _, name := range sortedKeys(spec.Channels) {
		cfg := spec.Channels[name]
		if _, isBuiltin := stackspec.LookupBuiltinChannel(name); isBuiltin {
			continue
		}
		if !cfg.Enabled {
			continue
		}
		resolved, err := resolveConfig(name, cfg.Config, secrets)
		if err != nil {
			return Artifacts{}, err
		}
		svcName := channelServiceNames[name]
		channelEnvs[svcName] = channelOrServiceEnv(cfg.ContainerPort, resolved)
		enabledChannelServiceNames = append(enabledChannelServiceNames, svcName)
	}

	serviceEnvs := map[string][]byte{}
	for name, cfg := range spec.Services {
		if !cfg.Enabled {
			continue
		}
		resolved, err := resolveConfig(name, cfg.Config, secrets)
		if err != nil {
			return Artifacts{}, err
		}
		svcName := serviceServiceNames[name]
		serviceEnvs[svcName] = channelOrServiceEnv(cfg.ContainerPort, resolved)
	}

	proxyConfig, err := buildProxyConfig(spec, channelServiceNames)
	if err != nil {
		return Artifacts{}, err
	}
	composeDocBytes, err := buildComposeDoc(spec, channelServiceNames, serviceServiceNames)
	if err != nil {
		return Artifacts{}, err
	}

	return Artifacts{
		ProxyConfig:   proxyConfig,
		ComposeDoc:    composeDocBytes,
		SystemEnv:     systemEnv(string(spec.AccessScope), enabledChannelServiceNames),
		GatewayEnv:    gatewayEnv(secrets),
		AssistantEnv:  assistantEnv(secrets),
		PostgresEnv:   postgresEnv(secrets),
		QdrantEnv:     qdrantEnv(secrets),
		OpenMemoryEnv: openMemoryEnv(secrets),
		ChannelEnvs:   channelEnvs,
		ServiceEnvs:   serviceEnvs,
	}, nil
}
