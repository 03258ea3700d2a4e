package stackspec

// CreateDefault returns a spec with every built-in channel enabled at its
// registry default port/rewrite/secret-env, LAN access scope, no services,
// and no automations. spec.md §4.1.
func CreateDefault() StackSpec {
	channels := make(map[string]ChannelConfig, len(builtinChannelRegistry))
	for _, b := range builtinChannelRegistry {
		channels[b.Name] = ChannelConfig{
			Kind:            ChannelKindBuiltin,
			Enabled:         true,
			Exposure:        ScopeLAN,
			Image:           b.Image,
			ContainerPort:   b.ContainerPort,
			HostPort:        b.HostPort,
			RewritePath:     b.RewritePath,
			HealthcheckPath: b.HealthcheckPath,
			SharedSecretEnv: b.SharedSecretEnv,
		}
	}
	return StackSpec{
		Version:     SupportedVersion,
		AccessScope: ScopeLAN,
		IngressPort: DefaultIngressPort,
		Channels:    channels,
		Services:    map[string]ServiceConfig{},
		Automations: []Automation{},
	}
}

// ensureBuiltinChannels fills in any built-in channel missing from
// spec.Channels with its registry default, satisfying invariant 1 of
// spec.md §3 without failing the parse.
func ensureBuiltinChannels(spec *StackSpec) {
	if spec.Channels == nil {
		spec.Channels = map[string]ChannelConfig{}
	}
	for _, b := range builtinChannelRegistry {
		if _, ok := spec.Channels[b.Name]; ok {
			continue
		}
		spec.Channels[b.Name] = ChannelConfig{
			Kind:            ChannelKindBuiltin,
			Enabled:         true,
			Exposure:        ScopeLAN,
			Image:           b.Image,
			ContainerPort:   b.ContainerPort,
			HostPort:        b.HostPort,
			RewritePath:     b.RewritePath,
			HealthcheckPath: b.HealthcheckPath,
			SharedSecretEnv: b.SharedSecretEnv,
		}
	}
}

// RequireInvariants defensively re-checks invariant 1 of spec.md §3 (every
// built-in channel is present) on a spec that may not have come from Parse
// (e.g. constructed directly in tests, or by a caller bypassing the
// parser); no other invariant is checked here. Generate calls this first.
func RequireInvariants(spec StackSpec) error {
	for _, b := range builtinChannelRegistry {
		if _, ok := spec.Channels[b.Name]; !ok {
			return newError("missing_built_in_channel_" + b.Name)
		}
	}
	return nil
}
