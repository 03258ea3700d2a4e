package stackmanager

import "github.com/openpalm/stackctl/internal/stackspec"

// SetAccessScope rewrites the stack-wide access scope and re-renders
// (spec.md §4.4).
func (m *Manager) SetAccessScope(scope stackspec.AccessScope) (stackspec.StackSpec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spec, err := stackspec.EnsureSpec(m.paths.SpecPath)
	if err != nil {
		return stackspec.StackSpec{}, err
	}
	spec.AccessScope = scope
	if err := stackspec.WriteSpec(m.paths.SpecPath, spec); err != nil {
		return stackspec.StackSpec{}, err
	}
	if _, err := m.renderLocked(spec, "setAccessScope"); err != nil {
		return spec, err
	}
	return spec, nil
}

// SetChannelAccess rewrites one channel's exposure and re-renders.
func (m *Manager) SetChannelAccess(name string, exposure stackspec.AccessScope) (stackspec.StackSpec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spec, err := stackspec.EnsureSpec(m.paths.SpecPath)
	if err != nil {
		return stackspec.StackSpec{}, err
	}
	cfg, ok := spec.Channels[name]
	if !ok {
		return stackspec.StackSpec{}, newError("unknown_channel_" + name)
	}
	cfg.Exposure = exposure
	spec.Channels[name] = cfg
	if err := stackspec.WriteSpec(m.paths.SpecPath, spec); err != nil {
		return stackspec.StackSpec{}, err
	}
	if _, err := m.renderLocked(spec, "setChannelAccess"); err != nil {
		return spec, err
	}
	return spec, nil
}

// SetChannelConfig replaces one channel's config map. For a built-in
// channel, unrecognized keys in values are dropped and recognized keys
// missing from values are cleared (the registry's ConfigKeys set is
// closed); for a custom channel, values replaces config entirely
// (spec.md §4.4).
func (m *Manager) SetChannelConfig(name string, values map[string]string) (stackspec.StackSpec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spec, err := stackspec.EnsureSpec(m.paths.SpecPath)
	if err != nil {
		return stackspec.StackSpec{}, err
	}
	cfg, ok := spec.Channels[name]
	if !ok {
		return stackspec.StackSpec{}, newError("unknown_channel_" + name)
	}

	if builtin, isBuiltin := stackspec.LookupBuiltinChannel(name); isBuiltin {
		allowed := make(map[string]bool, len(builtin.ConfigKeys))
		for _, k := range builtin.ConfigKeys {
			allowed[k] = true
		}
		cfg.Config = map[string]string{}
		for k, v := range values {
			if allowed[k] {
				cfg.Config[k] = stackspec.StripNewlines(v)
			}
		}
	} else {
		cfg.Config = map[string]string{}
		for k, v := range values {
			cfg.Config[k] = stackspec.StripNewlines(v)
		}
	}

	spec.Channels[name] = cfg
	if err := stackspec.WriteSpec(m.paths.SpecPath, spec); err != nil {
		return stackspec.StackSpec{}, err
	}
	if _, err := m.renderLocked(spec, "setChannelConfig"); err != nil {
		return spec, err
	}
	return spec, nil
}
