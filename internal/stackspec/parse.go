package stackspec

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var allowedTopLevelKeys = map[string]bool{
	"version":     true,
	"accessScope": true,
	"ingressPort": true,
	"caddy":       true,
	"channels":    true,
	"services":    true,
	"automations": true,
}

// rawChannel is a permissive decode target for one channels[name] entry;
// both built-in and custom channels decode through it before Kind-specific
// validation runs.
type rawChannel struct {
	Enabled         bool              `yaml:"enabled"`
	Exposure        string            `yaml:"exposure"`
	Image           string            `yaml:"image"`
	ContainerPort   int               `yaml:"containerPort"`
	HostPort        int               `yaml:"hostPort"`
	Domains         []string          `yaml:"domains"`
	PathPrefixes    []string          `yaml:"pathPrefixes"`
	RewritePath     string            `yaml:"rewritePath"`
	HealthcheckPath string            `yaml:"healthcheckPath"`
	SharedSecretEnv string            `yaml:"sharedSecretEnv"`
	Volumes         []string          `yaml:"volumes"`
	Config          map[string]string `yaml:"config"`
}

type rawService struct {
	Enabled         bool              `yaml:"enabled"`
	Exposure        string            `yaml:"exposure"`
	Image           string            `yaml:"image"`
	ContainerPort   int               `yaml:"containerPort"`
	HostPort        int               `yaml:"hostPort"`
	HealthcheckPath string            `yaml:"healthcheckPath"`
	Volumes         []string          `yaml:"volumes"`
	Config          map[string]string `yaml:"config"`
}

// Parse strictly validates raw YAML into a StackSpec. Every structural and
// pattern-validation error aborts with a single stable machine-code error
// (spec.md §4.1); there is no partial acceptance.
func Parse(raw []byte) (StackSpec, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return StackSpec{}, wrapError("invalid_stack_spec", err, "yaml")
	}
	if len(root.Content) == 0 {
		spec := CreateDefault()
		return spec, nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return StackSpec{}, newError("invalid_stack_spec", "root")
	}

	spec := StackSpec{
		Channels: map[string]ChannelConfig{},
		Services: map[string]ServiceConfig{},
	}

	for i := 0; i < len(doc.Content); i += 2 {
		keyNode := doc.Content[i]
		valNode := doc.Content[i+1]
		key := keyNode.Value
		if !allowedTopLevelKeys[key] {
			return StackSpec{}, newError("unknown_stack_spec_field_" + key)
		}
		switch key {
		case "version":
			var v int
			if err := valNode.Decode(&v); err != nil {
				return StackSpec{}, wrapError("invalid_stack_spec", err, "version")
			}
			spec.Version = v
		case "accessScope":
			var v string
			if err := valNode.Decode(&v); err != nil {
				return StackSpec{}, wrapError("invalid_stack_spec", err, "accessScope")
			}
			spec.AccessScope = AccessScope(v)
		case "ingressPort":
			var v int
			if err := valNode.Decode(&v); err != nil {
				return StackSpec{}, wrapError("invalid_stack_spec", err, "ingressPort")
			}
			spec.IngressPort = v
		case "caddy":
			var c CaddyConfig
			if err := valNode.Decode(&c); err != nil {
				return StackSpec{}, wrapError("invalid_stack_spec", err, "caddy")
			}
			spec.Caddy = &c
		case "channels":
			if valNode.Kind != yaml.MappingNode {
				return StackSpec{}, newError("invalid_stack_spec", "channels")
			}
			for j := 0; j < len(valNode.Content); j += 2 {
				nameNode := valNode.Content[j]
				chanNode := valNode.Content[j+1]
				name := strings.TrimSpace(nameNode.Value)
				if name == "" {
					return StackSpec{}, newError("invalid_channel_name")
				}
				var rc rawChannel
				if err := chanNode.Decode(&rc); err != nil {
					return StackSpec{}, wrapError("invalid_channel", err, name)
				}
				chanCfg, err := buildChannel(name, rc)
				if err != nil {
					return StackSpec{}, err
				}
				spec.Channels[name] = chanCfg
			}
		case "services":
			if valNode.Kind != yaml.MappingNode {
				return StackSpec{}, newError("invalid_stack_spec", "services")
			}
			for j := 0; j < len(valNode.Content); j += 2 {
				nameNode := valNode.Content[j]
				svcNode := valNode.Content[j+1]
				name := strings.TrimSpace(nameNode.Value)
				if name == "" {
					return StackSpec{}, newError("invalid_service_name")
				}
				var rs rawService
				if err := svcNode.Decode(&rs); err != nil {
					return StackSpec{}, wrapError("invalid_service", err, name)
				}
				svcCfg, err := buildService(name, rs)
				if err != nil {
					return StackSpec{}, err
				}
				spec.Services[name] = svcCfg
			}
		case "automations":
			if valNode.Kind != yaml.SequenceNode {
				return StackSpec{}, newError("invalid_stack_spec", "automations")
			}
			autos := make([]Automation, 0, len(valNode.Content))
			for idx, item := range valNode.Content {
				var a Automation
				if err := item.Decode(&a); err != nil {
					return StackSpec{}, wrapError("invalid_automation", err, strconv.Itoa(idx))
				}
				if err := validateAutomationAt(a, idx); err != nil {
					return StackSpec{}, err
				}
				autos = append(autos, a)
			}
			spec.Automations = autos
		}
	}

	if spec.Version != SupportedVersion {
		return StackSpec{}, newError("invalid_stack_spec", "version")
	}
	if spec.AccessScope == "" {
		spec.AccessScope = ScopeLAN
	}
	if !spec.AccessScope.valid() {
		return StackSpec{}, newError("invalid_stack_spec", "accessScope")
	}
	if spec.IngressPort == 0 {
		spec.IngressPort = DefaultIngressPort
	}
	if spec.IngressPort < 1 || spec.IngressPort > 65535 {
		return StackSpec{}, newError("invalid_stack_spec", "ingressPort")
	}
	if spec.Caddy != nil && spec.Caddy.Email != "" && !validEmail(spec.Caddy.Email) {
		return StackSpec{}, newError("invalid_caddy_email_format")
	}

	ensureBuiltinChannels(&spec)
	return spec, nil
}

func buildChannel(name string, rc rawChannel) (ChannelConfig, error) {
	cfg := ChannelConfig{
		Enabled:  rc.Enabled,
		Exposure: AccessScope(rc.Exposure),
	}
	if !cfg.Exposure.valid() {
		return ChannelConfig{}, newError("invalid_channel_exposure_" + name)
	}

	builtin, isBuiltin := LookupBuiltinChannel(name)
	if isBuiltin {
		cfg.Kind = ChannelKindBuiltin
		cfg.Image = builtin.Image
		if rc.Image != "" {
			if !validImageName(rc.Image) {
				return ChannelConfig{}, newError("invalid_channel_image_" + name)
			}
			cfg.Image = rc.Image
		}
		cfg.ContainerPort = builtin.ContainerPort
		if rc.ContainerPort != 0 {
			cfg.ContainerPort = rc.ContainerPort
		}
		cfg.RewritePath = builtin.RewritePath
		if rc.RewritePath != "" {
			cfg.RewritePath = rc.RewritePath
		}
		cfg.HealthcheckPath = builtin.HealthcheckPath
		if rc.HealthcheckPath != "" {
			cfg.HealthcheckPath = rc.HealthcheckPath
		}
		cfg.SharedSecretEnv = builtin.SharedSecretEnv
		if rc.SharedSecretEnv != "" {
			if !validSecretName(rc.SharedSecretEnv) {
				return ChannelConfig{}, newError("invalid_channel_sharedSecretEnv_" + name)
			}
			cfg.SharedSecretEnv = rc.SharedSecretEnv
		}
	} else {
		cfg.Kind = ChannelKindCustom
		if rc.Image == "" {
			return ChannelConfig{}, newError("custom_channel_requires_image_" + name)
		}
		if !validImageName(rc.Image) {
			return ChannelConfig{}, newError("invalid_channel_image_" + name)
		}
		cfg.Image = rc.Image
		if rc.ContainerPort == 0 {
			return ChannelConfig{}, newError("custom_channel_requires_container_port_" + name)
		}
		cfg.ContainerPort = rc.ContainerPort
		cfg.RewritePath = rc.RewritePath
		cfg.HealthcheckPath = rc.HealthcheckPath
		if rc.SharedSecretEnv != "" {
			if !validSecretName(rc.SharedSecretEnv) {
				return ChannelConfig{}, newError("invalid_channel_sharedSecretEnv_" + name)
			}
			cfg.SharedSecretEnv = rc.SharedSecretEnv
		}
	}

	if cfg.ContainerPort < 1 || cfg.ContainerPort > 65535 {
		return ChannelConfig{}, newError("invalid_channel_containerPort_" + name)
	}
	if rc.HostPort != 0 {
		if rc.HostPort < 1 || rc.HostPort > 65535 {
			return ChannelConfig{}, newError("invalid_channel_hostPort_" + name)
		}
		cfg.HostPort = rc.HostPort
	}
	if cfg.RewritePath != "" && !strings.HasPrefix(cfg.RewritePath, "/") {
		return ChannelConfig{}, newError("invalid_channel_rewritePath_" + name)
	}
	for _, d := range rc.Domains {
		if !validHostname(d) {
			return ChannelConfig{}, newError("invalid_channel_domains_" + name)
		}
	}
	cfg.Domains = rc.Domains
	for _, p := range rc.PathPrefixes {
		if !validPathPrefix(p) {
			return ChannelConfig{}, newError("invalid_channel_pathPrefixes_" + name)
		}
	}
	cfg.PathPrefixes = rc.PathPrefixes
	cfg.Volumes = rc.Volumes

	cfg.Config = map[string]string{}
	for k, v := range rc.Config {
		if isBuiltin {
			if !builtin.allowsConfigKey(k) {
				continue // strict closure: unrecognized built-in config keys are dropped silently.
			}
		} else if k == "" {
			return ChannelConfig{}, newError("invalid_channel_config_key_" + name)
		}
		cfg.Config[k] = StripNewlines(v)
	}
	return cfg, nil
}

func buildService(name string, rs rawService) (ServiceConfig, error) {
	cfg := ServiceConfig{
		Enabled:  rs.Enabled,
		Exposure: AccessScope(rs.Exposure),
	}
	if !cfg.Exposure.valid() {
		return ServiceConfig{}, newError("invalid_service_exposure_" + name)
	}
	if rs.Image == "" {
		return ServiceConfig{}, newError("invalid_service_image_" + name)
	}
	if !validImageName(rs.Image) {
		return ServiceConfig{}, newError("invalid_service_image_format_" + name)
	}
	cfg.Image = rs.Image
	if rs.ContainerPort == 0 {
		return ServiceConfig{}, newError("invalid_service_containerPort_" + name)
	}
	if rs.ContainerPort < 1 || rs.ContainerPort > 65535 {
		return ServiceConfig{}, newError("invalid_service_containerPort_format_" + name)
	}
	cfg.ContainerPort = rs.ContainerPort
	if rs.HostPort != 0 {
		if rs.HostPort < 1 || rs.HostPort > 65535 {
			return ServiceConfig{}, newError("invalid_service_hostPort_" + name)
		}
		cfg.HostPort = rs.HostPort
	}
	cfg.HealthcheckPath = rs.HealthcheckPath
	cfg.Volumes = rs.Volumes
	cfg.Config = map[string]string{}
	for k, v := range rs.Config {
		if k == "" {
			return ServiceConfig{}, newError("invalid_service_config_key_" + name)
		}
		cfg.Config[k] = StripNewlines(v)
	}
	return cfg, nil
}

func validateAutomationAt(a Automation, idx int) error {
	i := strconv.Itoa(idx)
	if !validAutomationID(a.ID) {
		return newError("invalid_automation_id_" + i)
	}
	if strings.TrimSpace(a.Name) == "" {
		return newError("invalid_automation_name_" + i)
	}
	if strings.TrimSpace(a.Script) == "" {
		return newError("invalid_automation_script_" + i)
	}
	if strings.TrimSpace(a.Schedule) == "" {
		return newError("invalid_automation_schedule_" + i)
	}
	return nil
}
