// Package stackspec is the stack-spec data model and strict parser: the
// single human-authored intent document this control plane renders into
// deployment artifacts. See spec.md §3-4.1.
package stackspec

// SupportedVersion is the one stack-spec schema version this parser accepts.
const SupportedVersion = 1

// AccessScope is the stack-wide (or per-channel exposure) trust boundary.
type AccessScope string

const (
	ScopeHost   AccessScope = "host"
	ScopeLAN    AccessScope = "lan"
	ScopePublic AccessScope = "public"
)

func (s AccessScope) valid() bool {
	switch s {
	case ScopeHost, ScopeLAN, ScopePublic:
		return true
	}
	return false
}

// ChannelKind discriminates a built-in channel (known to the registry) from
// a custom one (operator-supplied image/port). This is the tagged-variant
// shape spec.md §9 asks for instead of a class hierarchy.
type ChannelKind int

const (
	ChannelKindBuiltin ChannelKind = iota
	ChannelKindCustom
)

// CaddyConfig is the optional TLS-automation configuration block.
type CaddyConfig struct {
	Email string `yaml:"email,omitempty"`
}

// ChannelConfig is one inbound channel (a messaging surface proxied to a
// per-channel container). See spec.md §3.
type ChannelConfig struct {
	Kind             ChannelKind       `yaml:"-"`
	Enabled          bool              `yaml:"enabled"`
	Exposure         AccessScope       `yaml:"exposure"`
	Image            string            `yaml:"image,omitempty"`
	ContainerPort    int               `yaml:"containerPort,omitempty"`
	HostPort         int               `yaml:"hostPort,omitempty"`
	Domains          []string          `yaml:"domains,omitempty"`
	PathPrefixes     []string          `yaml:"pathPrefixes,omitempty"`
	RewritePath      string            `yaml:"rewritePath,omitempty"`
	HealthcheckPath  string            `yaml:"healthcheckPath,omitempty"`
	SharedSecretEnv  string            `yaml:"sharedSecretEnv,omitempty"`
	Volumes          []string          `yaml:"volumes,omitempty"`
	Config           map[string]string `yaml:"config,omitempty"`
}

// ServiceConfig is a generic operator-defined service: the same shape as a
// custom channel, minus channel-specific routing fields.
type ServiceConfig struct {
	Enabled         bool              `yaml:"enabled"`
	Exposure        AccessScope       `yaml:"exposure"`
	Image           string            `yaml:"image"`
	ContainerPort   int               `yaml:"containerPort"`
	HostPort        int               `yaml:"hostPort,omitempty"`
	HealthcheckPath string            `yaml:"healthcheckPath,omitempty"`
	Volumes         []string          `yaml:"volumes,omitempty"`
	Config          map[string]string `yaml:"config,omitempty"`
}

// Automation is one scheduled shell-script job. See spec.md §3, §4.7.
type Automation struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Schedule    string `yaml:"schedule"`
	Script      string `yaml:"script"`
	Enabled     bool   `yaml:"enabled"`
	Description string `yaml:"description,omitempty"`
	Core        bool   `yaml:"core,omitempty"`
}

// StackSpec is the single source of truth for operator intent. See spec.md
// §3.
type StackSpec struct {
	Version      int                      `yaml:"version"`
	AccessScope  AccessScope              `yaml:"accessScope"`
	IngressPort  int                      `yaml:"ingressPort,omitempty"`
	Caddy        *CaddyConfig             `yaml:"caddy,omitempty"`
	Channels     map[string]ChannelConfig `yaml:"channels,omitempty"`
	Services     map[string]ServiceConfig `yaml:"services,omitempty"`
	Automations  []Automation             `yaml:"automations,omitempty"`
}

// DefaultIngressPort is used when ingressPort is unset.
const DefaultIngressPort = 80
