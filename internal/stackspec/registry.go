package stackspec

// BuiltinChannel is one entry in the fixed built-in channel registry:
// spec.md §3's "recognized by name" carrier of containerPort, rewritePath,
// sharedSecretEnv, and the closed set of config keys it accepts.
type BuiltinChannel struct {
	Name            string
	Image           string
	ContainerPort   int
	HostPort        int
	RewritePath     string
	HealthcheckPath string
	SharedSecretEnv string
	ConfigKeys      []string
}

// builtinChannelRegistry is ordered (registry order) because spec.md §8's
// end-to-end scenario 1 asserts OPENPALM_ENABLED_CHANNELS is comma-joined in
// registry order, not alphabetical.
var builtinChannelRegistry = []BuiltinChannel{
	{
		Name:            "chat",
		Image:           "openpalm/channel-chat:latest",
		ContainerPort:   8181,
		HostPort:        8181,
		RewritePath:     "/",
		HealthcheckPath: "/health",
		SharedSecretEnv: "CHAT_SHARED_SECRET",
		ConfigKeys:      []string{"CHAT_INBOUND_TOKEN", "CHAT_WEBHOOK_PATH"},
	},
	{
		Name:            "discord",
		Image:           "openpalm/channel-discord:latest",
		ContainerPort:   8182,
		HostPort:        8182,
		RewritePath:     "/",
		HealthcheckPath: "/health",
		SharedSecretEnv: "DISCORD_SHARED_SECRET",
		ConfigKeys:      []string{"DISCORD_BOT_TOKEN", "DISCORD_APPLICATION_ID", "DISCORD_PUBLIC_KEY"},
	},
	{
		Name:            "voice",
		Image:           "openpalm/channel-voice:latest",
		ContainerPort:   8183,
		HostPort:        8183,
		RewritePath:     "/",
		HealthcheckPath: "/health",
		SharedSecretEnv: "VOICE_SHARED_SECRET",
		ConfigKeys:      []string{"VOICE_SIP_USER", "VOICE_SIP_PASSWORD"},
	},
	{
		Name:            "telegram",
		Image:           "openpalm/channel-telegram:latest",
		ContainerPort:   8184,
		HostPort:        8184,
		RewritePath:     "/",
		HealthcheckPath: "/health",
		SharedSecretEnv: "TELEGRAM_SHARED_SECRET",
		ConfigKeys:      []string{"TELEGRAM_BOT_TOKEN", "TELEGRAM_WEBHOOK_SECRET"},
	},
}

// BuiltinChannels returns the fixed registry in declaration order.
func BuiltinChannels() []BuiltinChannel {
	out := make([]BuiltinChannel, len(builtinChannelRegistry))
	copy(out, builtinChannelRegistry)
	return out
}

// LookupBuiltinChannel returns the registry entry for name, if any.
func LookupBuiltinChannel(name string) (BuiltinChannel, bool) {
	for _, b := range builtinChannelRegistry {
		if b.Name == name {
			return b, true
		}
	}
	return BuiltinChannel{}, false
}

func (b BuiltinChannel) allowsConfigKey(key string) bool {
	for _, k := range b.ConfigKeys {
		if k == key {
			return true
		}
	}
	return false
}

// CoreSecretRequirements are names that can never be deleted from the
// secret store even when unreferenced by the spec (spec.md §4.2 invariant
// 3).
var CoreSecretRequirements = []string{
	"ANTHROPIC_API_KEY",
	"OPENPALM_SMALL_MODEL_API_KEY",
	"OPENPALM_GATEWAY_SIGNING_KEY",
	"POSTGRES_PASSWORD",
}

func isCoreSecretRequirement(name string) bool {
	for _, n := range CoreSecretRequirements {
		if n == name {
			return true
		}
	}
	return false
}
