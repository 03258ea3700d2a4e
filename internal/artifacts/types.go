package artifacts

// Artifacts is the full set of deployment artifacts Generate produces from
// one (StackSpec, secrets) pair. Every field is the exact byte content to
// write at its owning path.
type Artifacts struct {
	ProxyConfig   []byte
	ComposeDoc    []byte
	SystemEnv     []byte
	GatewayEnv    []byte
	AssistantEnv  []byte
	PostgresEnv   []byte
	QdrantEnv     []byte
	OpenMemoryEnv []byte

	// ChannelEnvs and ServiceEnvs are keyed by the sanitized service name
	// (e.g. "channel-chat", "channel-slack", or a generic service's own
	// sanitized name), matching the compose service and the
	// <state>/<service-name>/.env path.
	ChannelEnvs map[string][]byte
	ServiceEnvs map[string][]byte
}

// CoreServiceNames is the fixed set of always-present compose services,
// independent of any enabled channel or custom service.
var CoreServiceNames = []string{"caddy", "postgres", "qdrant", "openmemory", "openmemory-ui", "assistant", "gateway", "admin"}
