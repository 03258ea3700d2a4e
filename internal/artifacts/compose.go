package artifacts

import (
	"bytes"
	"sort"
	"strconv"

	"github.com/docker/go-connections/nat"
	"gopkg.in/yaml.v3"

	"github.com/openpalm/stackctl/internal/stackspec"
)

// composeKeyOrder fixes rendering order for known docker-compose keys;
// anything absent (service names, a channel's sanitized name, map keys the
// schema doesn't name) falls back to alphabetical. Adapted from
// awsqed-config-formatter/formatter/formatter.go's getKeyOrder, trimmed to
// the subset of keys this generator ever emits.
var composeKeyOrder = map[string]int{
	"volumes":  1000,
	"services": 1010,
	"networks": 1020,

	"image":          1,
	"container_name": 2,
	"environment":    20,
	"env_file":       21,
	"ports":          30,
	"depends_on":     60,
	"restart":        70,
	"healthcheck":    90,

	"test":         1,
	"interval":     2,
	"timeout":      3,
	"retries":      4,
	"start_period": 5,

	"condition": 1,
}

func sortComposeNode(node *yaml.Node) {
	if node == nil {
		return
	}
	if node.Kind == yaml.MappingNode {
		sortComposeMapping(node)
	}
	for _, child := range node.Content {
		sortComposeNode(child)
	}
}

func sortComposeMapping(node *yaml.Node) {
	if node.Kind != yaml.MappingNode || len(node.Content) == 0 {
		return
	}
	type pair struct {
		key, value *yaml.Node
		order      int
	}
	pairs := make([]pair, 0, len(node.Content)/2)
	for i := 0; i < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		order, ok := composeKeyOrder[keyNode.Value]
		if !ok {
			order = 1000000
		}
		pairs = append(pairs, pair{key: keyNode, value: valNode, order: order})
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].order != pairs[j].order {
			return pairs[i].order < pairs[j].order
		}
		return pairs[i].key.Value < pairs[j].key.Value
	})
	content := make([]*yaml.Node, 0, len(node.Content))
	for _, p := range pairs {
		content = append(content, p.key, p.value)
	}
	node.Content = content
}

type composeHealthcheck struct {
	Test        []string `yaml:"test"`
	Interval    string   `yaml:"interval"`
	Timeout     string   `yaml:"timeout"`
	Retries     int      `yaml:"retries"`
	StartPeriod string   `yaml:"start_period,omitempty"`
}

type composeDependency struct {
	Condition string `yaml:"condition"`
}

type composeService struct {
	Image         string                        `yaml:"image"`
	ContainerName string                        `yaml:"container_name,omitempty"`
	Environment   map[string]string             `yaml:"environment,omitempty"`
	EnvFile       []string                      `yaml:"env_file,omitempty"`
	Ports         []string                      `yaml:"ports,omitempty"`
	Volumes       []string                      `yaml:"volumes,omitempty"`
	Networks      []string                      `yaml:"networks,omitempty"`
	DependsOn     map[string]composeDependency  `yaml:"depends_on,omitempty"`
	Restart       string                        `yaml:"restart,omitempty"`
	Healthcheck   *composeHealthcheck           `yaml:"healthcheck,omitempty"`
}

type composeNetwork struct{}

type composeVolume struct{}

type composeDoc struct {
	Services map[string]composeService `yaml:"services"`
	Networks map[string]composeNetwork `yaml:"networks"`
	Volumes  map[string]composeVolume  `yaml:"volumes"`
}

// portBinding validates and renders one published port entry using
// docker/go-connections/nat, the teacher's own port-spec package.
func portBinding(hostIP string, hostPort, containerPort int) (string, error) {
	if _, err := nat.NewPort("tcp", strconv.Itoa(containerPort)); err != nil {
		return "", wrapError("invalid_compose_port", err)
	}
	if hostIP != "" {
		return hostIP + ":" + strconv.Itoa(hostPort) + ":" + strconv.Itoa(containerPort), nil
	}
	return strconv.Itoa(hostPort) + ":" + strconv.Itoa(containerPort), nil
}

func healthcheckFor(path string, port int) *composeHealthcheck {
	if path == "" {
		path = "/health"
	}
	url := "http://localhost:" + strconv.Itoa(port) + path
	return &composeHealthcheck{
		Test:        []string{"CMD", "wget", "-q", "-O", "-", url},
		Interval:    "10s",
		Timeout:     "5s",
		Retries:     5,
		StartPeriod: "5s",
	}
}

func coreServices() map[string]composeService {
	return map[string]composeService{
		"caddy": {
			Image:       "caddy:2",
			Ports:       []string{"80:80", "443:443"},
			Volumes:     []string{"${STATE}/caddy.json:/etc/caddy/caddy.json:ro"},
			Networks:    []string{"assistant_net", "channel_net"},
			Restart:     "unless-stopped",
			Healthcheck: healthcheckFor("/health", 2019),
		},
		"postgres": {
			Image:       "postgres:16",
			EnvFile:     []string{"${STATE}/postgres/.env"},
			Volumes:     []string{"postgres_data:/var/lib/postgresql/data"},
			Networks:    []string{"assistant_net"},
			Restart:     "unless-stopped",
			Healthcheck: &composeHealthcheck{Test: []string{"CMD-SHELL", "pg_isready -U openpalm"}, Interval: "10s", Timeout: "5s", Retries: 5},
		},
		"qdrant": {
			Image:       "qdrant/qdrant:latest",
			EnvFile:     []string{"${STATE}/qdrant/.env"},
			Volumes:     []string{"qdrant_data:/qdrant/storage"},
			Networks:    []string{"assistant_net"},
			Restart:     "unless-stopped",
			Healthcheck: healthcheckFor("/healthz", 6333),
		},
		"openmemory": {
			Image:     "openpalm/openmemory:latest",
			EnvFile:   []string{"${STATE}/openmemory/.env"},
			Networks:  []string{"assistant_net"},
			Restart:   "unless-stopped",
			DependsOn: map[string]composeDependency{"qdrant": {Condition: "service_healthy"}, "postgres": {Condition: "service_healthy"}},
			Healthcheck: healthcheckFor("/health", 8765),
		},
		"openmemory-ui": {
			Image:     "openpalm/openmemory-ui:latest",
			Networks:  []string{"assistant_net"},
			Restart:   "unless-stopped",
			DependsOn: map[string]composeDependency{"openmemory": {Condition: "service_healthy"}},
		},
		"assistant": {
			Image:       "openpalm/assistant:latest",
			EnvFile:     []string{"${STATE}/assistant/.env"},
			Networks:    []string{"assistant_net"},
			Restart:     "unless-stopped",
			DependsOn:   map[string]composeDependency{"openmemory": {Condition: "service_healthy"}},
			Healthcheck: healthcheckFor("/health", 4096),
		},
		"gateway": {
			Image:       "openpalm/gateway:latest",
			EnvFile:     []string{"${STATE}/gateway/.env"},
			Networks:    []string{"assistant_net", "channel_net"},
			Restart:     "unless-stopped",
			DependsOn:   map[string]composeDependency{"assistant": {Condition: "service_healthy"}},
			Healthcheck: healthcheckFor("/health", 8100),
		},
		"admin": {
			Image:       "openpalm/admin:latest",
			EnvFile:     []string{"${STATE}/system.env"},
			Networks:    []string{"assistant_net"},
			Restart:     "unless-stopped",
			DependsOn:   map[string]composeDependency{"gateway": {Condition: "service_healthy"}},
			Healthcheck: healthcheckFor("/health", 8100),
		},
	}
}

// buildChannelOrServiceEntry builds one channel/custom-service compose
// entry per spec.md §4.3 "Compose-doc synthesis".
func buildChannelOrServiceEntry(serviceName, image string, exposure stackspec.AccessScope, containerPort, hostPort int, healthcheckPath string, volumes []string) (composeService, error) {
	if hostPort == 0 {
		hostPort = containerPort
	}
	hostIP := ""
	if exposure == stackspec.ScopeHost {
		hostIP = "127.0.0.1"
	}
	binding, err := portBinding(hostIP, hostPort, containerPort)
	if err != nil {
		return composeService{}, err
	}
	return composeService{
		Image:       image,
		EnvFile:     []string{"${STATE}/" + serviceName + "/.env"},
		Ports:       []string{binding},
		Volumes:     volumes,
		Networks:    []string{"channel_net"},
		Restart:     "unless-stopped",
		DependsOn:   map[string]composeDependency{"gateway": {Condition: "service_healthy"}},
		Healthcheck: healthcheckFor(healthcheckPath, containerPort),
	}, nil
}

// buildComposeDoc synthesizes the full compose document. channelServiceNames
// and serviceServiceNames map spec entity name -> sanitized compose service
// name (spec.md invariant 4).
func buildComposeDoc(spec stackspec.StackSpec, channelServiceNames, serviceServiceNames map[string]string) ([]byte, error) {
	services := coreServices()

	names := sortedKeys(spec.Channels)
	for _, name := range names {
		cfg := spec.Channels[name]
		if !cfg.Enabled {
			continue
		}
		svcName := channelServiceNames[name]
		entry, err := buildChannelOrServiceEntry(svcName, cfg.Image, cfg.Exposure, cfg.ContainerPort, cfg.HostPort, cfg.HealthcheckPath, cfg.Volumes)
		if err != nil {
			return nil, err
		}
		services[svcName] = entry
	}

	svcNames := sortedKeys(spec.Services)
	for _, name := range svcNames {
		cfg := spec.Services[name]
		if !cfg.Enabled {
			continue
		}
		svcName := serviceServiceNames[name]
		entry, err := buildChannelOrServiceEntry(svcName, cfg.Image, cfg.Exposure, cfg.ContainerPort, cfg.HostPort, cfg.HealthcheckPath, cfg.Volumes)
		if err != nil {
			return nil, err
		}
		services[svcName] = entry
	}

	doc := composeDoc{
		Services: services,
		Networks: map[string]composeNetwork{"channel_net": {}, "assistant_net": {}},
		Volumes:  map[string]composeVolume{"postgres_data": {}, "qdrant_data": {}},
	}

	raw, err := yaml.Marshal(doc)
	if err != nil {
		return nil, wrapError("compose_encode_failed", err)
	}
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, wrapError("compose_encode_failed", err)
	}
	sortComposeNode(&root)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return nil, wrapError("compose_encode_failed", err)
	}
	enc.Close()
	return buf.Bytes(), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
