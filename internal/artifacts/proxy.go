package artifacts

import (
	"encoding/json"
	"net"
	"sort"
	"strconv"

	"github.com/openpalm/stackctl/internal/stackspec"
)

// ipRangesFor returns the CIDR ranges a route's "not-in-ranges" guard
// permits for the given access scope (spec.md §4.3 "Proxy-config
// synthesis"): host scope is loopback-only; lan/public add RFC1918 IPv4
// and ULA IPv6.
func ipRangesFor(scope stackspec.AccessScope) []string {
	loopback := []string{"127.0.0.0/8", "::1/128"}
	switch scope {
	case stackspec.ScopeHost:
		return loopback
	default:
		return append(loopback,
			"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "fc00::/7")
	}
}

func init() {
	// Fail fast (in tests) if any hand-written CIDR above is malformed.
	for _, scope := range []stackspec.AccessScope{stackspec.ScopeHost, stackspec.ScopeLAN, stackspec.ScopePublic} {
		for _, r := range ipRangesFor(scope) {
			if _, _, err := net.ParseCIDR(r); err != nil {
				panic("artifacts: invalid CIDR literal " + r)
			}
		}
	}
}

// guardRoute builds the {match: not-in-ranges, handle: static 403,
// terminal: true} subroute prepended ahead of any guarded route.
func guardRoute(ranges []string) map[string]any {
	return map[string]any{
		"match": []map[string]any{{"not": []map[string]any{{"remote_ip": map[string]any{"ranges": ranges}}}}},
		"handle": []map[string]any{{
			"handler":     "static_response",
			"status_code": 403,
		}},
		"terminal": true,
	}
}

func reverseProxyHandle(upstream string) map[string]any {
	return map[string]any{
		"handler":   "reverse_proxy",
		"upstreams": []map[string]any{{"dial": upstream}},
	}
}

func rewriteHandle(uri string) map[string]any {
	return map[string]any{"handler": "rewrite", "uri": uri}
}

func stripPrefixHandle(prefix string) map[string]any {
	return map[string]any{"handler": "rewrite", "strip_path_prefix": prefix}
}

func pathMatch(patterns ...string) []map[string]any {
	return []map[string]any{{"path": patterns}}
}

func hostMatch(hosts ...string) []map[string]any {
	return []map[string]any{{"host": hosts}}
}

// adminRoutes builds the fixed main-server routes: the admin/service path
// routes and the localhost host route, which precede every channel route,
// and a final catch-all, which buildProxyConfig keeps after them.
func adminRoutes() []map[string]any {
	return []map[string]any{
		{
			"match":    pathMatch("/api/*"),
			"handle":   []map[string]any{stripPrefixHandle("/api"), reverseProxyHandle("admin:8100")},
			"terminal": true,
		},
		{
			"match":    pathMatch("/services/opencode/*"),
			"handle":   []map[string]any{stripPrefixHandle("/services/opencode"), reverseProxyHandle("assistant:4096")},
			"terminal": true,
		},
		{
			"match":    pathMatch("/services/openmemory/*"),
			"handle":   []map[string]any{stripPrefixHandle("/services/openmemory"), reverseProxyHandle("openmemory-ui:3000")},
			"terminal": true,
		},
		{
			"match":    hostMatch("localhost"),
			"handle":   []map[string]any{reverseProxyHandle("assistant:4096")},
			"terminal": true,
		},
		{
			"handle":   []map[string]any{reverseProxyHandle("assistant:4096")},
			"terminal": true,
		},
	}
}

// guardRangesFor maps a channel's exposure to the IP-range guard it needs,
// per spec.md's exposure-to-guard-mapping rule: public gets none, lan gets
// the scope's ranges, host always gets loopback-only regardless of scope.
func guardRangesFor(scope stackspec.AccessScope, exposure stackspec.AccessScope) []string {
	switch exposure {
	case stackspec.ScopePublic:
		return nil
	case stackspec.ScopeHost:
		return ipRangesFor(stackspec.ScopeHost)
	default:
		return ipRangesFor(scope)
	}
}

// channelRoute builds the route for one enabled channel, either in the TLS
// server (keyed by its domain list) or as a path-based route in the main
// server.
func channelRoute(scope stackspec.AccessScope, name string, serviceName string, cfg stackspec.ChannelConfig) (mainRoute, tlsRoute map[string]any) {
	guard := guardRangesFor(scope, cfg.Exposure)
	upstream := serviceName + ":" + itoaPort(cfg.ContainerPort)

	if len(cfg.Domains) > 0 {
		prefixes := cfg.PathPrefixes
		if len(prefixes) == 0 {
			prefixes = []string{"/"}
		}
		var handle []map[string]any
		if len(guard) > 0 {
			handle = append(handle, guardRoute(guard))
		}
		for _, prefix := range prefixes {
			handle = append(handle, stripPrefixHandle(prefix))
		}
		handle = append(handle, reverseProxyHandle(upstream))
		tlsRoute = map[string]any{
			"match":    hostMatch(cfg.Domains...),
			"handle":   handle,
			"terminal": true,
		}
		return nil, tlsRoute
	}

	var handle []map[string]any
	if len(guard) > 0 {
		handle = append(handle, guardRoute(guard))
	}
	if cfg.Kind == stackspec.ChannelKindBuiltin && cfg.RewritePath != "" {
		handle = append(handle, rewriteHandle(cfg.RewritePath))
	} else {
		handle = append(handle, stripPrefixHandle("/channels/"+name))
	}
	handle = append(handle, reverseProxyHandle(upstream))
	mainRoute = map[string]any{
		"match":    pathMatch("/channels/" + name + "*"),
		"handle":   handle,
		"terminal": true,
	}
	return mainRoute, nil
}

func itoaPort(n int) string {
	return strconv.Itoa(n)
}

// buildProxyConfig synthesizes the full Caddy JSON document (spec.md §4.3,
// §6). channels must be iterated in stable (sorted) name order so the
// output is deterministic.
func buildProxyConfig(spec stackspec.StackSpec, channelServiceNames map[string]string) ([]byte, error) {
	names := make([]string, 0, len(spec.Channels))
	for name := range spec.Channels {
		names = append(names, name)
	}
	sort.Strings(names)

	mainRoutes := adminRoutes()
	var tlsRoutes []map[string]any
	hasTLS := false

	for _, name := range names {
		cfg := spec.Channels[name]
		if !cfg.Enabled {
			continue
		}
		serviceName := channelServiceNames[name]
		mr, tr := channelRoute(spec.AccessScope, name, serviceName, cfg)
		if tr != nil {
			tlsRoutes = append(tlsRoutes, tr)
			hasTLS = true
		}
		if mr != nil {
			// Channel routes are prepended ahead of the catch-all but after
			// the fixed admin routes, which are terminal and come first.
			mainRoutes = append(mainRoutes[:len(mainRoutes)-1], append([]map[string]any{mr}, mainRoutes[len(mainRoutes)-1:]...)...)
		}
	}

	mainServer := map[string]any{
		"listen": []string{":" + strconv.Itoa(spec.IngressPort)},
		"routes": mainRoutes,
	}
	servers := map[string]any{"main": mainServer}
	if hasTLS {
		servers["tls_domains"] = map[string]any{
			"listen": []string{":443"},
			"routes": tlsRoutes,
		}
	}

	apps := map[string]any{
		"http": map[string]any{"servers": servers},
	}
	if spec.Caddy != nil && spec.Caddy.Email != "" {
		apps["tls"] = map[string]any{
			"automation": map[string]any{
				"policies": []map[string]any{{
					"issuers": []map[string]any{{"module": "acme", "email": spec.Caddy.Email}},
				}},
			},
		}
	}

	doc := map[string]any{
		"admin": map[string]any{"disabled": true},
		"apps":  apps,
	}
	return json.MarshalIndent(doc, "", "  ")
}
