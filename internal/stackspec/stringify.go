package stackspec

import (
	"bytes"
	"sort"

	"gopkg.in/yaml.v3"
)

// stackSpecKeyOrder fixes the field order Stringify renders a mapping node
// in; any key absent from this map (a channel/service/automation/config map
// key, which the caller controls) falls back to alphabetical. Grounded on
// the key-ordering technique in awsqed-config-formatter/formatter/formatter.go,
// generalized from docker-compose's schema to this one.
var stackSpecKeyOrder = map[string]int{
	"version":         1,
	"accessScope":     2,
	"ingressPort":     3,
	"caddy":           4,
	"channels":        5,
	"services":        6,
	"automations":     7,
	"email":           1,
	"enabled":         1,
	"exposure":        2,
	"image":           3,
	"containerPort":   4,
	"hostPort":        5,
	"domains":         6,
	"pathPrefixes":    7,
	"rewritePath":     8,
	"healthcheckPath": 9,
	"sharedSecretEnv": 10,
	"volumes":         11,
	"config":          12,
	"id":              1,
	"name":            2,
	"schedule":        3,
	"script":          4,
	"description":     5,
	"core":            6,
}

// Stringify renders spec as canonical YAML: fixed field order at every
// known level, alphabetical order for map keys the schema doesn't name
// (channel names, service names, config keys), 2-space indent. Two specs
// with the same content always stringify to the same bytes.
func Stringify(spec StackSpec) ([]byte, error) {
	raw, err := yaml.Marshal(spec)
	if err != nil {
		return nil, wrapError("invalid_stack_spec", err, "encode")
	}
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, wrapError("invalid_stack_spec", err, "encode")
	}
	sortNode(&root)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return nil, wrapError("invalid_stack_spec", err, "encode")
	}
	enc.Close()
	return buf.Bytes(), nil
}

func sortNode(node *yaml.Node) {
	if node == nil {
		return
	}
	if node.Kind == yaml.MappingNode {
		sortMapping(node)
	}
	for _, child := range node.Content {
		sortNode(child)
	}
}

func sortMapping(node *yaml.Node) {
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
		order, ok := stackSpecKeyOrder[keyNode.Value]
		if !ok {
			order = 1000
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
