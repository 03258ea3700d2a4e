package apply

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"gopkg.in/yaml.v3"
)

// HealthDeadline is the per-service poll deadline derived from its compose
// healthcheck declaration: start_period + interval*retries (spec.md §5).
type HealthDeadline struct {
	StartPeriod time.Duration
	Interval    time.Duration
	Retries     int
}

func (d HealthDeadline) total() time.Duration {
	return d.StartPeriod + d.Interval*time.Duration(d.Retries)
}

// ParseHealthDeadline converts the compose healthcheck's string durations
// ("5s", "10s") into a HealthDeadline; a blank field reads as zero.
func ParseHealthDeadline(startPeriod, interval string, retries int) HealthDeadline {
	parse := func(s string) time.Duration {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0
		}
		return d
	}
	return HealthDeadline{StartPeriod: parse(startPeriod), Interval: parse(interval), Retries: retries}
}

type composePsEntry struct {
	Service string `json:"Service"`
	State   string `json:"State"`
	Health  string `json:"Health"`
}

// WaitHealthy polls `compose ps` at 1s intervals until svc reports running
// (and healthy, if hasHealthcheck is true) or deadline elapses, then
// returns the terminal result (spec.md §5's "health-gate helper").
func WaitHealthy(runner ComposeRunner, svc string, hasHealthcheck bool, deadline HealthDeadline) bool {
	limit := time.Now().Add(deadline.total())
	for {
		if serviceHealthy(runner, svc, hasHealthcheck) {
			return true
		}
		if time.Now().After(limit) {
			return false
		}
		time.Sleep(time.Second)
	}
}

func serviceHealthy(runner ComposeRunner, svc string, hasHealthcheck bool) bool {
	res := runner.Ps()
	if !res.OK {
		return false
	}
	for _, entry := range parseComposePs(res.Stdout) {
		if entry.Service != svc {
			continue
		}
		if !strings.EqualFold(entry.State, "running") {
			return false
		}
		if !hasHealthcheck {
			return true
		}
		return strings.EqualFold(entry.Health, string(container.Healthy))
	}
	return false
}

// composeHealthSpec decodes only the healthcheck shape out of a rendered
// compose doc, mirroring composerunner.parseComposeServiceNames's technique
// of reading the services map without the artifacts package's own (private)
// compose types.
type composeHealthSpec struct {
	Services map[string]struct {
		Healthcheck *struct {
			Interval    string `yaml:"interval"`
			Retries     int    `yaml:"retries"`
			StartPeriod string `yaml:"start_period"`
		} `yaml:"healthcheck"`
	} `yaml:"services"`
}

// healthDeadlines derives a HealthDeadline and healthcheck-presence flag per
// service named in composeDoc (spec.md §5). A service with no healthcheck
// block, or a doc that fails to parse, is simply absent from both maps.
func healthDeadlines(composeDoc []byte) (map[string]HealthDeadline, map[string]bool) {
	deadlines := map[string]HealthDeadline{}
	hasHealthcheck := map[string]bool{}
	var doc composeHealthSpec
	if err := yaml.Unmarshal(composeDoc, &doc); err != nil {
		return deadlines, hasHealthcheck
	}
	for name, svc := range doc.Services {
		if svc.Healthcheck == nil {
			continue
		}
		hasHealthcheck[name] = true
		deadlines[name] = ParseHealthDeadline(svc.Healthcheck.StartPeriod, svc.Healthcheck.Interval, svc.Healthcheck.Retries)
	}
	return deadlines, hasHealthcheck
}

// parseComposePs accepts either a JSON array (recent compose versions) or
// newline-delimited JSON objects (older versions), matching the two shapes
// `compose ps --format json` has been observed to emit.
func parseComposePs(out string) []composePsEntry {
	out = strings.TrimSpace(out)
	if out == "" {
		return nil
	}
	var arr []composePsEntry
	if err := json.Unmarshal([]byte(out), &arr); err == nil {
		return arr
	}
	var entries []composePsEntry
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var entry composePsEntry
		if err := json.Unmarshal([]byte(line), &entry); err == nil {
			entries = append(entries, entry)
		}
	}
	return entries
}
