package apply

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/openpalm/stackctl/internal/artifacts"
	"github.com/openpalm/stackctl/internal/composerunner"
	"github.com/openpalm/stackctl/internal/secretstore"
	"github.com/openpalm/stackctl/internal/stackmanager"
	"github.com/openpalm/stackctl/internal/stackspec"
)

// Options controls whether Apply only computes the impact plan (dry run) or
// additionally writes the artifacts and executes the plan.
type Options struct {
	Apply bool
}

// ImpactPlan is the minimal set of orchestration actions a render produced,
// grouped by the action each named service needs (spec.md §4.5 step 5).
type ImpactPlan struct {
	Up      []string
	Restart []string
	Reload  []string
}

// Empty reports whether the plan carries no action at all — the shape a
// re-run of Apply against up-to-date artifacts must produce (spec.md §5
// "Idempotency").
func (p ImpactPlan) Empty() bool {
	return len(p.Up) == 0 && len(p.Restart) == 0 && len(p.Reload) == 0
}

// Result is what one Apply call produced: the computed plan, the rendered
// artifacts it was computed against, and whether the plan was executed.
type Result struct {
	Plan      ImpactPlan
	Artifacts artifacts.Artifacts
	Applied   bool
}

// ComposeRunner is the subset of composerunner.Runner's API the apply
// engine needs. It is an interface so tests can exercise the diff/plan
// logic without a real orchestrator binary; *composerunner.Runner already
// satisfies it.
type ComposeRunner interface {
	Config() composerunner.Result
	Ps() composerunner.Result
	Up(svcs ...string) composerunner.Result
	Restart(svcs ...string) composerunner.Result
	Exec(svc string, args ...string) composerunner.Result
}

// Apply renders the current spec into artifacts, diffs them against the
// on-disk artifact tree, and computes an ImpactPlan (spec.md §4.5). When
// opts.Apply is true it also writes the artifacts and executes the plan in
// order: up, then restart, then reload.
func Apply(manager *stackmanager.Manager, runner ComposeRunner, opts Options) (Result, error) {
	spec, err := manager.GetSpec()
	if err != nil {
		return Result{}, err
	}
	paths := manager.Paths()

	secrets, err := secretstore.Read(paths.SecretsPath)
	if err != nil {
		return Result{}, err
	}
	if missing := missingSecretReferences(spec, secrets); len(missing) > 0 {
		return Result{}, newError("secret_validation_failed:" + strings.Join(missing, ","))
	}

	preview, err := manager.RenderPreview()
	if err != nil {
		return Result{}, err
	}

	prior := snapshotPrior(paths, preview)

	if opts.Apply {
		if runner == nil {
			return Result{}, newError("compose_validation_failed:no_runner_configured")
		}
		if cfg := runner.Config(); !cfg.OK {
			return Result{}, newError("compose_validation_failed:" + cfg.Stderr)
		}
	}

	plan := diffImpact(prior, preview)
	result := Result{Plan: plan, Artifacts: preview}
	if !opts.Apply {
		return result, nil
	}

	if _, err := manager.RenderArtifacts(); err != nil {
		return result, err
	}
	if err := execute(runner, plan, preview.ComposeDoc); err != nil {
		return result, err
	}
	result.Applied = true
	return result, nil
}

// missingSecretReferences collects every ${NAME} reference appearing in an
// enabled channel's or service's config whose name is absent (or empty)
// from secrets, sorted for a stable error payload (spec.md §4.5 step 3,
// invariant 2).
func missingSecretReferences(spec stackspec.StackSpec, secrets map[string]string) []string {
	missing := map[string]bool{}
	check := func(cfg map[string]string) {
		for _, v := range cfg {
			name, ok := stackspec.ParseSecretReference(v)
			if !ok {
				continue
			}
			if val, present := secrets[name]; !present || val == "" {
				missing[name] = true
			}
		}
	}
	for _, ch := range spec.Channels {
		if ch.Enabled {
			check(ch.Config)
		}
	}
	for _, svc := range spec.Services {
		if svc.Enabled {
			check(svc.Config)
		}
	}
	names := make([]string, 0, len(missing))
	for n := range missing {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// snapshotPrior reads whatever artifact bytes currently exist on disk, in
// the same shape as preview (spec.md §4.5 step 2). A missing file reads as
// an empty byte slice, which the diff treats as "this service is new".
func snapshotPrior(paths stackmanager.Paths, preview artifacts.Artifacts) artifacts.Artifacts {
	read := func(path string) []byte {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		return b
	}
	envPath := func(service string) string {
		return filepath.Join(paths.StateRoot, service, ".env")
	}
	prior := artifacts.Artifacts{
		ProxyConfig:   read(paths.ProxyConfigPath),
		ComposeDoc:    read(paths.ComposeFilePath),
		SystemEnv:     read(filepath.Join(paths.StateRoot, "system.env")),
		GatewayEnv:    read(envPath("gateway")),
		AssistantEnv:  read(envPath("assistant")),
		PostgresEnv:   read(envPath("postgres")),
		QdrantEnv:     read(envPath("qdrant")),
		OpenMemoryEnv: read(envPath("openmemory")),
		ChannelEnvs:   map[string][]byte{},
		ServiceEnvs:   map[string][]byte{},
	}
	for name := range preview.ChannelEnvs {
		prior.ChannelEnvs[name] = read(envPath(name))
	}
	for name := range preview.ServiceEnvs {
		prior.ServiceEnvs[name] = read(envPath(name))
	}
	return prior
}

// execute runs the plan in order (up, restart, reload), batching each
// group into a single compose invocation rather than one subprocess per
// service; a failure aborts the remainder and reports the whole batch
// alongside the offending stderr (documented in DESIGN.md). After up and
// after restart it gates on the health-gate poll loop (spec.md §5) before
// moving to the next group, so a service that never reaches healthy aborts
// the remainder of the plan instead of racing ahead.
func execute(runner ComposeRunner, plan ImpactPlan, composeDoc []byte) error {
	deadlines, hasHealthcheck := healthDeadlines(composeDoc)

	if len(plan.Up) > 0 {
		if res := runner.Up(plan.Up...); !res.OK {
			return newError("compose_up_failed:" + strings.Join(plan.Up, ",") + ":" + res.Stderr)
		}
		if err := waitForHealth(runner, plan.Up, deadlines, hasHealthcheck); err != nil {
			return err
		}
	}
	if len(plan.Restart) > 0 {
		if res := runner.Restart(plan.Restart...); !res.OK {
			return newError("compose_restart_failed:" + strings.Join(plan.Restart, ",") + ":" + res.Stderr)
		}
		if err := waitForHealth(runner, plan.Restart, deadlines, hasHealthcheck); err != nil {
			return err
		}
	}
	for _, svc := range plan.Reload {
		if svc == "caddy" {
			res := runner.Exec("caddy", "caddy", "reload", "--config", "/etc/caddy/caddy.json", "--adapter", "json")
			if !res.OK {
				return newError("compose_reload_failed:" + svc + ":" + res.Stderr)
			}
			continue
		}
		if res := runner.Restart(svc); !res.OK {
			return newError("compose_reload_failed:" + svc + ":" + res.Stderr)
		}
	}
	return nil
}

// waitForHealth runs the health-gate poll loop for each service just
// brought up or restarted, in order; the first one that never reaches the
// expected state aborts with a categorized error naming it.
func waitForHealth(runner ComposeRunner, svcs []string, deadlines map[string]HealthDeadline, hasHealthcheck map[string]bool) error {
	for _, svc := range svcs {
		if !WaitHealthy(runner, svc, hasHealthcheck[svc], deadlines[svc]) {
			return newError("compose_health_timeout:" + svc)
		}
	}
	return nil
}

// PreviewOperations returns the advertised service list and a map of
// service to reload-semantics: "reload" for caddy, "restart" for every
// other core/channel/custom service (spec.md §4.5 "previewOperations").
func PreviewOperations(preview artifacts.Artifacts) (services []string, semantics map[string]string) {
	semantics = map[string]string{}
	for _, name := range artifacts.CoreServiceNames {
		services = append(services, name)
		if name == "caddy" {
			semantics[name] = "reload"
		} else {
			semantics[name] = "restart"
		}
	}
	for name := range preview.ChannelEnvs {
		services = append(services, name)
		semantics[name] = "restart"
	}
	for name := range preview.ServiceEnvs {
		services = append(services, name)
		semantics[name] = "restart"
	}
	sort.Strings(services)
	return services, semantics
}
