package composerunner

import (
	"bytes"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/openpalm/stackctl/internal/artifacts"
	"gopkg.in/yaml.v3"
)

// Options configures a Runner. Bin and Subcommand default to "docker" and
// "compose"; ComposeFile and ProjectPath are passed through as -f/--project-
// directory when set. SocketURI, if set, is exported to the subprocess as
// DOCKER_HOST unless the parent environment already defines it.
type Options struct {
	Bin           string
	Subcommand    string
	ComposeFile   string
	ProjectPath   string
	SocketURI     string
	ExtraServices []string
}

// Runner invokes a single external compose binary for a fixed project,
// rejecting any service name not vouched for by the core service list, the
// configured extra-service list, or the on-disk compose file itself.
type Runner struct {
	bin           string
	subcommand    string
	composeFile   string
	projectPath   string
	socketURI     string
	extraServices []string
}

// New builds a Runner from opts, filling OPENPALM_COMPOSE_BIN/_SUBCOMMAND
// style defaults (spec §6's "Environment variables read") when left blank.
func New(opts Options) *Runner {
	bin := opts.Bin
	if strings.TrimSpace(bin) == "" {
		bin = "docker"
	}
	sub := opts.Subcommand
	if strings.TrimSpace(sub) == "" {
		sub = "compose"
	}
	return &Runner{
		bin:           bin,
		subcommand:    sub,
		composeFile:   opts.ComposeFile,
		projectPath:   opts.ProjectPath,
		socketURI:     opts.SocketURI,
		extraServices: append([]string(nil), opts.ExtraServices...),
	}
}

// NewFromEnv builds a Runner from the environment variables spec §6 names.
func NewFromEnv() *Runner {
	var extra []string
	if v := strings.TrimSpace(os.Getenv("OPENPALM_EXTRA_SERVICES")); v != "" {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				extra = append(extra, s)
			}
		}
	}
	return New(Options{
		Bin:           os.Getenv("OPENPALM_COMPOSE_BIN"),
		Subcommand:    os.Getenv("OPENPALM_COMPOSE_SUBCOMMAND"),
		ComposeFile:   os.Getenv("OPENPALM_COMPOSE_FILE"),
		ProjectPath:   os.Getenv("COMPOSE_PROJECT_PATH"),
		SocketURI:     os.Getenv("OPENPALM_CONTAINER_SOCKET_URI"),
		ExtraServices: extra,
	})
}

// Config validates the compose file via the orchestrator's own config
// subcommand, the fail-fast check the apply engine runs before writing any
// artifact (spec §4.5 step 4).
func (r *Runner) Config() Result {
	return r.run(nil, "config", "--quiet")
}

// Ps lists container state as JSON.
func (r *Runner) Ps() Result {
	return r.run(nil, "ps", "--format", "json")
}

// Pull pulls images for svcs, or every service when svcs is empty.
func (r *Runner) Pull(svcs ...string) Result {
	if rej := r.checkAllowed(svcs); rej != nil {
		return *rej
	}
	return r.run(nil, append([]string{"pull"}, svcs...)...)
}

// Logs returns up to tail lines of svc's log output. tail must be in
// [1, 5000]; outside that range Logs returns without launching a subprocess.
func (r *Runner) Logs(svc string, tail int) Result {
	if tail < 1 || tail > 5000 {
		return Result{OK: false, Stderr: "invalid_tail"}
	}
	if rej := r.checkAllowed([]string{svc}); rej != nil {
		return *rej
	}
	return r.run(nil, "logs", "--tail", strconv.Itoa(tail), svc)
}

// Up starts svcs in detached mode.
func (r *Runner) Up(svcs ...string) Result {
	if rej := r.checkAllowed(svcs); rej != nil {
		return *rej
	}
	return r.run(nil, append([]string{"up", "-d"}, svcs...)...)
}

// Stop stops svcs.
func (r *Runner) Stop(svcs ...string) Result {
	if rej := r.checkAllowed(svcs); rej != nil {
		return *rej
	}
	return r.run(nil, append([]string{"stop"}, svcs...)...)
}

// Restart restarts svcs.
func (r *Runner) Restart(svcs ...string) Result {
	if rej := r.checkAllowed(svcs); rej != nil {
		return *rej
	}
	return r.run(nil, append([]string{"restart"}, svcs...)...)
}

// Exec runs args inside svc's container with stdin disabled (-T).
func (r *Runner) Exec(svc string, args ...string) Result {
	if rej := r.checkAllowed([]string{svc}); rej != nil {
		return *rej
	}
	full := append([]string{"exec", "-T", svc}, args...)
	return r.run(nil, full...)
}

// checkAllowed rejects the call before any subprocess launches if any name
// in svcs is outside the allow-list union (spec §4.6).
func (r *Runner) checkAllowed(svcs []string) *Result {
	if len(svcs) == 0 {
		return nil
	}
	allowed, err := r.allowedServices()
	if err != nil {
		return &Result{OK: false, Stderr: "service_not_allowed"}
	}
	for _, s := range svcs {
		if !allowed[s] {
			return &Result{OK: false, Stderr: "service_not_allowed"}
		}
	}
	return nil
}

// allowedServices is the union of the fixed core services, the configured
// extra-service list, and the services named in the on-disk compose file's
// top-level services map.
func (r *Runner) allowedServices() (map[string]bool, error) {
	set := map[string]bool{}
	for _, s := range artifacts.CoreServiceNames {
		set[s] = true
	}
	for _, s := range r.extraServices {
		set[s] = true
	}
	if r.composeFile == "" {
		return set, nil
	}
	names, err := parseComposeServiceNames(r.composeFile)
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		return set, err
	}
	for _, s := range names {
		set[s] = true
	}
	return set, nil
}

// parseComposeServiceNames reads the top-level "services:" map keys out of
// a compose document without decoding the rest of its shape.
func parseComposeServiceNames(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Services map[string]yaml.Node `yaml:"services"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(doc.Services))
	for name := range doc.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// run builds and executes the orchestrator command, capturing stdout and
// stderr fully and resolving once the process exits (spec §4.6).
func (r *Runner) run(extraEnv []string, args ...string) Result {
	full := append([]string{r.subcommand}, r.composeArgs()...)
	full = append(full, args...)
	cmd := exec.Command(r.bin, full...)
	cmd.Env = r.env(extraEnv)

	var stdout, stderr bytes.Buffer
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return Result{OK: false, Stderr: err.Error()}
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return Result{OK: false, Stderr: err.Error()}
	}
	if err := cmd.Start(); err != nil {
		return Result{OK: false, Stderr: err.Error()}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go drain(&wg, stdoutPipe, &stdout)
	go drain(&wg, stderrPipe, &stderr)
	waitErr := cmd.Wait()
	wg.Wait()

	if waitErr != nil {
		msg := stderr.String()
		if msg == "" {
			msg = waitErr.Error()
		}
		return Result{OK: false, Stdout: stdout.String(), Stderr: msg}
	}
	return Result{OK: true, Stdout: stdout.String(), Stderr: stderr.String()}
}

func drain(wg *sync.WaitGroup, r io.Reader, w *bytes.Buffer) {
	defer wg.Done()
	_, _ = io.Copy(w, r)
}

func (r *Runner) composeArgs() []string {
	var args []string
	if r.composeFile != "" {
		args = append(args, "-f", r.composeFile)
	}
	if r.projectPath != "" {
		args = append(args, "--project-directory", r.projectPath)
	}
	return args
}

func (r *Runner) env(extra []string) []string {
	env := os.Environ()
	if r.socketURI != "" {
		if os.Getenv("DOCKER_HOST") == "" {
			env = append(env, "DOCKER_HOST="+r.socketURI)
		}
		if os.Getenv("CONTAINER_HOST") == "" {
			env = append(env, "CONTAINER_HOST="+r.socketURI)
		}
	}
	return append(env, extra...)
}
