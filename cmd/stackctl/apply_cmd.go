package main

import (
	"flag"
	"fmt"

	"github.com/openpalm/stackctl/internal/apply"
)

const applyUsage = `usage: stackctl apply [--apply]

computes the impact plan (up/restart/reload) between the current on-disk
artifacts and a fresh render. Without --apply this is a dry run; with
--apply it writes the artifacts and executes the plan through the compose
runner.`

func cmdApply(args []string) {
	fs := flag.NewFlagSet("apply", flag.ExitOnError)
	doApply := fs.Bool("apply", false, "execute the plan instead of only computing it")
	_ = fs.Parse(args)

	m := newManager()
	runner := newRunner()
	result, err := apply.Apply(m, runner, apply.Options{Apply: *doApply})
	if err != nil {
		fail("apply", err)
	}

	fmt.Printf("up: %v\n", result.Plan.Up)
	fmt.Printf("restart: %v\n", result.Plan.Restart)
	fmt.Printf("reload: %v\n", result.Plan.Reload)
	fmt.Printf("applied: %v\n", result.Applied)
}
