// Command stackctl is the operator-facing CLI over the stack control
// plane: rendering artifacts, applying them with minimal disruption, and
// managing secrets and scheduled automations.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]
	if !dispatch(cmd, args) {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func dispatch(cmd string, args []string) bool {
	switch cmd {
	case "render":
		cmdRender(args)
	case "apply":
		cmdApply(args)
	case "secret":
		cmdSecret(args)
	case "automation":
		cmdAutomation(args)
	case "help", "-h", "--help":
		usage()
	default:
		return false
	}
	return true
}

func usage() {
	fmt.Println(`usage: stackctl <command> [args]

commands:
  render                         render artifacts from the current spec (dry run)
  apply [--apply]                compute (and optionally execute) the impact plan
  secret get|set|list|delete     manage the secret store
  automation list|upsert|delete|trigger
                                  manage scheduled automations`)
}
