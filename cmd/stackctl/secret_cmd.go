package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

const secretUsageText = `usage: stackctl secret get <name>
       stackctl secret set <name> [value]
       stackctl secret list
       stackctl secret delete <name>

"set" without a value prompts for one, masked, when stdin is a terminal.`

func cmdSecret(args []string) {
	if len(args) == 0 {
		fmt.Println(secretUsageText)
		return
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "get":
		cmdSecretGet(rest)
	case "set":
		cmdSecretSet(rest)
	case "list":
		cmdSecretList(rest)
	case "delete":
		cmdSecretDelete(rest)
	case "help", "-h", "--help":
		fmt.Println(secretUsageText)
	default:
		fmt.Fprintf(os.Stderr, "unknown secret subcommand: %s\n", sub)
		fmt.Println(secretUsageText)
		os.Exit(1)
	}
}

func cmdSecretGet(args []string) {
	fs := flag.NewFlagSet("secret get", flag.ExitOnError)
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Println(secretUsageText)
		os.Exit(1)
	}
	name := fs.Arg(0)
	states, err := newManager().ListSecretManagerState()
	if err != nil {
		fail("secret get", err)
	}
	for _, s := range states {
		if s.Name == name {
			fmt.Printf("%s configured=%v usedBy=%v purpose=%q\n", s.Name, s.Configured, s.UsedBy, s.Purpose)
			return
		}
	}
	fmt.Fprintf(os.Stderr, "unknown secret name: %s\n", name)
	os.Exit(1)
}

func cmdSecretSet(args []string) {
	fs := flag.NewFlagSet("secret set", flag.ExitOnError)
	_ = fs.Parse(args)
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fmt.Println(secretUsageText)
		os.Exit(1)
	}
	name := fs.Arg(0)
	var value string
	if fs.NArg() == 2 {
		value = fs.Arg(1)
	} else {
		value = promptSecretValue(name)
	}
	if err := newManager().UpsertSecret(name, value); err != nil {
		fail("secret set", err)
	}
	fmt.Printf("secret %s set\n", name)
}

func cmdSecretList(args []string) {
	states, err := newManager().ListSecretManagerState()
	if err != nil {
		fail("secret list", err)
	}
	for _, s := range states {
		fmt.Printf("%-36s configured=%-5v usedBy=%v\n", s.Name, s.Configured, s.UsedBy)
	}
}

func cmdSecretDelete(args []string) {
	fs := flag.NewFlagSet("secret delete", flag.ExitOnError)
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Println(secretUsageText)
		os.Exit(1)
	}
	if err := newManager().DeleteSecret(fs.Arg(0)); err != nil {
		fail("secret delete", err)
	}
	fmt.Printf("secret %s deleted\n", fs.Arg(0))
}

// promptSecretValue reads a secret value from stdin, masked via
// term.ReadPassword when stdin is an interactive terminal, or a plain
// trimmed line otherwise (piped input).
func promptSecretValue(name string) string {
	fmt.Fprintf(os.Stderr, "value for %s: ", name)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			fail("secret set", err)
		}
		return string(b)
	}
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}
