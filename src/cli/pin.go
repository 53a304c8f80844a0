package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type pinCmd struct{}

func (*pinCmd) Name() string     { return "pin" }
func (*pinCmd) Synopsis() string { return "set the operator PIN that guards the HTTP API" }
func (*pinCmd) Usage() string {
	return `nanopos pin <digits>

  Sets the 4 to 12 digit operator PIN. Once set, API commands need a token
  from POST /api/auth/login.
`
}

func (*pinCmd) SetFlags(*flag.FlagSet) {}

func (*pinCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "pin takes exactly one argument")
		return subcommands.ExitUsageError
	}

	a, status := openApp(ctx)
	if a == nil {
		return status
	}
	defer closeApp(a)

	if err := a.Auth.SetPIN(ctx, f.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error setting PIN: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println("PIN updated")
	return subcommands.ExitSuccess
}
