package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/username/nanopos/src/services"
)

type resetCmd struct {
	items        bool
	transactions bool
	yes          bool
}

func (*resetCmd) Name() string     { return "reset" }
func (*resetCmd) Synopsis() string { return "empty the local catalogue or transaction table" }
func (*resetCmd) Usage() string {
	return `nanopos reset [-items] [-transactions] -yes

  Empties the selected tables. Transactions are mirrored again from the
  node on the next sync; bills are kept and reattach by hash.
`
}

func (c *resetCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.items, "items", false, "delete every catalogue item")
	f.BoolVar(&c.transactions, "transactions", false, "delete every mirrored transaction")
	f.BoolVar(&c.yes, "yes", false, "confirm the reset")
}

func (c *resetCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 || (!c.items && !c.transactions) {
		fmt.Fprintln(os.Stderr, "reset needs -items, -transactions or both")
		return subcommands.ExitUsageError
	}
	if !c.yes {
		fmt.Fprintln(os.Stderr, "reset deletes data, pass -yes to confirm")
		return subcommands.ExitUsageError
	}

	a, status := openApp(ctx)
	if a == nil {
		return status
	}
	defer closeApp(a)

	if err := a.Reset.Reset(ctx, services.ResetOptions{Items: c.items, Transactions: c.transactions}); err != nil {
		fmt.Fprintf(os.Stderr, "Error resetting: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Reset done (items=%t, transactions=%t)\n", c.items, c.transactions)
	return subcommands.ExitSuccess
}
