package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type syncCmd struct {
	offline bool
}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "fetch the account history and rebuild the snapshot" }
func (*syncCmd) Usage() string {
	return `nanopos sync [-offline]

  Runs one reconciliation cycle and prints a summary.
`
}

func (c *syncCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.offline, "offline", false, "Rebuild from the local store without querying the node.")
}

func (c *syncCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, status := openApp(ctx)
	if a == nil {
		return status
	}
	defer closeApp(a)

	snap, err := a.Sync.UpdateInfo(ctx, !c.offline)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error syncing: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("%s: %d new, %d transactions, balance %s Nano (today %s)\n",
		snap.Address, snap.Merged, len(snap.RawTransactions), snap.Balance.Total, snap.Balance.Today)
	return subcommands.ExitSuccess
}
