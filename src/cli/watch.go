package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/subcommands"
	"github.com/username/nanopos/src/models"
	"github.com/username/nanopos/src/services"
	"github.com/username/nanopos/src/units"
)

type watchCmd struct {
	items  string
	amount string
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "wait for a payment" }
func (*watchCmd) Usage() string {
	return `nanopos watch -items <id,id,...> [-amount <nano>]

  Charges the listed items (repeat an id for quantity) and waits until the
  payment arrives. Interrupt to cancel.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.items, "items", "", "Comma separated item ids.")
	f.StringVar(&c.amount, "amount", "", "Expected amount in Nano, instead of pricing the items.")
}

func (c *watchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ids, err := parseIDs(c.items)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -items: %v\n", err)
		return subcommands.ExitUsageError
	}
	if len(ids) == 0 && c.amount == "" {
		fmt.Fprintln(os.Stderr, "Either -items or -amount is required")
		return subcommands.ExitUsageError
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, status := openApp(ctx)
	if a == nil {
		return status
	}
	defer closeApp(a)

	var st models.WatchStatus
	if c.amount != "" {
		expected, perr := units.ParseDisplayAmount(c.amount)
		if perr != nil {
			fmt.Fprintf(os.Stderr, "Error parsing -amount: %v\n", perr)
			return subcommands.ExitUsageError
		}
		st, err = a.Watch.Watch(ctx, services.WatchRequest{ItemIDs: ids, Expected: expected})
	} else {
		st, err = a.Watch.Start(ctx, ids)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting watch: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Waiting for %s Nano on %s\n", units.FormatDisplay(st.Expected), st.Address)

	st, err = a.Watch.Wait(ctx)
	if err != nil {
		a.Watch.Stop()
		fmt.Println("Cancelled")
		return subcommands.ExitFailure
	}

	switch st.State {
	case models.WatchMatched:
		fmt.Printf("Paid: received %s Nano (exceed %s), block %s\n",
			units.FormatDisplay(st.Received), units.FormatDisplay(st.Exceed), st.Hash)
		return subcommands.ExitSuccess
	case models.WatchMismatched:
		fmt.Printf("Underpaid: received %s of %s Nano, block %s\n",
			units.FormatDisplay(st.Received), units.FormatDisplay(st.Expected), st.Hash)
	default:
		fmt.Printf("Watch ended in state %s %s\n", st.State, st.Error)
	}
	return subcommands.ExitFailure
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid item id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
