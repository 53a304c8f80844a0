package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/username/nanopos/src/models"
	"github.com/username/nanopos/src/units"
)

type reportCmd struct {
	offline bool
	limit   int
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "display balances, recent payments and the catalogue" }
func (*reportCmd) Usage() string {
	return `nanopos report [-offline] [-n <count>]

  Renders the account snapshot in the terminal.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.offline, "offline", false, "Do not query the node before reporting.")
	f.IntVar(&c.limit, "n", 20, "Number of transactions to show, 0 for all.")
}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, status := openApp(ctx)
	if a == nil {
		return status
	}
	defer closeApp(a)

	snap, err := a.Sync.UpdateInfo(ctx, !c.offline)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building report: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(snapshotMarkdown(snap, c.limit))
	return subcommands.ExitSuccess
}

// snapshotMarkdown renders snap as a markdown document.
func snapshotMarkdown(snap *models.Snapshot, limit int) string {
	var b strings.Builder
	currency := strings.ToUpper(snap.Settings.Currency)

	fmt.Fprintf(&b, "# %s\n\n", snap.Address)
	fmt.Fprintf(&b, "| | Nano | %s |\n|:---|---:|---:|\n", currency)
	fmt.Fprintf(&b, "| Balance | %s | %s |\n", snap.Balance.Total,
		units.FormatFiat(units.ToDisplay(snap.Balance.RawTotal).Mul(snap.CurrentNanoPrice), currency))
	fmt.Fprintf(&b, "| Today | %s | %s |\n\n", snap.Balance.Today,
		units.FormatFiat(units.ToDisplay(snap.Balance.RawToday).Mul(snap.CurrentNanoPrice), currency))
	fmt.Fprintf(&b, "1 Nano = %s\n\n", units.FormatFiat(snap.CurrentNanoPrice, currency))

	fmt.Fprintln(&b, "## Transactions")
	fmt.Fprintln(&b)
	if len(snap.PrettyTransactions) == 0 {
		fmt.Fprintln(&b, "No transactions yet.")
	} else {
		fmt.Fprintln(&b, "| Date | Time | Type | Nano | Value | Items |")
		fmt.Fprintln(&b, "|:---|:---|:---|---:|---:|:---|")
		for i, tx := range snap.PrettyTransactions {
			if limit > 0 && i >= limit {
				break
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
				tx.Date.Date, tx.Date.Hour, tx.Type, tx.Amount.Nano, tx.Amount.Currency,
				billSummary(snap.RawTransactions[i]))
		}
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "## Catalogue")
	fmt.Fprintln(&b)
	if len(snap.PrettyItems) == 0 {
		fmt.Fprintln(&b, "No items.")
		return b.String()
	}
	fmt.Fprintln(&b, "| ID | Name | Category | Price |")
	fmt.Fprintln(&b, "|---:|:---|:---|---:|")
	for _, it := range snap.PrettyItems {
		category := ""
		if it.Category != nil {
			category = *it.Category
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", it.ID, it.Name, category, it.Price)
	}
	return b.String()
}

func billSummary(tx models.RawTransaction) string {
	parts := make([]string, 0, len(tx.Details))
	for _, d := range tx.Details {
		name := d.Name
		if d.Missing {
			name = fmt.Sprintf("#%d (deleted)", d.ID)
		}
		parts = append(parts, fmt.Sprintf("%d× %s", d.Count, name))
	}
	return strings.Join(parts, ", ")
}
