package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type importCSVCmd struct{}

func (*importCSVCmd) Name() string     { return "import-csv" }
func (*importCSVCmd) Synopsis() string { return "import catalogue items from a CSV file" }
func (*importCSVCmd) Usage() string {
	return `nanopos import-csv <file.csv>

  The header must name id, name and price columns; description, barcode,
  category and extra are optional. Existing ids are kept.
`
}

func (*importCSVCmd) SetFlags(*flag.FlagSet) {}

func (*importCSVCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "import-csv takes exactly one file")
		return subcommands.ExitUsageError
	}

	a, status := openApp(ctx)
	if a == nil {
		return status
	}
	defer closeApp(a)

	res, err := a.Items.ImportCSV(ctx, f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error importing %q: %v\n", f.Arg(0), err)
		return subcommands.ExitFailure
	}
	fmt.Printf("%d inserted, %d already present, %d skipped\n", res.Inserted, res.Duplicates, res.Skipped)
	return subcommands.ExitSuccess
}
