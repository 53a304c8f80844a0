// Package cli holds the subcommands of the nanopos binary.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/username/nanopos/src/app"
	"github.com/username/nanopos/src/config"
)

// Register the subcommands.
func Register(c *subcommands.Commander) {
	c.Register(&serveCmd{}, "server")

	c.Register(&syncCmd{}, "ledger")
	c.Register(&reportCmd{}, "ledger")
	c.Register(&watchCmd{}, "ledger")

	c.Register(&importCSVCmd{}, "catalogue")
	c.Register(&resetCmd{}, "catalogue")
	c.Register(&pinCmd{}, "security")
}

// openApp builds the application from the loaded configuration. The caller
// closes it.
func openApp(ctx context.Context) (*app.App, subcommands.ExitStatus) {
	a, err := app.New(ctx, config.Cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting: %v\n", err)
		return nil, subcommands.ExitFailure
	}
	return a, subcommands.ExitSuccess
}

func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing database: %v\n", err)
	}
}

func printMarkdown(md string) {
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
