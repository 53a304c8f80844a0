package cli

import (
	"context"
	"flag"
	"testing"

	"github.com/google/subcommands"
)

func TestResetCmdRejectsIncompleteFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"nothing selected", []string{"-yes"}},
		{"not confirmed", []string{"-items", "-transactions"}},
		{"extra argument", []string{"-items", "-yes", "all"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &resetCmd{}
			fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
			cmd.SetFlags(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("Parse(%v) unexpected error = %v", tt.args, err)
			}
			if got := cmd.Execute(context.Background(), fs); got != subcommands.ExitUsageError {
				t.Errorf("Execute(%v) = %v, want ExitUsageError", tt.args, got)
			}
		})
	}
}
