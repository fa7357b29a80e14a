package resource

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// NewCommand builds the command tree for a resource type binary: `check`,
// `in <dir>` and `out <dir>` subcommands. The same binary can also be
// installed under the conventional script names (see Main).
func NewCommand(name string, factory Factory, opts ...Option) *cobra.Command {
	root := &cobra.Command{
		Use:           name,
		Short:         name + " resource type",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Discover new versions since the previous one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewRunner(factory, opts...).RunCheck(cmd.Context())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "in <destination>",
		Short: "Download a version into the destination directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewRunner(factory, opts...).RunIn(cmd.Context(), args[0])
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "out <sources>",
		Short: "Publish a new version from the sources directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewRunner(factory, opts...).RunOut(cmd.Context(), args[0])
		},
	})

	return root
}

// Main is the entrypoint for a resource type binary. When the binary is
// invoked as `check`, `in` or `out` (the orchestrator execs those exact
// names, typically symlinks to one binary) it dispatches directly; any
// other name falls through to the command tree. Any failure exits non-zero
// with a diagnostic; there are no distinct codes for distinct failure
// classes.
func Main(name string, factory Factory, opts ...Option) {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
		Prefix:          name,
	})

	err := dispatch(name, factory, opts)
	if err != nil {
		logger.Error("operation failed", "err", err)
		os.Exit(1)
	}
}

func dispatch(name string, factory Factory, opts []Option) error {
	ctx := context.Background()

	dirArg := func() string {
		if len(os.Args) > 1 {
			return os.Args[1]
		}
		return ""
	}

	switch filepath.Base(os.Args[0]) {
	case "check":
		return NewRunner(factory, opts...).RunCheck(ctx)
	case "in":
		return NewRunner(factory, opts...).RunIn(ctx, dirArg())
	case "out":
		return NewRunner(factory, opts...).RunOut(ctx, dirArg())
	default:
		return NewCommand(name, factory, opts...).ExecuteContext(ctx)
	}
}
