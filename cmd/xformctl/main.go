package main

import (
	"fmt"
	"os"

	"github.com/danmuck/xformctl/internal/observability"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	_ "github.com/danmuck/xformctl/internal/engine/rules"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "xformctl: %v\n", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	verbose bool
	logger  zerolog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{logger: zerolog.Nop()}
	root := &cobra.Command{
		Use:           "xformctl",
		Short:         "Run declarative graph-to-graph transformations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.logger = observability.InitLogger("xformctl")
			if opts.verbose {
				opts.logger = opts.logger.Level(zerolog.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	root.AddCommand(
		newRunCmd(opts),
		newFmtCmd(opts),
		newSchemaCmd(opts),
		newInitCmd(),
		newValidateCmd(),
	)
	return root
}
