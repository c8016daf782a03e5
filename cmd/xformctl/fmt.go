package main

import (
	"fmt"
	"os"

	"github.com/danmuck/xformctl/internal/codec"
	"github.com/danmuck/xformctl/internal/observability"
	"github.com/danmuck/xformctl/internal/resource"
	"github.com/spf13/cobra"
)

func newFmtCmd(root *rootOptions) *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "fmt <graph>...",
		Short: "Rewrite graph files in canonical form",
		Long: `Fmt decodes each graph file and encodes it again: attribute keys are
sorted, explicit ids are dropped and references become containment paths.
Without -w the canonical text is printed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				roots, err := codec.Decode(data)
				observability.RecordCodec("decode", err)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				canonical, err := codec.Encode(roots)
				observability.RecordCodec("encode", err)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if !write {
					cmd.OutOrStdout().Write(canonical)
					continue
				}
				if resource.Equal(path, canonical) {
					continue
				}
				if err := resource.WriteFileAtomic(path, canonical); err != nil {
					return err
				}
				root.logger.Info().Str("path", path).Msg("formatted")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write result to the source file")
	return cmd
}
