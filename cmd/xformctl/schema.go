package main

import (
	"fmt"

	"github.com/danmuck/xformctl/internal/schema"
	"github.com/spf13/cobra"
)

func newSchemaCmd(root *rootOptions) *cobra.Command {
	var types bool
	cmd := &cobra.Command{
		Use:   "schema <file>...",
		Short: "Resolve schema files and print their namespaces",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := schema.NewRegistry(nil).WithLogger(root.logger)
			out := cmd.OutOrStdout()
			for _, path := range args {
				ns, err := registry.Resolve(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%s\n", path, ns)
				if !types {
					continue
				}
				s, _ := registry.Catalog().Lookup(ns)
				for _, t := range s.Types {
					kind := "type"
					if t.Abstract {
						kind = "abstract"
					}
					fmt.Fprintf(out, "  %s %s\n", kind, s.TypeID(t.Name))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&types, "types", false, "list declared types")
	return cmd
}
