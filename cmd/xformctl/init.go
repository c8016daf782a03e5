package main

import (
	"fmt"

	"github.com/danmuck/xformctl/internal/config"
	"github.com/danmuck/xformctl/internal/engine"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var (
		output string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a launch file template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteTemplate(output, "launch", force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote launch template to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "launch.toml", "output path")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a launch file without running it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(file)
			if err != nil {
				return err
			}
			if _, err := engine.Get(cfg.Engine); err != nil {
				return err
			}
			if _, err := cfg.Builder().Build(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "validated %s\n", file)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "launch.toml", "launch file")
	return cmd
}
