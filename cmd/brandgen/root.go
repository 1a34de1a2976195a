package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "brandgen",
		Short:         "Generate brand cards and upload them in batches",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newGenerateCommand())
	rootCmd.AddCommand(newSlugCommand())
	rootCmd.AddCommand(newGDriveAuthCommand())

	return rootCmd
}
