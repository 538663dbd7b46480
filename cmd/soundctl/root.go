package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var dirFlag string
	var baseURLFlag string
	var verbose bool

	ctx := newCommandContext(&configFlag, &dirFlag, &baseURLFlag, &verbose)

	rootCmd := &cobra.Command{
		Use:           "soundctl",
		Short:         "Inspect content-addressed assets and sound events",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "menusound.yaml", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&dirFlag, "dir", "", "Read assets from this directory")
	rootCmd.PersistentFlags().StringVar(&baseURLFlag, "base-url", "", "Read assets from this URL")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")

	rootCmd.AddCommand(newResolveCommand(ctx))
	rootCmd.AddCommand(newFetchCommand(ctx))
	rootCmd.AddCommand(newEventsCommand(ctx))
	rootCmd.AddCommand(newPickCommand(ctx))

	return rootCmd
}
