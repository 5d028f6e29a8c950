// Command portal serves the rehabilitation center site and its dashboard.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

func newRootCmd() *cobra.Command {
	var envFiles []string
	cmd := &cobra.Command{
		Use:           "portal",
		Short:         "Bilingual site and admin dashboard for the rehabilitation center",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "env files to load (default .env, .env.local)")
	cmd.AddCommand(newServeCmd(&envFiles))
	cmd.AddCommand(newStatsCmd(&envFiles))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the portal version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "portal %s\n", version)
		},
	}
}
