package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rehabcenter/portal"
	"github.com/rehabcenter/portal/stats"
)

func newStatsCmd(envFiles *[]string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Inspect or change the homepage counters",
	}
	cmd.AddCommand(newStatsShowCmd(envFiles))
	cmd.AddCommand(newStatsSetCmd(envFiles))
	return cmd
}

func openStats(envFiles []string) (*stats.Store, error) {
	cfg, err := portal.LoadConfig(envFiles...)
	if err != nil {
		return nil, err
	}
	return stats.NewStore(cfg.StatsDatabasePath)
}

func newStatsShowCmd(envFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStats(*envFiles)
			if err != nil {
				return err
			}
			defer store.Close()
			st, err := store.Get(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, k := range stats.Keys {
				fmt.Fprintf(w, "%s\t%d\n", k, st.Value(k))
			}
			if !st.UpdatedAt.IsZero() {
				fmt.Fprintf(w, "updated\t%s\n", st.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

func newStatsSetCmd(envFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Set one counter",
		Args:      cobra.ExactArgs(2),
		ValidArgs: stats.Keys,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("value %q is not a whole number", args[1])
			}
			store, err := openStats(*envFiles)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Set(cmd.Context(), args[0], v); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %d\n", args[0], v)
			return nil
		},
	}
}
