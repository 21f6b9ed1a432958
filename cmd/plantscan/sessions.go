package main

import (
	"fmt"
	"os/user"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rumor-ml/commons.systems/plantscan/internal/config"
)

func newSessionsCmd() *cobra.Command {
	var userID string
	var storeName string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List upload sessions for a user, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if storeName != "" {
				cfg.Store = storeName
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			b, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			sessions, err := b.sessions.List(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tSTARTED\tTOTAL\tSUCCEEDED\tERRORS\tDIR")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					s.ID, s.Status, s.StartedAt.Local().Format(time.DateTime),
					s.Stats.Total, s.Stats.Succeeded, s.Stats.Errors, s.Dir)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&userID, "user", currentUser(), "User whose sessions to list")
	cmd.Flags().StringVar(&storeName, "store", "", "Metadata store (firestore or sqlite, default $PLANTSCAN_STORE)")

	return cmd
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}
