package main

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/five82/kanjidex/internal/progress"
)

func newSyncCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch learning progress from WaniKani",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.offline {
				return errors.New("sync is not available with --offline")
			}
			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()

			ran, err := a.SyncIfConfigured(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !ran {
				fmt.Fprintln(out, `No API key stored. Run "kanjidex key set" first.`)
				return nil
			}
			printProfile(out, a.Progress())
			return nil
		},
	}
}

func printProfile(w io.Writer, snap progress.Snapshot) {
	if !snap.HasProfile {
		return
	}
	fmt.Fprintf(w, "%s, level %d\n", snap.Username, snap.Level)
	if snap.HasLearnedCount {
		fmt.Fprintf(w, "%d kanji passed\n", snap.LearnedCount)
	}
	if !snap.LastSynced.IsZero() {
		fmt.Fprintf(w, "Synced %s\n", humanize.Time(snap.LastSynced))
	}
}

func newServeCmd(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local HTTP API",
		Long: `Serve the local HTTP API until interrupted.

The address defaults to listen_addr from the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			return a.Serve(cmd.Context(), addr, func(bound net.Addr) {
				fmt.Fprintf(out, "Listening on http://%s\n", bound)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address")
	return cmd
}
