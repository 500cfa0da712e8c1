package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/five82/kanjidex/internal/config"
	"github.com/five82/kanjidex/internal/logging"
	"github.com/five82/kanjidex/internal/logtail"
)

// newLogsCmd prints the tail of the log file. It reads the config only, so
// it works while the TUI holds the database lock.
func newLogsCmd(c *cli) *cobra.Command {
	var (
		lines int
		level string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print recent log entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.LogFile == "" {
				return errors.New("no log file configured")
			}

			raw, err := logtail.Read(cfg.LogFile, lines)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			rendered := logtail.Render(raw, logging.ParseLevel(level))
			if len(rendered) == 0 {
				fmt.Fprintln(out, "No log entries.")
				return nil
			}
			for _, line := range rendered {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 200, "number of lines to read (0 for all)")
	cmd.Flags().StringVar(&level, "level", "debug", "minimum level (debug, info, warn, error)")
	return cmd
}
