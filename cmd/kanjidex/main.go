package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/five82/kanjidex/internal/app"
	"github.com/five82/kanjidex/internal/kanji"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "kanjidex: %v\n", err)
		return 1
	}
	return 0
}

// cli holds the persistent flags shared by every command.
type cli struct {
	configPath string
	prefsPath  string
	offline    bool
}

func (c *cli) options() app.Options {
	return app.Options{
		ConfigPath: c.configPath,
		PrefsPath:  c.prefsPath,
		Version:    Version,
	}
}

// open builds the application for a one-shot command. The caller closes it.
func (c *cli) open() (*app.App, error) {
	return app.Open(c.options())
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "kanjidex",
		Short: "A personal Kanji study companion synced with WaniKani",
		Long: `kanjidex keeps your own mnemonics and images for every Kanji, grouped by
level, and marks the ones you have passed on WaniKani.

Run without arguments in a terminal to open the interactive browser.
When stdout is not a terminal the full list is printed instead.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if isTerminal(os.Stdout) && isTerminal(os.Stdin) {
				return app.Run(cmd.Context(), c.options())
			}
			return runList(cmd, c, 0, kanji.FilterAll)
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/kanjidex/config.toml)")
	root.PersistentFlags().StringVar(&c.prefsPath, "prefs", "", "preferences file (default $XDG_CONFIG_HOME/kanjidex/prefs.toml)")
	root.PersistentFlags().BoolVar(&c.offline, "offline", false, "do not contact WaniKani")

	root.AddCommand(
		newListCmd(c),
		newShowCmd(c),
		newEditCmd(c),
		newKeyCmd(c),
		newSyncCmd(c),
		newServeCmd(c),
		newLogsCmd(c),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kanjidex %s\n", Version)
		},
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
