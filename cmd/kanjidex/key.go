package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/five82/kanjidex/internal/credential"
)

func newKeyCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the WaniKani API key",
	}
	cmd.AddCommand(newKeySetCmd(c), newKeyShowCmd(c), newKeyClearCmd(c))
	return cmd
}

func newKeySetCmd(c *cli) *cobra.Command {
	var value string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the WaniKani API v2 personal access token and sync",
		Long: `Store the WaniKani API v2 personal access token and sync right away.

Without --key the token is read from the terminal without echo, or from the
first line of stdin when it is not a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("key") {
				read, err := promptKey(cmd)
				if err != nil {
					return err
				}
				value = read
			}
			value = strings.TrimSpace(value)
			if value == "" {
				return errors.New(credential.BlankMessage)
			}

			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()

			if c.offline {
				if err := a.StoreCredential(value); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "API key saved.")
				return nil
			}

			if err := a.SaveCredential(cmd.Context(), value); err != nil {
				if errors.Is(err, credential.ErrBlank) {
					return errors.New(credential.BlankMessage)
				}
				return fmt.Errorf("api key saved; sync failed: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "API key saved.")
			printProfile(out, a.Progress())
			return nil
		},
	}
	cmd.Flags().StringVar(&value, "key", "", "token value (prompted when omitted)")
	return cmd
}

// promptKey reads the token without echo on a terminal, or one line of
// piped input otherwise.
func promptKey(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "WaniKani API key: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read api key: %w", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read api key: %w", err)
	}
	return line, nil
}

func newKeyShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the stored API key, masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()

			key, err := a.Credential()
			if err != nil {
				return err
			}
			if key == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No API key stored.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), credential.Mask(key))
			return nil
		},
	}
}

func newKeyClearCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.ClearCredential(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key removed.")
			return nil
		},
	}
}
