package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/five82/kanjidex/internal/app"
	"github.com/five82/kanjidex/internal/imageimport"
	"github.com/five82/kanjidex/internal/kanji"
	"github.com/five82/kanjidex/internal/notify"
	"github.com/five82/kanjidex/internal/progress"
)

func newListCmd(c *cli) *cobra.Command {
	var (
		level   int
		learned bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List kanji grouped by level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := kanji.FilterAll
			if learned {
				mode = kanji.FilterLearned
			}
			return runList(cmd, c, level, mode)
		},
	}
	cmd.Flags().IntVar(&level, "level", 0, "only this level")
	cmd.Flags().BoolVar(&learned, "learned", false, "only kanji passed on WaniKani")
	return cmd
}

func runList(cmd *cobra.Command, c *cli, level int, mode kanji.FilterMode) error {
	a, err := c.open()
	if err != nil {
		return err
	}
	defer a.Close()

	if mode == kanji.FilterLearned {
		c.syncQuietly(cmd, a)
	}

	var groups []kanji.LevelGroup
	if level > 0 {
		group, ok := a.Group(level, mode)
		if !ok {
			return fmt.Errorf("level %d not found", level)
		}
		groups = []kanji.LevelGroup{group}
	} else {
		groups = a.Groups(mode)
	}

	printGroups(cmd.OutOrStdout(), groups, a.Progress())
	return nil
}

// syncQuietly refreshes progress when a key is stored. Failures surface
// through the notification log, which is printed to stderr.
func (c *cli) syncQuietly(cmd *cobra.Command, a *app.App) {
	if c.offline {
		return
	}
	if _, err := a.SyncIfConfigured(cmd.Context()); err != nil {
		printNotifications(cmd.ErrOrStderr(), a.Notifications())
	}
}

func printGroups(w io.Writer, groups []kanji.LevelGroup, snap progress.Snapshot) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "No kanji to show.")
		return
	}
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Level %d\n", g.Level)
		if len(g.Records) == 0 {
			fmt.Fprintln(w, "  No Kanji available for this level.")
			continue
		}
		for _, rec := range g.Records {
			fmt.Fprintf(w, "  %-6s %s  %-14s %-8s%s\n", rec.ID, rec.Character, rec.Meaning, rec.Reading, recordMarks(rec, snap))
		}
	}
}

// recordMarks summarizes a record's stage and attachments in one column.
func recordMarks(rec kanji.Record, snap progress.Snapshot) string {
	var marks []string
	if d, ok := snap.DetailFor(rec.Character); ok {
		marks = append(marks, d.StageName)
	}
	if rec.Mnemonic != "" {
		marks = append(marks, "mnemonic")
	}
	if rec.HasImage() {
		marks = append(marks, "image")
	}
	if len(marks) == 0 {
		return ""
	}
	return "  [" + strings.Join(marks, ", ") + "]"
}

func newShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show LEVEL CHARACTER",
		Short: "Show one kanji with its mnemonic, image and WaniKani progress",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := strconv.Atoi(args[0])
			if err != nil || level <= 0 {
				return fmt.Errorf("invalid level %q", args[0])
			}

			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()

			rec, ok := a.Find(level, args[1])
			if !ok {
				return fmt.Errorf("kanji %s not found in level %d", args[1], level)
			}
			c.syncQuietly(cmd, a)
			printRecord(cmd.OutOrStdout(), rec, a.Progress())
			return nil
		},
	}
}

func printRecord(w io.Writer, rec kanji.Record, snap progress.Snapshot) {
	fmt.Fprintf(w, "%s  %s  (level %d, id %s)\n", rec.Character, rec.Meaning, rec.Level, rec.ID)
	if len(rec.AlternativeMeanings) > 0 {
		fmt.Fprintf(w, "Alternative: %s\n", strings.Join(rec.AlternativeMeanings, ", "))
	}
	printField(w, "Reading", rec.Reading)
	printField(w, "On'yomi", strings.Join(rec.Onyomi, ", "))
	printField(w, "Kun'yomi", strings.Join(rec.Kunyomi, ", "))
	printField(w, "Nanori", strings.Join(rec.Nanori, ", "))

	stage, passed := "N/A", "N/A"
	if d, ok := snap.DetailFor(rec.Character); ok {
		stage = d.StageName
		if !d.PassedAt.IsZero() {
			passed = humanize.Time(d.PassedAt)
		}
	}
	printField(w, "SRS Stage", stage)
	printField(w, "Passed", passed)

	fmt.Fprintln(w)
	switch {
	case rec.Mnemonic != "":
		fmt.Fprintf(w, "Mnemonic:\n%s\n", rec.Mnemonic)
	case rec.WaniKaniMnemonic != "":
		fmt.Fprintf(w, "Mnemonic (WaniKani):\n%s\n", rec.WaniKaniMnemonic)
	default:
		fmt.Fprintln(w, "No mnemonic yet.")
	}

	if mime, size, ok := imageimport.Describe(rec.Image); ok {
		fmt.Fprintf(w, "Image: %s, %s\n", mime, humanize.Bytes(uint64(size)))
	}
}

func printField(w io.Writer, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(w, "%-11s %s\n", label+":", value)
}

func newEditCmd(c *cli) *cobra.Command {
	var (
		mnemonic   string
		imagePath  string
		clearImage bool
	)
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Set the mnemonic or image of a kanji",
		Long: `Set the mnemonic or image of a kanji by id (see "kanjidex list").

An empty --mnemonic clears it. --image attaches an image file; files that
are not images are ignored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			setMnemonic := cmd.Flags().Changed("mnemonic")
			if !setMnemonic && imagePath == "" && !clearImage {
				return errors.New("nothing to change: pass --mnemonic, --image or --clear-image")
			}
			if imagePath != "" && clearImage {
				return errors.New("--image and --clear-image are mutually exclusive")
			}

			a, err := c.open()
			if err != nil {
				return err
			}
			defer a.Close()

			changed := false
			if setMnemonic || clearImage {
				var changes kanji.Changes
				if setMnemonic {
					changes.Mnemonic = &mnemonic
				}
				if clearImage {
					none := ""
					changes.Image = &none
				}
				ok, err := a.Update(id, changes)
				if err != nil {
					return editError(id, err)
				}
				changed = changed || ok
			}
			if imagePath != "" {
				ok, err := a.ImportImageFile(id, imagePath)
				if err != nil {
					return editError(id, err)
				}
				changed = changed || ok
			}

			out := cmd.OutOrStdout()
			if !changed {
				fmt.Fprintln(out, "No changes.")
				return nil
			}
			printNotifications(out, a.Notifications())
			return nil
		},
	}
	cmd.Flags().StringVar(&mnemonic, "mnemonic", "", "mnemonic text")
	cmd.Flags().StringVar(&imagePath, "image", "", "path to an image file")
	cmd.Flags().BoolVar(&clearImage, "clear-image", false, "remove the attached image")
	return cmd
}

func editError(id string, err error) error {
	switch {
	case errors.Is(err, kanji.ErrUnknownRecord):
		return fmt.Errorf("kanji %s not found", id)
	case errors.Is(err, imageimport.ErrNotImage):
		return errors.New("not an image file; nothing changed")
	default:
		return err
	}
}

// printNotifications writes the log oldest first, the order the events
// happened in.
func printNotifications(w io.Writer, notes []notify.Notification) {
	for i := len(notes) - 1; i >= 0; i-- {
		marker := "✓"
		if notes[i].Severity == notify.SeverityError {
			marker = "✗"
		}
		fmt.Fprintf(w, "%s %s\n", marker, notes[i].Message)
	}
}
