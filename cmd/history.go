package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/drmplay-cli/drmplay/color"
	"github.com/drmplay-cli/drmplay/history"
	"github.com/drmplay-cli/drmplay/icon"
	"github.com/drmplay-cli/drmplay/style"
	"github.com/drmplay-cli/drmplay/util"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/muesli/reflow/truncate"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:     "history",
	Short:   "Inspect and edit the playback history",
	Aliases: []string{"h"},
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyListCmd.Flags().StringP("filter", "f", "", "Only show entries fuzzily matching this text")
	historyListCmd.Flags().BoolP("json", "j", false, "Print entries as JSON")
}

var historyListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List remembered streams, most recent first",
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		store, err := history.Open()
		handleErr(err)
		defer store.Close()

		entries, err := store.Entries()
		handleErr(err)

		entries = history.Filter(entries, lo.Must(cmd.Flags().GetString("filter")))

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			handleErr(encoder.Encode(lo.Ternary(entries == nil, []*history.Entry{}, entries)))
			return
		}

		if len(entries) == 0 {
			cmd.Println(style.Faint("No history yet"))
			return
		}

		width := util.TerminalWidth(80)
		for _, entry := range entries {
			cmd.Println(formatEntry(entry, width))
		}
		cmd.Println(style.Faint(util.Quantify(len(entries), "entry", "entries")))
	},
}

func init() {
	historyCmd.AddCommand(historyPositionCmd)
	historyPositionCmd.Flags().Int64P("set", "s", -1, "Store this position in milliseconds instead of printing it")
}

var historyPositionCmd = &cobra.Command{
	Use:   "position KEY",
	Short: "Print or set the stored position of a stream, in milliseconds",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, err := history.Open()
		handleErr(err)
		defer store.Close()

		if cmd.Flags().Changed("set") {
			position := lo.Must(cmd.Flags().GetInt64("set"))
			handleErr(store.SavePosition(args[0], position))
			cmd.Printf("%s set position of %s to %s\n",
				style.Fg(color.Green)(icon.Get(icon.Success)),
				style.Fg(color.Purple)(args[0]),
				style.Fg(color.Yellow)(strconv.FormatInt(max(position, 0), 10)),
			)
			return
		}

		cmd.Println(store.LoadPosition(args[0]))
	},
}

func init() {
	historyCmd.AddCommand(historyRemoveCmd)
}

var historyRemoveCmd = &cobra.Command{
	Use:     "remove KEY",
	Short:   "Forget a stream",
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, err := history.Open()
		handleErr(err)
		defer store.Close()

		handleErr(store.Remove(args[0]))
		cmd.Printf("%s removed %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), style.Fg(color.Purple)(args[0]))
	},
}

// formatEntry renders one history line fitted to width.
func formatEntry(entry *history.Entry, width int) string {
	position := lo.Ternary(entry.LastPositionMs > 0, formatPosition(entry.Position()), "-")
	head := fmt.Sprintf("%s  %s  ", style.Bold(entry.Title), style.Fg(color.Yellow)(position))
	tail := style.Faint(entry.UpdatedAt.Format(time.DateTime))

	return head + tail + "\n  " + style.Fg(color.Gray)(truncate.StringWithTail(entry.Key, uint(max(width-2, 10)), "…"))
}

// pickEntry asks which history entry to continue.
func pickEntry(store history.Store) (*history.Entry, error) {
	entries, err := store.Entries()
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, errors.New("history is empty, nothing to continue")
	}

	width := util.TerminalWidth(80)
	options := lo.Map(entries, func(entry *history.Entry, _ int) string {
		return entryOption(entry, width)
	})

	var index int
	err = survey.AskOne(&survey.Select{
		Message:  "Continue",
		Options:  options,
		PageSize: 10,
		Filter: func(filter string, _ string, i int) bool {
			return fuzzy.MatchFold(filter, entries[i].Title) || fuzzy.MatchFold(filter, entries[i].Key)
		},
	}, &index)
	if err != nil {
		return nil, err
	}

	return entries[index], nil
}

// entryOption renders an entry as a plain single line for the picker.
func entryOption(entry *history.Entry, width int) string {
	label := entry.Title
	if entry.LastPositionMs > 0 {
		label += " [" + formatPosition(entry.Position()) + "]"
	}
	label += "  " + entry.Key
	return truncate.StringWithTail(label, uint(max(width-4, 10)), "…")
}
