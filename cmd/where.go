package cmd

import (
	"github.com/drmplay-cli/drmplay/color"
	"github.com/drmplay-cli/drmplay/open"
	"github.com/drmplay-cli/drmplay/style"
	"github.com/drmplay-cli/drmplay/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

type location struct {
	title  string
	flag   string
	short  string
	path   func() string
	hidden bool
}

var locations = []location{
	{title: "Config", flag: "config", short: "c", path: where.Config},
	{title: "History", flag: "history", short: "s", path: where.History},
	{title: "Database", flag: "database", short: "d", path: where.Database},
	{title: "Logs", flag: "logs", short: "l", path: where.Logs},
	{title: "Temp", flag: "temp", path: where.Temp, hidden: true},
}

func init() {
	rootCmd.AddCommand(whereCmd)

	for _, l := range locations {
		whereCmd.Flags().BoolP(l.flag, l.short, false, l.title+" path")
		if l.hidden {
			lo.Must0(whereCmd.Flags().MarkHidden(l.flag))
		}
	}
	whereCmd.MarkFlagsMutuallyExclusive(lo.Map(locations, func(l location, _ int) string { return l.flag })...)

	whereCmd.Flags().BoolP("open", "o", false, "Open the path with the default application instead of printing it")
}

var whereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show the paths drmplay reads and writes",
	Run: func(cmd *cobra.Command, args []string) {
		selected, ok := lo.Find(locations, func(l location) bool {
			return lo.Must(cmd.Flags().GetBool(l.flag))
		})

		if lo.Must(cmd.Flags().GetBool("open")) {
			handleErr(open.Start(lo.Ternary(ok, selected, locations[0]).path()))
			return
		}

		if ok {
			cmd.Println(selected.path())
			return
		}

		header := style.New().Bold(true).Foreground(color.HiPurple).Render
		visible := lo.Reject(locations, func(l location, _ int) bool { return l.hidden })
		for i, l := range visible {
			if i > 0 {
				cmd.Println()
			}
			cmd.Printf("%s %s\n", header(l.title+"?"), style.Fg(color.Yellow)("--"+l.flag))
			cmd.Println(l.path())
		}
	},
}
