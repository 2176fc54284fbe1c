package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/drmplay-cli/drmplay/color"
	"github.com/drmplay-cli/drmplay/icon"
	"github.com/drmplay-cli/drmplay/style"
	"github.com/drmplay-cli/drmplay/util"
	"github.com/drmplay-cli/drmplay/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

type clearTarget struct {
	name     string
	argLong  string
	argShort mo.Option[string]
	location func() string
}

var clearTargets = []clearTarget{
	{"history file", "history", mo.Some("s"), where.History},
	{"history database", "database", mo.Some("d"), where.Database},
	{"logs directory", "logs", mo.Some("l"), where.Logs},
	{"player sockets", "temp", mo.None[string](), where.Temp},
}

func init() {
	rootCmd.AddCommand(clearCmd)

	for _, target := range clearTargets {
		help := fmt.Sprintf("clear %s", target.name)
		if target.argShort.IsPresent() {
			clearCmd.Flags().BoolP(target.argLong, target.argShort.MustGet(), false, help)
		} else {
			clearCmd.Flags().Bool(target.argLong, false, help)
		}
	}
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete local history, logs and player sockets",
	Long: `Delete local history, logs and player sockets.
History kept by the redis backend is not touched, use "history remove" for it.`,
	Run: func(cmd *cobra.Command, args []string) {
		var anyCleared bool

		doClear := func(what string) bool {
			return lo.Must(cmd.Flags().GetBool(what))
		}

		for _, target := range clearTargets {
			if doClear(target.argLong) {
				anyCleared = true
				erase := util.PrintErasable(fmt.Sprintf("%s Clearing %s...", icon.Get(icon.Progress), target.name))
				err := util.Delete(target.location())
				erase()
				if err != nil && !errors.Is(err, fs.ErrNotExist) {
					handleErr(err)
				}
				fmt.Printf("%s %s cleared\n", style.Fg(color.Green)(icon.Get(icon.Success)), util.Capitalize(target.name))
			}
		}

		if !anyCleared {
			handleErr(cmd.Help())
		}
	},
}
