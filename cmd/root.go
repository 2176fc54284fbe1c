// Package cmd implements the drmplay command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/drmplay-cli/drmplay/color"
	"github.com/drmplay-cli/drmplay/constant"
	"github.com/drmplay-cli/drmplay/history"
	"github.com/drmplay-cli/drmplay/icon"
	"github.com/drmplay-cli/drmplay/key"
	"github.com/drmplay-cli/drmplay/log"
	"github.com/drmplay-cli/drmplay/playback"
	"github.com/drmplay-cli/drmplay/player"
	"github.com/drmplay-cli/drmplay/style"
	"github.com/drmplay-cli/drmplay/where"
	cc "github.com/ivanpirog/coloredcobra"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("icons", "I", "", "Icon variant (emoji, nerd, plain)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("icons", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.IconsVariant, rootCmd.PersistentFlags().Lookup("icons")))

	rootCmd.PersistentFlags().StringP("backend", "B", "", "History backend (file, sqlite, redis)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("backend", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return history.Backends, cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.HistoryBackend, rootCmd.PersistentFlags().Lookup("backend")))

	rootCmd.Flags().BoolP("write-history", "H", true, "Record the stream in the history")
	lo.Must0(viper.BindPFlag(key.HistorySaveOnPlay, rootCmd.Flags().Lookup("write-history")))

	rootCmd.Flags().StringP("player", "p", "", "Player to hand the stream to (mpv, iina)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("player", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return player.Available, cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.Player, rootCmd.Flags().Lookup("player")))

	rootCmd.Flags().StringP("url", "u", "", "Stream descriptor to play")
	rootCmd.Flags().StringP("title", "t", "", "Override the title derived from the URL")
	rootCmd.Flags().BoolP("continue", "c", false, "Pick a stream from the history and continue it")
	rootCmd.Flags().Bool("no-resume", false, "Start from the beginning even if a position is stored")

	rootCmd.MarkFlagsMutuallyExclusive("url", "continue")

	go player.RemoveStaleSockets(where.Temp())
}

var rootCmd = &cobra.Command{
	Use:   constant.App + " [descriptor]",
	Short: "Play HTTP, header-protected and DRM streams from a single descriptor",
	Long: style.New().Bold(true).Foreground(color.HiPurple).Render(constant.App) + "\n" +
		style.Italic("  Play streams described as URL|Header=value|drmScheme=...|drmLicense=...\n  and pick up where you left off."),
	Example: `  drmplay 'https://cdn.example/movie.m3u8|Referer=https%3A%2F%2Fexample.com'
  drmplay --url 'https://cdn.example/live.mpd|drmScheme=clearkey|drmLicense=https%3A%2F%2Fkeys.example'
  drmplay --continue`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}

		handleErr(play(cmd, args))
	},
}

func play(cmd *cobra.Command, args []string) error {
	store, err := history.Open()
	if err != nil {
		return err
	}
	defer store.Close()

	raw := lo.Must(cmd.Flags().GetString("url"))
	if len(args) > 0 {
		if raw != "" {
			return errors.New("pass the descriptor either as an argument or with --url, not both")
		}
		raw = args[0]
	}

	if lo.Must(cmd.Flags().GetBool("continue")) {
		entry, err := pickEntry(store)
		if err != nil {
			return err
		}
		raw = lo.Ternary(entry.Descriptor != "", entry.Descriptor, entry.Key)
	}

	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: no descriptor given", playback.ErrLoadFailed)
	}

	name := viper.GetString(key.Player)
	CheckDependencies(name)

	p, err := player.New(name)
	if err != nil {
		return err
	}

	opts := playback.DefaultOptions(raw)
	opts.Player = p
	opts.Store = store
	opts.Title = lo.Must(cmd.Flags().GetString("title"))
	if lo.Must(cmd.Flags().GetBool("no-resume")) {
		opts.Resume = false
	}
	if viper.GetBool(key.PlayerResumeNotify) {
		opts.OnResume = func(title string, position time.Duration) {
			cmd.Printf("%s Resumed %s at %s\n",
				style.Fg(color.Green)(icon.Get(icon.Resume)),
				style.Bold(title),
				style.Fg(color.Yellow)(formatPosition(position)),
			)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Printf("%s Playing with %s, press Ctrl+C to stop\n", style.Fg(color.Cyan)(icon.Get(icon.Play)), name)
	return playback.Run(ctx, opts)
}

// Execute runs the command line.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	rootCmd.SetOut(os.Stdout)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", style.Fg(color.Red)(icon.Get(icon.Fail)), strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}

// formatPosition renders a position as h:mm:ss or m:ss.
func formatPosition(position time.Duration) string {
	position = position.Truncate(time.Second)
	hours := int(position.Hours())
	minutes := int(position.Minutes()) % 60
	seconds := int(position.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
