package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/drmplay-cli/drmplay/color"
	"github.com/drmplay-cli/drmplay/descriptor"
	"github.com/drmplay-cli/drmplay/icon"
	"github.com/drmplay-cli/drmplay/network"
	"github.com/drmplay-cli/drmplay/playback"
	"github.com/drmplay-cli/drmplay/style"
	"github.com/drmplay-cli/drmplay/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().BoolP("json", "j", false, "Print the result as JSON")
}

var probeCmd = &cobra.Command{
	Use:   "probe DESCRIPTOR",
	Short: "Request a stream with its headers and report how the server answers",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := descriptor.Parse(args[0])
		if err != nil {
			handleErr(fmt.Errorf("%w: %w", playback.ErrLoadFailed, err))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		erase := util.PrintErasable(fmt.Sprintf("%s Probing %s...", icon.Get(icon.Progress), cfg.Title()))
		result, err := network.Probe(ctx, cfg)
		erase()
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			handleErr(encoder.Encode(result))
			return
		}

		status := style.Fg(color.Green)(fmt.Sprintf("%s %d", icon.Get(icon.Success), result.StatusCode))
		if !result.OK() {
			status = style.Fg(color.Red)(fmt.Sprintf("%s %d", icon.Get(icon.Fail), result.StatusCode))
		}
		cmd.Printf("%s %s\n", status, style.Faint(result.ContentType))

		if result.Manifest != network.ManifestNone {
			kind := style.Fg(color.Purple)(result.Manifest)
			switch live, ok := result.Live.Get(); {
			case !ok:
				cmd.Printf("%s manifest\n", kind)
			case live:
				cmd.Printf("%s manifest %s\n", kind, style.Live(icon.Get(icon.Live)+" live"))
			default:
				cmd.Printf("%s manifest, resumable\n", kind)
			}
		}

		if _, ok := cfg.DRMConfig().Get(); ok {
			cmd.Printf("%s %s protected, license at %s\n", style.Fg(color.Yellow)(icon.Get(icon.Warn)), cfg.DRMType, cfg.DRMLicenseURI)
		}
	},
}
