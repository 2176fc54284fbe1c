package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/drmplay-cli/drmplay/color"
	"github.com/drmplay-cli/drmplay/descriptor"
	"github.com/drmplay-cli/drmplay/icon"
	"github.com/drmplay-cli/drmplay/playback"
	"github.com/drmplay-cli/drmplay/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().BoolP("json", "j", false, "Print the parsed configuration as JSON")
}

var parseCmd = &cobra.Command{
	Use:   "parse DESCRIPTOR",
	Short: "Show how a descriptor is understood without playing it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(printParsed(cmd.OutOrStdout(), args[0], lo.Must(cmd.Flags().GetBool("json"))))
	},
}

type parseOutput struct {
	Config     descriptor.StreamConfig `json:"config"`
	Title      string                  `json:"title"`
	Canonical  string                  `json:"canonical"`
	Diagnostic []string                `json:"diagnostics"`
}

func printParsed(w io.Writer, raw string, asJSON bool) error {
	cfg, err := descriptor.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", playback.ErrLoadFailed, err)
	}

	diagnostics := lo.Map(descriptor.Diagnose(raw), func(err error, _ int) string {
		return err.Error()
	})

	if asJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(parseOutput{
			Config:     cfg,
			Title:      cfg.Title(),
			Canonical:  cfg.Descriptor(),
			Diagnostic: lo.Ternary(diagnostics == nil, []string{}, diagnostics),
		})
	}

	label := func(s string) string { return style.Fg(color.Blue)(fmt.Sprintf("%-9s", s)) }

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", label("URL"), cfg.URL)

	title := cfg.Title()
	if title == descriptor.LiveStreamTitle {
		title = style.Live(title)
	}
	fmt.Fprintf(&b, "%s %s\n", label("Title"), title)

	if len(cfg.Headers) == 0 {
		fmt.Fprintf(&b, "%s %s\n", label("Headers"), style.Faint("none"))
	} else {
		fmt.Fprintf(&b, "%s\n", label("Headers"))
		for _, name := range cfg.Headers.Names() {
			fmt.Fprintf(&b, "  %s: %s\n", style.Fg(color.Purple)(name), cfg.Headers[name])
		}
	}

	if drm, ok := cfg.DRMConfig().Get(); ok {
		fmt.Fprintf(&b, "%s %s %s\n", label("DRM"), style.Fg(color.Yellow)(drm.Type.String()), drm.LicenseURI)
	} else {
		fmt.Fprintf(&b, "%s %s\n", label("DRM"), style.Faint(cfg.DRMType.String()))
	}

	for _, diagnostic := range diagnostics {
		fmt.Fprintf(&b, "%s %s\n", style.Fg(color.Yellow)(icon.Get(icon.Warn)), diagnostic)
	}

	_, err = io.WriteString(w, b.String())
	return err
}
