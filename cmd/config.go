package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/drmplay-cli/drmplay/color"
	"github.com/drmplay-cli/drmplay/config"
	"github.com/drmplay-cli/drmplay/constant"
	"github.com/drmplay-cli/drmplay/filesystem"
	"github.com/drmplay-cli/drmplay/history"
	"github.com/drmplay-cli/drmplay/icon"
	"github.com/drmplay-cli/drmplay/key"
	"github.com/drmplay-cli/drmplay/player"
	"github.com/drmplay-cli/drmplay/style"
	"github.com/drmplay-cli/drmplay/where"
	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slices"
)

// configChoices restricts string keys to a fixed set of values.
var configChoices = map[string][]string{
	key.Player:         player.Available,
	key.HistoryBackend: history.Backends,
	key.IconsVariant:   icon.AvailableVariants(),
	key.LogsLevel:      {"panic", "fatal", "error", "warn", "info", "debug", "trace"},
}

func errUnknownKey(name string) error {
	closest := lo.MinBy(lo.Keys(config.Default), func(a, b string) bool {
		return levenshtein.Distance(name, a) < levenshtein.Distance(name, b)
	})
	return fmt.Errorf("unknown key %s, did you mean %s?", style.Fg(color.Red)(name), style.Fg(color.Yellow)(closest))
}

// lookupField resolves the key given as the first argument or with --key.
func lookupField(cmd *cobra.Command, args []string) (config.Field, error) {
	name := lo.Must(cmd.Flags().GetString("key"))
	if len(args) > 0 {
		name = args[0]
	}

	if name == "" {
		return config.Field{}, errors.New("key is required as an argument or with --key")
	}

	field, ok := config.Default[name]
	if !ok {
		return config.Field{}, errUnknownKey(name)
	}
	return field, nil
}

// parseValue converts raw into the type of the field's default.
func parseValue(field config.Field, raw []string) (any, error) {
	if len(raw) == 0 {
		return nil, errors.New("value is required as an argument or with --value")
	}

	switch field.Value.(type) {
	case string:
		if choices, ok := configChoices[field.Key]; ok && !lo.Contains(choices, raw[0]) {
			return nil, fmt.Errorf("invalid value %s for %s, available options are: %s",
				style.Fg(color.Red)(raw[0]), style.Fg(color.Purple)(field.Key), strings.Join(choices, ", "))
		}
		return raw[0], nil
	case int:
		n, err := strconv.Atoi(raw[0])
		if err != nil {
			return nil, fmt.Errorf("%s expects an integer, got %q", field.Key, raw[0])
		}
		return n, nil
	case bool:
		b, err := strconv.ParseBool(raw[0])
		if err != nil {
			return nil, fmt.Errorf("%s expects a boolean, got %q", field.Key, raw[0])
		}
		return b, nil
	case []string:
		return raw, nil
	default:
		return nil, fmt.Errorf("%s cannot be set from the command line", field.Key)
	}
}

func configPath() string {
	return filepath.Join(where.Config(), constant.App+".toml")
}

// writeConfig saves the in-memory configuration, creating the file when there is none yet.
func writeConfig() error {
	var notFound viper.ConfigFileNotFoundError
	err := viper.WriteConfig()
	if errors.As(err, &notFound) {
		return viper.SafeWriteConfig()
	}
	return err
}

func completionConfigKeys(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return lo.Keys(config.Default), cobra.ShellCompDirectiveNoFileComp
}

func success(cmd *cobra.Command, format string, args ...any) {
	cmd.Printf("%s %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), fmt.Sprintf(format, args...))
}

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change settings",
}

func init() {
	configCmd.AddCommand(configInfoCmd)
	configInfoCmd.Flags().StringSliceP("key", "k", nil, "Only describe these keys")
	configInfoCmd.Flags().BoolP("json", "j", false, "Print as JSON")
	lo.Must0(configInfoCmd.RegisterFlagCompletionFunc("key", completionConfigKeys))
}

var configInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Describe settings with their current and default values",
	Run: func(cmd *cobra.Command, args []string) {
		fields := lo.Values(config.Default)

		if names := lo.Must(cmd.Flags().GetStringSlice("key")); len(names) > 0 {
			fields = lo.Map(names, func(name string, _ int) config.Field {
				field, ok := config.Default[name]
				if !ok {
					handleErr(errUnknownKey(name))
				}
				return field
			})
		}

		slices.SortFunc(fields, func(a, b config.Field) int {
			return strings.Compare(a.Key, b.Key)
		})

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(lo.Map(fields, func(f config.Field, _ int) *config.Field {
				return &f
			})))
			return
		}

		cmd.Println(strings.Join(lo.Map(fields, func(f config.Field, _ int) string {
			return f.Pretty()
		}), "\n\n"))
	},
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configSetCmd.Flags().StringP("key", "k", "", "Key to set")
	configSetCmd.Flags().StringSliceP("value", "v", nil, "New value")
	lo.Must0(configSetCmd.RegisterFlagCompletionFunc("key", completionConfigKeys))
}

var configSetCmd = &cobra.Command{
	Use:               "set [key] [value]",
	Short:             "Change a setting and write it to the config file",
	Args:              cobra.MaximumNArgs(2),
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		field, err := lookupField(cmd, args)
		handleErr(err)

		raw := lo.Must(cmd.Flags().GetStringSlice("value"))
		if len(args) > 1 {
			raw = args[1:]
		}

		value, err := parseValue(field, raw)
		handleErr(err)

		viper.Set(field.Key, value)
		handleErr(writeConfig())

		success(cmd, "set %s to %s", style.Fg(color.Purple)(field.Key), style.Fg(color.Yellow)(fmt.Sprint(value)))
	},
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configGetCmd.Flags().StringP("key", "k", "", "Key to print")
	lo.Must0(configGetCmd.RegisterFlagCompletionFunc("key", completionConfigKeys))
}

var configGetCmd = &cobra.Command{
	Use:               "get [key]",
	Short:             "Print the current value of a setting",
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		field, err := lookupField(cmd, args)
		handleErr(err)

		cmd.Println(viper.Get(field.Key))
	},
}

func init() {
	configCmd.AddCommand(configWriteCmd)
	configWriteCmd.Flags().BoolP("force", "f", false, "Overwrite an existing config file")
}

var configWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Write the current configuration to the config file",
	Run: func(cmd *cobra.Command, args []string) {
		path := configPath()

		if lo.Must(cmd.Flags().GetBool("force")) {
			handleErr(filesystem.API().RemoveAll(path))
		}

		handleErr(viper.SafeWriteConfigAs(path))
		success(cmd, "wrote config to %s", path)
	},
}

func init() {
	configCmd.AddCommand(configDeleteCmd)
}

var configDeleteCmd = &cobra.Command{
	Use:     "delete",
	Short:   "Delete the config file",
	Aliases: []string{"remove"},
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(filesystem.API().Remove(configPath()))
		success(cmd, "deleted config")
	},
}

func init() {
	configCmd.AddCommand(configResetCmd)
	configResetCmd.Flags().StringP("key", "k", "", "Key to reset")
	configResetCmd.Flags().BoolP("all", "a", false, "Reset every key")
	configResetCmd.MarkFlagsMutuallyExclusive("key", "all")
	configResetCmd.MarkFlagsOneRequired("key", "all")
	lo.Must0(configResetCmd.RegisterFlagCompletionFunc("key", completionConfigKeys))
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore settings to their defaults",
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("all")) {
			for name, field := range config.Default {
				viper.Set(name, field.Value)
			}
			handleErr(writeConfig())
			success(cmd, "reset all config values")
			return
		}

		field, err := lookupField(cmd, nil)
		handleErr(err)

		viper.Set(field.Key, field.Value)
		handleErr(writeConfig())
		success(cmd, "reset %s to %s", style.Fg(color.Purple)(field.Key), style.Fg(color.Yellow)(fmt.Sprint(field.Value)))
	},
}
