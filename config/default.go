package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"github.com/drmplay-cli/drmplay/color"
	"github.com/drmplay-cli/drmplay/constant"
	"github.com/drmplay-cli/drmplay/key"
	"github.com/drmplay-cli/drmplay/style"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Field is a single registered configuration setting.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty renders the field with its current and default values for the terminal.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable that overrides this field.
func (f *Field) Env() string {
	return strings.ToUpper(constant.App + "_" + EnvKeyReplacer.Replace(f.Key))
}

// MarshalJSON includes the current value next to the default one.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
		Env         string `json:"env"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        reflect.TypeOf(f.Value).String(),
		Env:         f.Env(),
	})
}

// Default holds every registered field by key.
var Default = make(map[string]Field)

// EnvExposed lists the keys bound to environment variables.
var EnvExposed []string

func register(k string, v any, desc string) {
	if _, exists := Default[k]; exists {
		panic("duplicate config key: " + k)
	}
	Default[k] = Field{Key: k, Value: v, Description: desc}
	EnvExposed = append(EnvExposed, k)
}

func init() {
	register(key.Player, "mpv", "Media player to hand streams to.\nAvailable options are: mpv, iina (macOS only)")
	register(key.PlayerResume, true, "Seek to the stored position when a non-live stream becomes ready")
	register(key.PlayerResumeNotify, true, "Print a notice when playback was resumed")

	register(key.HistorySaveOnPlay, true, "Record streams in the history when playback starts")
	register(key.HistoryBackend, "file", "History storage backend.\nAvailable options are: file, sqlite, redis")
	register(key.HistorySqlitePath, "", "Database file for the sqlite backend.\nEmpty means history.db in the config directory")
	register(key.HistoryRedisAddr, "localhost:6379", "Redis address for the redis backend")
	register(key.HistoryRedisPassword, "", "Redis password for the redis backend")
	register(key.HistoryRedisDB, 0, "Redis database number for the redis backend")
	register(key.HistoryRedisPrefix, constant.App+":history:", "Prefix of the redis keys holding history entries")

	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")

	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, nerd, plain")
	register(key.CliColored, true, "Enable colored CLI output")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"purple":   style.Fg(color.Purple),
	"blue":     style.Fg(color.Blue),
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(color.Green)(b)
			}
			return style.Fg(color.Red)(b)
		case string:
			return style.Fg(color.Yellow)(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))
