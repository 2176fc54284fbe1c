// Package icon renders feedback symbols in the variant selected by icons.variant.
package icon

import (
	"github.com/drmplay-cli/drmplay/key"
	"github.com/spf13/viper"
)

const (
	emoji = "emoji"
	nerd  = "nerd"
	plain = "plain"
)

// AvailableVariants lists the supported icon styles.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain}
}

// Icon identifies a symbol in the registry.
type Icon int

const (
	Success Icon = iota
	Fail
	Warn
	Progress
	Play
	Resume
	Live
)

type iconDef struct {
	emoji string
	nerd  string
	plain string
}

func (d iconDef) get() string {
	switch viper.GetString(key.IconsVariant) {
	case emoji:
		return d.emoji
	case nerd:
		return d.nerd
	case plain:
		return d.plain
	default:
		return ""
	}
}

var icons = map[Icon]iconDef{
	Success:  {emoji: "🎉", nerd: "", plain: "✓"},
	Fail:     {emoji: "💀", nerd: "", plain: "✖"},
	Warn:     {emoji: "⚠️", nerd: "", plain: "!"},
	Progress: {emoji: "⏳", nerd: "", plain: "…"},
	Play:     {emoji: "▶️", nerd: "", plain: ">"},
	Resume:   {emoji: "⏩", nerd: "", plain: ">>"},
	Live:     {emoji: "🔴", nerd: "", plain: "*"},
}

// Get returns the rendered symbol for i, or an empty string for an unknown variant.
func Get(i Icon) string {
	return icons[i].get()
}
