// Package style composes lipgloss styles into small rendering functions.
package style

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/drmplay-cli/drmplay/color"
)

// New returns an empty style.
func New() lipgloss.Style {
	return lipgloss.NewStyle()
}

// Fg returns a renderer applying the foreground color c.
func Fg(c lipgloss.Color) func(string) string {
	return func(s string) string { return New().Foreground(c).Render(s) }
}

var (
	Faint  = func(s string) string { return New().Faint(true).Render(s) }
	Bold   = func(s string) string { return New().Bold(true).Render(s) }
	Italic = func(s string) string { return New().Italic(true).Render(s) }
)

// Tag renders s as a padded badge.
func Tag(fg, bg lipgloss.Color) func(string) string {
	return func(s string) string { return New().Foreground(fg).Background(bg).Padding(0, 1).Render(s) }
}

// Box frames s with a rounded border in the given color.
func Box(border lipgloss.Color) func(string) string {
	return func(s string) string {
		return New().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(1, 2).
			Margin(1, 0).
			Render(s)
	}
}

// Live marks streams without a seekable timeline.
var Live = Tag(color.New("230"), color.Red)
