// Package util holds small terminal and filesystem helpers shared by the CLI.
package util

import (
	"fmt"
	"os"
	"strings"

	"github.com/drmplay-cli/drmplay/filesystem"
	"golang.org/x/term"
)

// Quantify returns "1 entry" / "2 entries" style counts.
func Quantify(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}

// Capitalize upper-cases the first byte of s.
func Capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// TerminalWidth returns the width of stdout, or fallback when it is not a terminal.
func TerminalWidth(fallback int) int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}

// PrintErasable prints msg on the current line and returns a function that clears it.
func PrintErasable(msg string) (eraser func()) {
	fmt.Fprintf(os.Stdout, "\r%s", msg)
	return func() {
		fmt.Fprintf(os.Stdout, "\r%s\r", strings.Repeat(" ", len(msg)))
	}
}

// Delete removes a file or a whole directory through the filesystem backend.
func Delete(path string) error {
	fs := filesystem.API()
	stat, err := fs.Stat(path)
	if err != nil {
		return err
	}

	if stat.IsDir() {
		return fs.RemoveAll(path)
	}
	return fs.Remove(path)
}
