package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/drmplay-cli/drmplay/color"
	"github.com/drmplay-cli/drmplay/constant"
	"github.com/drmplay-cli/drmplay/icon"
	"github.com/drmplay-cli/drmplay/player"
	"github.com/drmplay-cli/drmplay/style"
)

// CheckDependencies exits when the binary the named player needs is not on PATH.
func CheckDependencies(name string) {
	binary := player.Binary(name)
	if _, err := exec.LookPath(binary); err != nil {
		fmt.Println(missingDependency(binary))
		os.Exit(1)
	}
}

func missingDependency(binary string) string {
	install := map[string]string{
		constant.Darwin:  "brew install " + binary,
		constant.Linux:   "sudo apt install " + binary,
		constant.Windows: "scoop install " + binary,
	}

	title := style.New().Bold(true).Foreground(color.HiRed).Render(icon.Get(icon.Fail) + " Missing dependency")
	body := fmt.Sprintf("%s was not found in your PATH.", style.Bold(binary))

	suggestion := ""
	if cmd, ok := install[runtime.GOOS]; ok {
		suggestion = "\nTo install it, try running:\n  " + style.New().Foreground(color.HiCyan).Bold(true).Render(cmd)
	}

	return style.Box(color.HiRed)(lipgloss.JoinVertical(lipgloss.Left, title, "", body, suggestion))
}
