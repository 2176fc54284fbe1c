// Package where resolves the filesystem locations drmplay reads and writes.
package where

import (
	"os"
	"path/filepath"

	"github.com/drmplay-cli/drmplay/constant"
	"github.com/drmplay-cli/drmplay/filesystem"
	"github.com/samber/lo"
)

// EnvConfigPath overrides the default configuration directory.
const EnvConfigPath = "DRMPLAY_CONFIG_PATH"

func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config resolves the configuration directory.
// XDG_CONFIG_HOME (or the platform equivalent) is used unless DRMPLAY_CONFIG_PATH is set.
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return ensureDir(custom)
	}

	base := lo.Must(os.UserConfigDir())
	return ensureDir(filepath.Join(base, constant.App))
}

// Logs resolves the directory holding daily log files.
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}

// History resolves the JSON document used by the file history backend.
func History() string {
	return filepath.Join(Config(), "history.json")
}

// Database resolves the default database file used by the sqlite history backend.
func Database() string {
	return filepath.Join(Config(), "history.db")
}

// Temp resolves a scratch directory for player IPC sockets.
func Temp() string {
	return ensureDir(filepath.Join(os.TempDir(), constant.App))
}
