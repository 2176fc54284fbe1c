// Package log wraps logrus with a file sink under where.Logs().
//
// Logging is opt-in: unless logs.write is enabled every call is discarded.
package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/drmplay-cli/drmplay/filesystem"
	"github.com/drmplay-cli/drmplay/key"
	"github.com/drmplay-cli/drmplay/where"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var (
	enabled bool
	logger  = logrus.New()
)

func init() {
	logger.SetOutput(io.Discard)
}

// Setup opens today's log file and applies the configured level and formatter.
func Setup() error {
	enabled = viper.GetBool(key.LogsWrite)
	if !enabled {
		return nil
	}

	dir := where.Logs()
	if dir == "" {
		return errors.New("log directory path is empty")
	}

	path := filepath.Join(dir, time.Now().Format("2006-01-02")+".log")
	f, err := filesystem.API().OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logger.SetOutput(f)

	if viper.GetBool(key.LogsJson) {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(viper.GetString(key.LogsLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return nil
}

// Enabled reports whether log output is being written.
func Enabled() bool {
	return enabled
}

// WithFields returns an entry carrying structured context. It is safe to use while logging is disabled.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return logger.WithFields(fields)
}

func Error(args ...any) {
	if enabled {
		logger.Error(args...)
	}
}

func Errorf(format string, args ...any) {
	if enabled {
		logger.Errorf(format, args...)
	}
}

func Warn(args ...any) {
	if enabled {
		logger.Warn(args...)
	}
}

func Warnf(format string, args ...any) {
	if enabled {
		logger.Warnf(format, args...)
	}
}

func Info(args ...any) {
	if enabled {
		logger.Info(args...)
	}
}

func Infof(format string, args ...any) {
	if enabled {
		logger.Infof(format, args...)
	}
}

func Debugf(format string, args ...any) {
	if enabled {
		logger.Debugf(format, args...)
	}
}
