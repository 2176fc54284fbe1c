// Package config owns the viper configuration engine: defaults, environment bindings and the config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/drmplay-cli/drmplay/constant"
	"github.com/drmplay-cli/drmplay/filesystem"
	"github.com/drmplay-cli/drmplay/where"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvKeyReplacer maps configuration keys onto environment variable names.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Setup initializes defaults, environment bindings and reads the config file if there is one.
func Setup() error {
	if err := loadDotEnv(filepath.Join(where.Config(), ".env")); err != nil {
		return err
	}

	viper.SetConfigName(constant.App)
	viper.SetConfigType("toml")
	viper.SetFs(filesystem.API())
	viper.AddConfigPath(where.Config())

	viper.SetEnvPrefix(constant.App)
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	for _, env := range EnvExposed {
		viper.MustBindEnv(env)
	}

	viper.SetTypeByDefaultValue(true)
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}

	return nil
}

// loadDotEnv exports variables from a .env file without overriding the process environment.
func loadDotEnv(path string) error {
	f, err := filesystem.API().Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	vars, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for name, value := range vars {
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, value); err != nil {
			return err
		}
	}

	return nil
}
