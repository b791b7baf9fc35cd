// Package config loads NetLens configuration via Viper and builds the
// process logger from it.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load builds the Viper configuration: defaults, then an optional config
// file, then NETLENS_* environment variables. When no file exists on the
// default search path, defaults apply; an explicitly given configPath
// must exist and is an error when missing.
func Load(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("output.path", "topology.json")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "netlens.db")
	v.SetDefault("history.keep_runs", 100)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("netlens")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/netlens")
	}

	// Environment variable support: NETLENS_LOGGING_LEVEL=debug
	v.SetEnvPrefix("NETLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}
