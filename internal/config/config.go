// Package config handles application configuration and setup
package config

import (
	"fmt"
	"strings"

	"github.com/retroenv/retrogolib/config"
	"github.com/retroenv/retrogolib/log"
)

// Settings contains the values of the optional config file.
type Settings struct {
	DecompilerCommand string `config:"decompiler.command,default=retdec-decompiler.py"`
	OutputDirectory   string `config:"output.directory,default=."`
	Workers           int    `config:"dependencies.workers,default=0"`
}

// CreateLogger creates a logger with appropriate settings
func CreateLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

// Load reads the settings from the config file. Without a file name the
// default settings are returned.
func Load(fileName string) (Settings, error) {
	var (
		document *config.Config
		err      error
	)
	if fileName == "" {
		document, err = config.Parse(strings.NewReader(""), config.Options{})
	} else {
		document, err = config.Open(fileName, config.Options{})
	}
	if err != nil {
		return Settings{}, fmt.Errorf("loading config file: %w", err)
	}

	var settings Settings
	if err := document.Unmarshal(&settings); err != nil {
		return Settings{}, fmt.Errorf("reading config values: %w", err)
	}
	if settings.Workers < 0 {
		return Settings{}, fmt.Errorf("invalid number of dependency workers %d", settings.Workers)
	}
	return settings, nil
}
