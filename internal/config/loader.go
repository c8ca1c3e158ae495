package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Loader handles configuration loading from various sources
type Loader struct {
	options *OptionRegistry

	// directory the local config search starts from, the working directory when empty
	dir string
}

// NewLoader creates a new configuration loader
func NewLoader(options *OptionRegistry) *Loader {
	return &Loader{options: options}
}

// WithDir starts the local config search from dir
func (l *Loader) WithDir(dir string) *Loader {
	l.dir = dir
	return l
}

// Load layers defaults, the global config, the local config and the command flags
func (l *Loader) Load(cmd *cobra.Command) (*Config, error) {
	l.options.SetDefaults()

	if err := l.loadGlobalConfig(); err != nil {
		return nil, err
	}

	if err := l.loadLocalConfig(); err != nil {
		return nil, err
	}

	if err := l.options.BindFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	return Load()
}

// loadGlobalConfig loads the user wide configuration
func (l *Loader) loadGlobalConfig() error {
	path := FindGlobalConfig()
	if path == "" {
		return nil
	}

	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}

	return nil
}

// loadLocalConfig merges the nearest project configuration over the global one
func (l *Loader) loadLocalConfig() error {
	dir := l.dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil
		}

		dir = wd
	}

	path := FindLocalConfig(dir)
	if path == "" {
		return nil
	}

	viper.SetConfigFile(path)
	if err := viper.MergeInConfig(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}

	return nil
}
