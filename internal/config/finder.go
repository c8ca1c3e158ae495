package config

import (
	"os"
	"path/filepath"
)

// ConfigExtensions are tried in order for every config file location
var ConfigExtensions = []string{"yml", "yaml", "json", "toml"}

// FindLocalConfig finds the nearest .ncc config file by walking up directories
func FindLocalConfig(dir string) string {
	for {
		if path := findIn(dir, ".ncc."); path != "" {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}

// FindGlobalConfig finds config.<ext> in the global config directory
func FindGlobalConfig() string {
	dir := GlobalConfigDir()
	if dir == "" {
		return ""
	}

	return findIn(dir, "config.")
}

// GlobalConfigDir returns $APPDATA/ncc when APPDATA is set, else the user config directory
func GlobalConfigDir() string {
	if appdata := os.Getenv("APPDATA"); appdata != "" {
		return filepath.Join(appdata, "ncc")
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, "ncc")
}

func findIn(dir, prefix string) string {
	for _, ext := range ConfigExtensions {
		path := filepath.Join(dir, prefix+ext)

		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			return path
		}
	}

	return ""
}
