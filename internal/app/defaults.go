package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables consulted by GetDefaults and the CLI.
const (
	EnvConfigPath = "MV_CONFIG_PATH" // config file (default ~/.config/mv.toml)
	EnvHome       = "MV_HOME"        // base directory for data (default ~/.local/share/mv)
	EnvUser       = "MV_USER"        // acting user when --as is not given
	EnvPassword   = "MV_PASSWORD"    // acting user's password; prompted for when unset
)

// Defaults are the application paths used when no flag overrides them.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
}

// GetDefaults returns application default paths, checking environment variables first.
func GetDefaults() (*Defaults, error) {
	configPath, err := envOrHome(EnvConfigPath, ".config", "mv.toml")
	if err != nil {
		return nil, err
	}
	baseDir, err := envOrHome(EnvHome, ".local", "share", "mv")
	if err != nil {
		return nil, err
	}

	return &Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}

// envOrHome returns the value of env, or the path elems joined under the
// user's home directory when env is unset or empty.
func envOrHome(env string, elems ...string) (string, error) {
	if v := os.Getenv(env); v != "" {
		return v, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, elems...)...), nil
}
