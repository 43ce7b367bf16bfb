package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/agentsync-labs/agentsync/internal/branding"
	"github.com/agentsync-labs/agentsync/internal/sharedroot"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Config keys.
const (
	KeySharedRoot       = "shared_root"
	KeyVersionedBackups = "backup.versioned"
)

// Keys lists the keys `config get|set` accepts.
var Keys = []string{KeySharedRoot, KeyVersionedBackups}

// Source records where the shared root path came from.
type Source string

const (
	SourceFlag       Source = "flag"
	SourceEnv        Source = "env"
	SourceConfig     Source = "config"
	SourceExecutable Source = "executable"
	SourceNone       Source = "none"
)

// Dir returns the path to the agentsync config directory (~/.agentsync/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.agentsync/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.SetDefault(KeyVersionedBackups, false)

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// VersionedBackups reports whether the versioned backup policy is enabled.
func VersionedBackups() bool {
	return viper.GetBool(KeyVersionedBackups)
}

// IsKnownKey reports whether key is one of Keys.
func IsKnownKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if !IsKnownKey(key) {
		return fmt.Errorf("unknown config key %q (known: %v)", key, Keys)
	}
	if err := EnsureDir(); err != nil {
		return err
	}

	switch key {
	case KeyVersionedBackups:
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		viper.Set(key, b)
	case KeySharedRoot:
		abs, err := filepath.Abs(value)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", value, err)
		}
		viper.Set(key, abs)
	}

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// ResolveSharedRoot picks the shared root path. The first non-empty source
// wins: the --shared-root flag, the AGENTSYNC_SHARED_ROOT variable, the
// shared_root config key, then the location of the running executable.
// An empty path with SourceNone means nothing was found.
func ResolveSharedRoot(flag string) (string, Source) {
	if flag != "" {
		return flag, SourceFlag
	}
	if env := os.Getenv(branding.EnvVar("SHARED_ROOT")); env != "" {
		return env, SourceEnv
	}
	if v := viper.GetString(KeySharedRoot); v != "" {
		return v, SourceConfig
	}
	if exe, err := os.Executable(); err == nil {
		if root, ok := sharedroot.FromExecutable(exe); ok {
			return root, SourceExecutable
		}
	}
	return "", SourceNone
}

func parseBool(s string) (bool, error) {
	switch s {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected true or false, got %q", s)
}
