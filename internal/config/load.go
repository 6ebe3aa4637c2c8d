package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

var (
	ErrConfigNotFound = errors.New("config not found")
	ErrConfigExists   = errors.New("config already exists")
)

var logger = log.WithPrefix("config")

func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	return filepath.Join(configDir, "webtranscriber", "config.toml"), nil
}

// ResolvePath returns override when set, the default location otherwise.
func ResolvePath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	return GetConfigPath()
}

// LoadFile decodes path over the defaults, so keys missing from the file
// keep their default values.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s (run webtranscriber config init)", ErrConfigNotFound, path)
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
	}

	config := DefaultConfig()
	meta, err := toml.DecodeFile(path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		logger.Warn("unknown keys ignored", "path", path, "keys", strings.Join(keys, ", "))
	}

	config.applyThreadsDefault()

	logger.Debug("loaded", "path", path)
	return config, nil
}

// Load reads the config at path, falling back to defaults when the file does
// not exist. An empty path means the default location.
func Load(path string) (*Config, error) {
	path, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}

	config, err := LoadFile(path)
	if errors.Is(err, ErrConfigNotFound) {
		logger.Debug("no config file, using defaults", "path", path)
		config = DefaultConfig()
		config.applyThreadsDefault()
		return config, nil
	}
	return config, err
}

// WriteDefault writes the commented default config to path.
func WriteDefault(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Save writes config to path. Comments from the template are not kept.
func Save(path string, config *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(config); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Encode writes config as TOML, secrets masked.
func Encode(w io.Writer, config *Config) error {
	masked := *config
	if masked.Server.OpenAI.APIKey != "" {
		masked.Server.OpenAI.APIKey = "********"
	}
	return toml.NewEncoder(w).Encode(masked)
}

// LoadDotEnv loads .env from the working directory when present. Variables
// already set in the environment win.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load .env: %w", err)
	}
	logger.Debug("loaded .env")
	return nil
}

// applyThreadsDefault sets default threads for local transcription if not explicitly set
func (c *Config) applyThreadsDefault() {
	if c.Server.WhisperCpp.Threads == 0 {
		threads := runtime.NumCPU() - 1
		if threads < 1 {
			threads = 1
		}
		c.Server.WhisperCpp.Threads = threads
	}
}
