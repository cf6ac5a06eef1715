// Package config loads shell settings from config.toml, a development .env
// file and ERGOSUM_* environment variables, in that order of precedence
// (later wins).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ergosum/internal/settings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	appDirName     = "ergosum"
	configFileName = "config.toml"
)

// overrides are read from the environment. Zero values mean "not set".
type overrides struct {
	LogLevel        string        `env:"ERGOSUM_LOG_LEVEL"`
	LogFormat       string        `env:"ERGOSUM_LOG_FORMAT"`
	UpdateFeed      string        `env:"ERGOSUM_UPDATE_FEED"`
	UpdateDisabled  bool          `env:"ERGOSUM_UPDATE_DISABLED"`
	DeepLinkDelay   time.Duration `env:"ERGOSUM_DEEPLINK_DELAY"`
	UpdateTimeoutMS int64         `env:"ERGOSUM_UPDATE_TIMEOUT_MS"`
}

// Loader reads settings from disk and the environment.
type Loader struct {
	// Path is the config.toml location. Missing files are not an error.
	Path string
	// DotEnvPath is an optional .env file. Missing files are not an error.
	DotEnvPath string
}

// NewLoader returns a loader for the platform config directory and a .env
// in the working directory.
func NewLoader() *Loader {
	return &Loader{
		Path:       DefaultPath(),
		DotEnvPath: ".env",
	}
}

// DefaultDir returns the platform-appropriate application directory.
func DefaultDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", appDirName)
	}
	return filepath.Join(configDir, appDirName)
}

// DefaultPath returns the default config.toml location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), configFileName)
}

// Load returns validated settings. On a config file error the defaults plus
// environment overrides are still returned alongside the error.
func (l *Loader) Load() (settings.ShellSettings, error) {
	s := settings.Defaults()

	fileErr := l.loadFile(&s)

	if l.DotEnvPath != "" {
		if err := godotenv.Load(l.DotEnvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("ignoring unreadable .env file", "path", l.DotEnvPath, "error", err)
		}
	}

	var o overrides
	if err := env.Load(&o, nil); err != nil {
		return settings.Validate(settings.WithDefaults(s)), fmt.Errorf("load environment overrides: %w", err)
	}
	apply(&s, o)

	return settings.Validate(settings.WithDefaults(s)), fileErr
}

func (l *Loader) loadFile(s *settings.ShellSettings) error {
	if l.Path == "" {
		return nil
	}
	data, err := os.ReadFile(l.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	var fromFile settings.ShellSettings
	if _, err := toml.Decode(string(data), &fromFile); err != nil {
		return fmt.Errorf("decode config file %s: %w", l.Path, err)
	}
	*s = settings.WithDefaults(fromFile)
	return nil
}

func apply(s *settings.ShellSettings, o overrides) {
	if o.LogLevel != "" {
		s.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		s.Log.Format = o.LogFormat
	}
	if o.UpdateFeed != "" {
		s.Update.FeedURL = o.UpdateFeed
	}
	if o.UpdateDisabled {
		s.Update.Disabled = true
	}
	if o.UpdateTimeoutMS > 0 {
		s.Update.TimeoutMS = o.UpdateTimeoutMS
	}
	if o.DeepLinkDelay > 0 {
		s.DeepLink.RouteDelayMS = o.DeepLinkDelay.Milliseconds()
	}
}

// Seed writes the default settings to Path when no config file exists yet,
// so users have a file to edit. It reports whether a file was written.
func (l *Loader) Seed() (bool, error) {
	if l.Path == "" {
		return false, nil
	}
	if _, err := os.Stat(l.Path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config file: %w", err)
	}
	if err := Save(l.Path, settings.Defaults()); err != nil {
		return false, err
	}
	return true, nil
}

// Save writes s to path as TOML, creating the directory if needed.
func Save(path string, s settings.ShellSettings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(s); err != nil {
		f.Close()
		return fmt.Errorf("encode config file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close config file: %w", err)
	}
	return nil
}
