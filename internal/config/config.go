// Package config loads and resolves go-avd configuration.
//
// Configuration is resolved once at process start: a TOML file (optional),
// then environment overrides, then tool discovery. The resulting Config is
// passed explicitly to every component; nothing reads the environment later.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Tools locates the Android SDK executables.
type Tools struct {
	SDKRoot  string `toml:"sdk_root"` // ANDROID_SDK_ROOT
	ADB      string `toml:"adb"`      // explicit adb path, overrides discovery
	Emulator string `toml:"emulator"` // explicit emulator path, overrides discovery
}

// Server contains HTTP listener settings.
type Server struct {
	Bind         string   `toml:"bind"`
	PublicURL    string   `toml:"public_url"` // base for feed_url in responses
	AllowOrigins []string `toml:"allow_origins"`
}

// Emulator contains launch and polling settings. Durations are in seconds
// unless the field name says otherwise.
type Emulator struct {
	BootTimeout          int    `toml:"boot_timeout"`
	VideoTimeout         int    `toml:"video_timeout"`
	CaptureTimeout       int    `toml:"capture_timeout"`
	PollInterval         int    `toml:"poll_interval"`
	StreamIntervalMillis int    `toml:"stream_interval_ms"`
	BrowserURL           string `toml:"browser_url"`
	LockDir              string `toml:"lock_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text, json, auto
}

// Config encapsulates all configuration values for go-avd.
type Config struct {
	Tools    Tools    `toml:"tools"`
	Server   Server   `toml:"server"`
	Emulator Emulator `toml:"emulator"`
	Logging  Logging  `toml:"logging"`
}

const defaultConfigPath = "~/.config/go-avd/config.toml"

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads the configuration file at path, applies environment overrides,
// resolves tool locations and validates the result. An empty path means the
// default location, which may be absent.
func Load(path string) (*Config, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}
	if path != "" && !exists {
		return nil, fmt.Errorf("config file %s: %w", resolved, fs.ErrNotExist)
	}

	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	cfg.Resolve()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides fields from environment variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("ANDROID_SDK_ROOT"); v != "" {
		c.Tools.SDKRoot = v
	} else if v := getenv("ANDROID_HOME"); v != "" && c.Tools.SDKRoot == "" {
		c.Tools.SDKRoot = v
	}
	if v := getenv("AVD_BIND"); v != "" {
		c.Server.Bind = v
	}
	if v := getenv("AVD_PUBLIC_URL"); v != "" {
		c.Server.PublicURL = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Resolve locates adb and emulator. Explicit paths win; otherwise an
// executable on PATH is preferred over one under the SDK root. A tool that is
// neither on PATH nor under a configured SDK root stays empty.
func (c *Config) Resolve() {
	if c.Tools.ADB == "" {
		c.Tools.ADB = locate("adb", c.Tools.SDKRoot, "platform-tools")
	}
	if c.Tools.Emulator == "" {
		c.Tools.Emulator = locate("emulator", c.Tools.SDKRoot, "emulator")
	}
}

func locate(name, sdkRoot, subdir string) string {
	if p, err := lookPath(name); err == nil {
		return p
	}
	if sdkRoot == "" {
		return ""
	}
	return filepath.Join(sdkRoot, subdir, name)
}

// BootTimeoutDuration returns the readiness deadline.
func (e Emulator) BootTimeoutDuration() time.Duration {
	return time.Duration(e.BootTimeout) * time.Second
}

// VideoTimeoutDuration returns the first-frame deadline.
func (e Emulator) VideoTimeoutDuration() time.Duration {
	return time.Duration(e.VideoTimeout) * time.Second
}

// CaptureTimeoutDuration returns the per-capture deadline used while polling.
func (e Emulator) CaptureTimeoutDuration() time.Duration {
	return time.Duration(e.CaptureTimeout) * time.Second
}

// PollIntervalDuration returns the delay between poll attempts.
func (e Emulator) PollIntervalDuration() time.Duration {
	return time.Duration(e.PollInterval) * time.Second
}

// StreamInterval returns the delay between streamed frames.
func (e Emulator) StreamInterval() time.Duration {
	return time.Duration(e.StreamIntervalMillis) * time.Millisecond
}

func (c *Config) normalize() error {
	c.Server.PublicURL = strings.TrimRight(strings.TrimSpace(c.Server.PublicURL), "/")
	c.Emulator.BrowserURL = strings.TrimSpace(c.Emulator.BrowserURL)

	var err error
	if c.Tools.SDKRoot, err = expandPath(c.Tools.SDKRoot); err != nil {
		return fmt.Errorf("tools.sdk_root: %w", err)
	}
	if c.Tools.ADB, err = expandPath(c.Tools.ADB); err != nil {
		return fmt.Errorf("tools.adb: %w", err)
	}
	if c.Tools.Emulator, err = expandPath(c.Tools.Emulator); err != nil {
		return fmt.Errorf("tools.emulator: %w", err)
	}
	if c.Emulator.LockDir, err = expandPath(c.Emulator.LockDir); err != nil {
		return fmt.Errorf("emulator.lock_dir: %w", err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return "", false, err
		}
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", expanded)
	}
	return expanded, true, nil
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Clean(path), nil
}
