package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Bind) == "" {
		return errors.New("server.bind is required")
	}
	if c.Server.PublicURL != "" {
		u, err := url.Parse(c.Server.PublicURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("server.public_url %q must be an absolute URL", c.Server.PublicURL)
		}
	}
	if c.Tools.ADB == "" {
		return errors.New("adb not found: install platform-tools on PATH or set tools.sdk_root / ANDROID_SDK_ROOT")
	}
	if c.Tools.Emulator == "" {
		return errors.New("emulator not found: set tools.sdk_root / ANDROID_SDK_ROOT")
	}

	e := c.Emulator
	for name, v := range map[string]int{
		"emulator.boot_timeout":       e.BootTimeout,
		"emulator.video_timeout":      e.VideoTimeout,
		"emulator.capture_timeout":    e.CaptureTimeout,
		"emulator.poll_interval":      e.PollInterval,
		"emulator.stream_interval_ms": e.StreamIntervalMillis,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	if e.BrowserURL == "" {
		return errors.New("emulator.browser_url is required")
	}
	if e.LockDir == "" {
		return errors.New("emulator.lock_dir is required")
	}
	return nil
}
