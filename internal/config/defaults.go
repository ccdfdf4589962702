package config

import (
	"os"
	"path/filepath"
)

const (
	defaultBind                 = ":8000"
	defaultPublicURL            = "http://localhost:8000"
	defaultAllowOrigin          = "http://localhost:3000"
	defaultBootTimeout          = 60
	defaultVideoTimeout         = 30
	defaultCaptureTimeout       = 5
	defaultPollInterval         = 1
	defaultStreamIntervalMillis = 100
	defaultBrowserURL           = "http://www.google.com"
	defaultLogLevel             = "info"
	defaultLogFormat            = "auto"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Bind:         defaultBind,
			PublicURL:    defaultPublicURL,
			AllowOrigins: []string{defaultAllowOrigin},
		},
		Emulator: Emulator{
			BootTimeout:          defaultBootTimeout,
			VideoTimeout:         defaultVideoTimeout,
			CaptureTimeout:       defaultCaptureTimeout,
			PollInterval:         defaultPollInterval,
			StreamIntervalMillis: defaultStreamIntervalMillis,
			BrowserURL:           defaultBrowserURL,
			LockDir:              filepath.Join(os.TempDir(), "go-avd", "locks"),
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
