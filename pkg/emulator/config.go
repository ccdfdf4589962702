package emulator

import (
	"log/slog"
	"time"

	"github.com/teslashibe/go-avd/pkg/devicelock"
)

// Port range accepted for emulator consoles. Ports must be even; the odd
// neighbour is the adb port.
const (
	MinPort = 5554
	MaxPort = 5584
)

// BootSentinel is the boot-completion value that means ready.
const BootSentinel = "1"

// Config holds orchestrator configuration.
type Config struct {
	// Polling
	BootTimeout    time.Duration
	VideoTimeout   time.Duration
	PollInterval   time.Duration
	CaptureTimeout time.Duration // per screencap while waiting for video
	QueryTimeout   time.Duration // per getprop while waiting for boot
	KillTimeout    time.Duration

	// Intents
	BrowserURL string

	// PublicURL is the externally reachable base for feed URLs.
	PublicURL string

	Locker   *devicelock.Locker
	Observer Observer
	Logger   *slog.Logger
}

// Option is a functional option for configuring the orchestrator.
type Option func(*Config)

// WithBootTimeout sets the readiness deadline.
func WithBootTimeout(d time.Duration) Option {
	return func(c *Config) { c.BootTimeout = d }
}

// WithVideoTimeout sets the first-frame deadline.
func WithVideoTimeout(d time.Duration) Option {
	return func(c *Config) { c.VideoTimeout = d }
}

// WithPollInterval sets the delay between poll attempts.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) { c.PollInterval = d }
}

// WithCaptureTimeout sets the per-capture timeout used by the frame poller.
func WithCaptureTimeout(d time.Duration) Option {
	return func(c *Config) { c.CaptureTimeout = d }
}

// WithBrowserURL sets the URL opened by the view intent.
func WithBrowserURL(url string) Option {
	return func(c *Config) { c.BrowserURL = url }
}

// WithPublicURL sets the base used for feed URLs.
func WithPublicURL(url string) Option {
	return func(c *Config) { c.PublicURL = url }
}

// WithLocker sets the per-serial locker guarding terminate-then-spawn.
func WithLocker(l *devicelock.Locker) Option {
	return func(c *Config) { c.Locker = l }
}

// WithObserver registers a lifecycle event observer.
func WithObserver(o Observer) Option {
	return func(c *Config) { c.Observer = o }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns the stock timings.
func DefaultConfig() Config {
	return Config{
		BootTimeout:    60 * time.Second,
		VideoTimeout:   30 * time.Second,
		PollInterval:   time.Second,
		CaptureTimeout: 5 * time.Second,
		QueryTimeout:   5 * time.Second,
		KillTimeout:    10 * time.Second,
		BrowserURL:     "http://www.google.com",
		PublicURL:      "http://localhost:8000",
		Logger:         slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
