// Package adb wraps the Android device bridge and emulator command-line tools.
//
// Every call is a synchronous external process invocation; Client holds no
// device state of its own.
package adb

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// BootCompletedProperty is the system property that reads "1" once Android
// has finished booting.
const BootCompletedProperty = "sys.boot_completed"

// SerialForPort returns the device serial the emulator registers for a
// console port.
func SerialForPort(port int) string {
	return "emulator-" + strconv.Itoa(port)
}

// Intent is an activity manager start request.
type Intent struct {
	Action string
	Data   string // optional URI
}

// Common intents.
const (
	ActionView = "android.intent.action.VIEW"
	ActionDial = "android.intent.action.DIAL"
)

// ViewIntent opens url in the default browser.
func ViewIntent(url string) Intent {
	return Intent{Action: ActionView, Data: url}
}

// DialIntent opens the dial screen.
func DialIntent() Intent {
	return Intent{Action: ActionDial}
}

// LaunchSpec describes a headless emulator launch.
type LaunchSpec struct {
	AVD  string
	Port int
}

// Args returns the emulator arguments: no window, no audio, read-only disk.
func (s LaunchSpec) Args() []string {
	return []string{
		"-avd", s.AVD,
		"-port", strconv.Itoa(s.Port),
		"-read-only",
		"-no-window",
		"-no-audio",
	}
}

// Option configures the client.
type Option func(*Client)

// WithRunner injects a custom runner (primarily for tests).
func WithRunner(r Runner) Option {
	return func(c *Client) {
		if r != nil {
			c.runner = r
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client runs adb and emulator commands.
type Client struct {
	adb      string
	emulator string
	runner   Runner
	logger   *slog.Logger
}

// New constructs a client for the given tool paths.
func New(adbPath, emulatorPath string, opts ...Option) *Client {
	c := &Client{
		adb:      adbPath,
		emulator: emulatorPath,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.runner == nil {
		c.runner = ExecRunner{Logger: c.logger}
	}
	return c
}

// BootCompleted returns the trimmed value of the boot-completion property.
func (c *Client) BootCompleted(ctx context.Context, serial string) (string, error) {
	out, err := c.runner.Output(ctx, c.adb, "-s", serial, "shell", "getprop", BootCompletedProperty)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Screencap captures the full screen as PNG.
func (c *Client) Screencap(ctx context.Context, serial string) ([]byte, error) {
	return c.runner.Output(ctx, c.adb, "-s", serial, "exec-out", "screencap", "-p")
}

// Kill asks the emulator console at serial to exit.
func (c *Client) Kill(ctx context.Context, serial string) error {
	_, err := c.runner.Output(ctx, c.adb, "-s", serial, "emu", "kill")
	return err
}

// StartIntent dispatches an intent through the activity manager.
func (c *Client) StartIntent(ctx context.Context, serial string, intent Intent) error {
	args := []string{"-s", serial, "shell", "am", "start", "-a", intent.Action}
	if intent.Data != "" {
		args = append(args, "-d", intent.Data)
	}
	_, err := c.runner.Output(ctx, c.adb, args...)
	return err
}

// Launch spawns an emulator process and returns without waiting for it.
func (c *Client) Launch(spec LaunchSpec) error {
	if spec.AVD == "" {
		return fmt.Errorf("launch: avd name required")
	}
	c.logger.Debug("spawning emulator", "avd", spec.AVD, "port", spec.Port)
	return c.runner.Start(c.emulator, spec.Args()...)
}

// ListAVDs returns the names of the configured virtual devices.
func (c *Client) ListAVDs(ctx context.Context) ([]string, error) {
	out, err := c.runner.Output(ctx, c.emulator, "-list-avds")
	if err != nil {
		return nil, err
	}

	var names []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// The emulator prefixes diagnostics with a level tag.
		if line == "" || strings.HasPrefix(line, "INFO") || strings.HasPrefix(line, "WARNING") {
			continue
		}
		names = append(names, line)
	}
	return names, scanner.Err()
}
