// Package emulator sequences the emulator lifecycle: terminate any previous
// instance, spawn a headless one, wait for boot and a first frame, then
// optionally dispatch intents.
//
// The orchestrator keeps no record of devices it started. Every call
// re-derives device state by polling.
package emulator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-avd/pkg/adb"
)

// Bridge is the device-tool surface the orchestrator drives.
// *adb.Client implements it.
type Bridge interface {
	BootCompleted(ctx context.Context, serial string) (string, error)
	Screencap(ctx context.Context, serial string) ([]byte, error)
	Kill(ctx context.Context, serial string) error
	StartIntent(ctx context.Context, serial string, intent adb.Intent) error
	Launch(spec adb.LaunchSpec) error
}

var _ Bridge = (*adb.Client)(nil)

// LaunchRequest names the AVD to launch and its console port.
type LaunchRequest struct {
	AVD         string
	Port        int
	OpenBrowser bool
	OpenDialer  bool
}

// Validate checks the port is even and in range and an AVD is named.
func (r LaunchRequest) Validate() error {
	if r.Port%2 != 0 {
		return badRequest("port", "Port must be an even number (e.g. 5554, 5556, ...)")
	}
	if r.Port < MinPort || r.Port > MaxPort {
		return badRequest("port", "Port must be between %d and %d", MinPort, MaxPort)
	}
	if strings.TrimSpace(r.AVD) == "" {
		return badRequest("name", "AVD name is required")
	}
	return nil
}

// Serial returns the device serial the launch will register.
func (r LaunchRequest) Serial() string {
	return adb.SerialForPort(r.Port)
}

// LaunchResult describes a booted device.
type LaunchResult struct {
	OperationID string
	AVD         string
	Port        int
	Serial      string
	FeedURL     string
	Browser     bool
	Dialer      bool
}

// Orchestrator runs launch and intent workflows against a Bridge.
type Orchestrator struct {
	bridge Bridge
	cfg    Config
	logger *slog.Logger
}

// New creates an orchestrator.
func New(bridge Bridge, opts ...Option) *Orchestrator {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		bridge: bridge,
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

// FeedURL returns the video feed location for serial.
func (o *Orchestrator) FeedURL(serial string) string {
	return strings.TrimRight(o.cfg.PublicURL, "/") + "/video_feed/" + serial
}

// Start terminates any emulator at the request's port, spawns a new one,
// waits for boot and a first frame, then dispatches the requested intents.
// Failures after the spawn leave the new process running.
func (o *Orchestrator) Start(ctx context.Context, req LaunchRequest) (*LaunchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	op := uuid.NewString()
	serial := req.Serial()
	logger := o.logger.With("operation_id", op, "serial", serial, "avd", req.AVD)

	fail := func(err error) (*LaunchResult, error) {
		o.emit(op, serial, PhaseFailed, err.Error())
		logger.Warn("launch failed", "error", err)
		return nil, err
	}

	o.emit(op, serial, PhaseLaunching, req.AVD)
	if err := o.relaunch(ctx, logger, serial, req); err != nil {
		return fail(err)
	}

	o.emit(op, serial, PhaseBooting, "")
	if err := o.WaitForBoot(ctx, serial, 0); err != nil {
		return fail(err)
	}

	o.emit(op, serial, PhaseVideoPending, "")
	if err := o.WaitForVideo(ctx, serial, 0); err != nil {
		return fail(err)
	}
	o.emit(op, serial, PhaseReady, "")
	logger.Info("emulator ready")

	if req.OpenBrowser {
		if err := o.dispatch(ctx, op, serial, adb.ViewIntent(o.cfg.BrowserURL)); err != nil {
			return fail(err)
		}
	}
	if req.OpenDialer {
		if err := o.dispatch(ctx, op, serial, adb.DialIntent()); err != nil {
			return fail(err)
		}
	}

	return &LaunchResult{
		OperationID: op,
		AVD:         req.AVD,
		Port:        req.Port,
		Serial:      serial,
		FeedURL:     o.FeedURL(serial),
		Browser:     req.OpenBrowser,
		Dialer:      req.OpenDialer,
	}, nil
}

// relaunch performs the terminate-then-spawn step under the per-serial lock.
func (o *Orchestrator) relaunch(ctx context.Context, logger *slog.Logger, serial string, req LaunchRequest) error {
	if o.cfg.Locker != nil {
		unlock, err := o.cfg.Locker.Lock(ctx, serial)
		if err != nil {
			return fmt.Errorf("lock %s: %w", serial, err)
		}
		defer unlock()
	}

	kctx, cancel := context.WithTimeout(ctx, o.cfg.KillTimeout)
	err := o.bridge.Kill(kctx, serial)
	cancel()
	if err != nil {
		// Usually nothing was running at this port.
		logger.Debug("terminate skipped", "error", err)
	}

	if err := o.bridge.Launch(adb.LaunchSpec{AVD: req.AVD, Port: req.Port}); err != nil {
		return fmt.Errorf("spawn emulator: %w", err)
	}
	return nil
}

// OpenBrowser waits for serial to be ready and opens the configured URL.
func (o *Orchestrator) OpenBrowser(ctx context.Context, serial string) error {
	return o.openWhenReady(ctx, serial, adb.ViewIntent(o.cfg.BrowserURL))
}

// OpenDialer waits for serial to be ready and opens the dial screen.
func (o *Orchestrator) OpenDialer(ctx context.Context, serial string) error {
	return o.openWhenReady(ctx, serial, adb.DialIntent())
}

func (o *Orchestrator) openWhenReady(ctx context.Context, serial string, intent adb.Intent) error {
	if strings.TrimSpace(serial) == "" {
		return badRequest("serial", "serial is required")
	}
	op := uuid.NewString()
	if err := o.WaitForBoot(ctx, serial, 0); err != nil {
		return err
	}
	if err := o.WaitForVideo(ctx, serial, 0); err != nil {
		return err
	}
	return o.dispatch(ctx, op, serial, intent)
}

func (o *Orchestrator) dispatch(ctx context.Context, op, serial string, intent adb.Intent) error {
	o.emit(op, serial, PhaseIntent, intent.Action)
	if err := o.bridge.StartIntent(ctx, serial, intent); err != nil {
		return fmt.Errorf("start intent %s: %w", intent.Action, err)
	}
	o.logger.Info("intent dispatched", "serial", serial, "action", intent.Action)
	return nil
}

func (o *Orchestrator) emit(op, serial string, phase Phase, msg string) {
	if o.cfg.Observer == nil {
		return
	}
	o.cfg.Observer(Event{
		OperationID: op,
		Serial:      serial,
		Phase:       phase,
		Message:     msg,
		Time:        time.Now(),
	})
}
