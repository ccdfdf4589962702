// Package web serves the emulator control plane over HTTP and websockets.
package web

import (
	"context"
	"log/slog"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/teslashibe/go-avd/pkg/adb"
	"github.com/teslashibe/go-avd/pkg/emulator"
	"github.com/teslashibe/go-avd/pkg/hub"
	"github.com/teslashibe/go-avd/pkg/stream"
)

// Controller runs lifecycle workflows. *emulator.Orchestrator implements it.
type Controller interface {
	Start(ctx context.Context, req emulator.LaunchRequest) (*emulator.LaunchResult, error)
	OpenBrowser(ctx context.Context, serial string) error
	OpenDialer(ctx context.Context, serial string) error
}

// Inventory lists attached devices and configured AVDs. *adb.Client implements it.
type Inventory interface {
	Devices(ctx context.Context) ([]adb.Device, error)
	ListAVDs(ctx context.Context) ([]string, error)
}

var (
	_ Controller = (*emulator.Orchestrator)(nil)
	_ Inventory  = (*adb.Client)(nil)
)

// Config holds server settings.
type Config struct {
	Bind         string
	AllowOrigins []string

	// InventoryTimeout bounds the device and AVD listing calls.
	InventoryTimeout time.Duration

	Logger *slog.Logger
}

// Server is the HTTP control plane.
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger

	ctl       Controller
	inventory Inventory
	frames    *stream.Emitter
	events    *hub.Hub

	// ctx outlives individual requests and is cancelled on Shutdown so
	// long polls and open streams stop with the server.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer wires the routes. events may be nil, which disables /ws/events.
func NewServer(cfg Config, ctl Controller, inventory Inventory, frames *stream.Emitter, events *hub.Hub) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.InventoryTimeout <= 0 {
		cfg.InventoryTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:       cfg,
		logger:    cfg.Logger.With("component", "web"),
		ctl:       ctl,
		inventory: inventory,
		frames:    frames,
		events:    events,
		ctx:       ctx,
		cancel:    cancel,
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-avd",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(corsConfig(cfg.AllowOrigins)))

	// Control routes
	app.Post("/start_emulator", s.handleStartEmulator)
	app.Post("/open_chrome", s.handleOpenChrome)
	app.Post("/open_dialer", s.handleOpenDialer)
	app.Post("/start_and_open", s.handleStartAndOpen)
	app.Get("/video_feed/:serial", s.handleVideoFeed)

	// API routes
	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/devices", s.handleDevices)
	api.Get("/avds", s.handleAVDs)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/video_feed/:serial", websocket.New(s.handleVideoFeedWS))
	if events != nil {
		app.Get("/ws/events", s.eventsHandler())
	}

	s.app = app
	return s
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowOrigins: strings.Join(origins, ","),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}
	// Credentials cannot be combined with a wildcard origin.
	if len(origins) > 0 && !slices.Contains(origins, "*") {
		cfg.AllowCredentials = true
	}
	if cfg.AllowOrigins == "" {
		cfg.AllowOrigins = "*"
	}
	return cfg
}

// App exposes the underlying fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured bind address and blocks.
func (s *Server) Start() error {
	s.runHub()
	s.logger.Info("listening", "bind", s.cfg.Bind)
	return s.app.Listen(s.cfg.Bind)
}

// Serve accepts connections on ln and blocks.
func (s *Server) Serve(ln net.Listener) error {
	s.runHub()
	s.logger.Info("listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

func (s *Server) runHub() {
	if s.events != nil && !s.events.IsRunning() {
		go s.events.Run(s.ctx)
	}
}

// Shutdown stops open streams and pending polls, then closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	return s.app.ShutdownWithContext(ctx)
}
