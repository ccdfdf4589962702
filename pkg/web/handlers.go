package web

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-avd/pkg/emulator"
)

// StartRequest is the body of POST /start_emulator.
type StartRequest struct {
	Name string `json:"name"`
	Port *int   `json:"port"`
}

// StartAndOpenRequest is the body of POST /start_and_open.
type StartAndOpenRequest struct {
	Name       string `json:"name"`
	Port       *int   `json:"port"`
	OpenChrome bool   `json:"open_chrome"`
	OpenDialer bool   `json:"open_dialer"`
}

// SerialRequest is the body of the intent endpoints.
type SerialRequest struct {
	Serial string `json:"serial"`
}

func parseBody(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return badRequest("invalid request body: " + err.Error())
	}
	return nil
}

func launchRequest(name string, port *int) (emulator.LaunchRequest, error) {
	if port == nil {
		return emulator.LaunchRequest{}, badRequest("port is required")
	}
	return emulator.LaunchRequest{AVD: name, Port: *port}, nil
}

// handleStartEmulator launches an AVD and waits until its video feed is live.
func (s *Server) handleStartEmulator(c *fiber.Ctx) error {
	var body StartRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	req, err := launchRequest(body.Name, body.Port)
	if err != nil {
		return err
	}

	res, err := s.ctl.Start(s.ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"status":       "ok",
		"message":      fmt.Sprintf("AVD '%s' started and booted on port %d", res.AVD, res.Port),
		"serial":       res.Serial,
		"feed_url":     res.FeedURL,
		"operation_id": res.OperationID,
	})
}

// handleStartAndOpen launches an AVD and then opens the requested apps.
func (s *Server) handleStartAndOpen(c *fiber.Ctx) error {
	var body StartAndOpenRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	req, err := launchRequest(body.Name, body.Port)
	if err != nil {
		return err
	}
	req.OpenBrowser = body.OpenChrome
	req.OpenDialer = body.OpenDialer

	res, err := s.ctl.Start(s.ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"status":       "ok",
		"serial":       res.Serial,
		"feed_url":     res.FeedURL,
		"chrome":       res.Browser,
		"dialer":       res.Dialer,
		"operation_id": res.OperationID,
	})
}

func (s *Server) handleOpenChrome(c *fiber.Ctx) error {
	return s.openApp(c, s.ctl.OpenBrowser, "Chrome opened")
}

func (s *Server) handleOpenDialer(c *fiber.Ctx) error {
	return s.openApp(c, s.ctl.OpenDialer, "Dialer opened")
}

func (s *Server) openApp(c *fiber.Ctx, open func(context.Context, string) error, message string) error {
	var body SerialRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	if err := open(s.ctx, body.Serial); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok", "message": message})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleDevices lists devices attached to the adb server.
func (s *Server) handleDevices(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.InventoryTimeout)
	defer cancel()

	devices, err := s.inventory.Devices(ctx)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"devices": devices})
}

// handleAVDs lists the virtual devices the emulator can launch.
func (s *Server) handleAVDs(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.InventoryTimeout)
	defer cancel()

	avds, err := s.inventory.ListAVDs(ctx)
	if err != nil {
		return err
	}
	if avds == nil {
		avds = []string{}
	}
	return c.JSON(fiber.Map{"avds": avds})
}
