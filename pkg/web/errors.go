package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/teslashibe/go-avd/pkg/adb"
	"github.com/teslashibe/go-avd/pkg/emulator"
)

// errorBody matches the {"detail": ...} shape clients already parse.
type errorBody struct {
	Detail string `json:"detail"`
}

func badRequest(msg string) error {
	return fiber.NewError(fiber.StatusBadRequest, msg)
}

// statusFor maps an error to a status code and client-facing detail.
func statusFor(err error) (int, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}
	if errors.Is(err, emulator.ErrBadRequest) {
		return fiber.StatusBadRequest, err.Error()
	}
	// Tool failures surface the tool's own stderr.
	var te *adb.ToolError
	if errors.As(err, &te) {
		return fiber.StatusInternalServerError, te.Detail()
	}
	return fiber.StatusInternalServerError, err.Error()
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code, detail := statusFor(err)

	logger := s.logger.With(
		"method", c.Method(),
		"path", c.Path(),
		"status", code,
	)
	if id, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok {
		logger = logger.With("request_id", id)
	}
	if code >= fiber.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	} else {
		logger.Debug("request rejected", "error", err)
	}

	return c.Status(code).JSON(errorBody{Detail: detail})
}
