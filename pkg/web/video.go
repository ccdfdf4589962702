package web

import (
	"bufio"
	"context"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	hubws "github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-avd/pkg/stream"
)

// handleVideoFeed streams screen captures as multipart/x-mixed-replace.
// The response ends when a capture fails or the client goes away.
func (s *Server) handleVideoFeed(c *fiber.Ctx) error {
	serial := c.Params("serial")
	logger := s.logger.With("serial", serial)

	c.Set(fiber.HeaderContentType, stream.ContentType)
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		n := s.frames.Stream(s.ctx, serial, w)
		logger.Debug("video feed closed", "frames", n)
	})
	return nil
}

// handleVideoFeedWS sends each capture as a binary websocket message.
func (s *Server) handleVideoFeedWS(conn *websocket.Conn) {
	serial := conn.Params("serial")
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	// Reading is the only way to notice the peer closing.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	n := 0
	for img := range s.frames.Frames(ctx, serial) {
		if err := conn.WriteMessage(websocket.BinaryMessage, img); err != nil {
			break
		}
		n++
	}
	s.logger.Debug("websocket video feed closed", "serial", serial, "frames", n)
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// eventsHandler forwards lifecycle events from the hub.
func (s *Server) eventsHandler() fiber.Handler {
	return hubws.New(func(conn *hubws.Conn) {
		s.events.Serve(s.ctx, conn)
	})
}
