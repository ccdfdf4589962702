// Package stream turns repeated screen captures into a live image feed.
//
// Frames is a lazy, unbounded sequence of PNG captures. It ends silently on
// the first failed capture or when its context is cancelled. Stream wraps each
// frame in a multipart/x-mixed-replace envelope for HTTP consumers.
package stream

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"time"
)

// Boundary is the multipart boundary token.
const Boundary = "frame"

// ContentType is the response content type for a multipart frame stream.
const ContentType = "multipart/x-mixed-replace; boundary=" + Boundary

// FrameContentType is the per-part content type.
const FrameContentType = "image/png"

// DefaultInterval is the pause after each frame. Capture latency is not
// subtracted, so the real period is capture time plus the interval.
const DefaultInterval = 100 * time.Millisecond

var (
	partHeader = []byte("--" + Boundary + "\r\nContent-Type: " + FrameContentType + "\r\n\r\n")
	partTail   = []byte("\r\n")
)

// Capturer grabs one still image from a device.
type Capturer interface {
	Screencap(ctx context.Context, serial string) ([]byte, error)
}

// Sink receives encoded frames. Flush pushes buffered bytes to the consumer
// and reports a disconnected consumer as an error.
type Sink interface {
	io.Writer
	Flush() error
}

// Emitter produces frame streams for devices.
type Emitter struct {
	capturer Capturer
	interval time.Duration
	logger   *slog.Logger
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithInterval sets the pause after each frame.
func WithInterval(d time.Duration) Option {
	return func(e *Emitter) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Emitter) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Emitter.
func New(c Capturer, opts ...Option) *Emitter {
	e := &Emitter{
		capturer: c,
		interval: DefaultInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Frames returns a lazy sequence of captures for serial. The context is
// checked before every capture. Any capture error or empty payload ends the
// sequence without signalling an error. Each iteration starts a fresh loop.
func (e *Emitter) Frames(ctx context.Context, serial string) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for {
			if ctx.Err() != nil {
				return
			}
			img, err := e.capturer.Screencap(ctx, serial)
			// An empty capture ends the feed rather than sending an empty part.
			if err != nil || len(img) == 0 {
				e.logger.Debug("frame stream ended", "serial", serial, "error", err)
				return
			}
			if !yield(img) {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(e.interval):
			}
		}
	}
}

// Stream writes enveloped frames to sink until the sequence ends, the context
// is cancelled, or a write or flush fails. It returns the number of frames
// fully delivered.
func (e *Emitter) Stream(ctx context.Context, serial string, sink Sink) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	n := 0
	for img := range e.Frames(ctx, serial) {
		if err := WriteFrame(sink, img); err != nil {
			e.logger.Debug("frame consumer gone", "serial", serial, "error", err)
			break
		}
		if err := sink.Flush(); err != nil {
			e.logger.Debug("frame consumer gone", "serial", serial, "error", err)
			break
		}
		n++
	}
	return n
}

// WriteFrame writes one multipart envelope containing img.
func WriteFrame(w io.Writer, img []byte) error {
	if _, err := w.Write(partHeader); err != nil {
		return err
	}
	if _, err := w.Write(img); err != nil {
		return err
	}
	_, err := w.Write(partTail)
	return err
}
