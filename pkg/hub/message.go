// Package hub fans out messages to websocket subscribers using a single
// goroutine that owns the subscriber set.
package hub

import (
	"encoding/json"

	"github.com/gofiber/websocket/v2"
)

// Message is one payload queued for every subscriber. Binary selects the
// websocket frame type; text frames carry JSON.
type Message struct {
	Binary bool
	Data   []byte
}

// Encode marshals v into a text message.
func Encode(v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Message{Data: data}, nil
}

// Frame wraps raw bytes, such as a PNG capture, in a binary message.
func Frame(data []byte) Message {
	return Message{Binary: true, Data: data}
}

// frameType maps the message to its websocket opcode.
func (m Message) frameType() int {
	if m.Binary {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
