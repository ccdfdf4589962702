package emulator

import "time"

// Phase is a step of the per-device lifecycle as observed by one request.
type Phase string

const (
	PhaseLaunching    Phase = "launching"
	PhaseBooting      Phase = "booting"
	PhaseVideoPending Phase = "video-pending"
	PhaseReady        Phase = "ready"
	PhaseIntent       Phase = "intent"
	PhaseFailed       Phase = "failed"
)

// Event is published as an operation progresses.
type Event struct {
	OperationID string    `json:"operation_id"`
	Serial      string    `json:"serial"`
	Phase       Phase     `json:"phase"`
	Message     string    `json:"message,omitempty"`
	Time        time.Time `json:"time"`
}

// Observer receives events synchronously and must not block.
type Observer func(Event)
