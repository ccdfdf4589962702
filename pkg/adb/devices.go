package adb

import (
	"bufio"
	"bytes"
	"context"
	"strings"
)

// DeviceState is the connection state reported by `adb devices`.
type DeviceState string

const (
	StateDevice       DeviceState = "device"
	StateOffline      DeviceState = "offline"
	StateUnauthorized DeviceState = "unauthorized"
	StateUnknown      DeviceState = "unknown"
)

// Device is one row of `adb devices`.
type Device struct {
	Serial     string      `json:"serial"`
	State      DeviceState `json:"state"`
	IsEmulator bool        `json:"emulator"`
}

// Online reports whether the device accepts shell commands.
func (d Device) Online() bool {
	return d.State == StateDevice
}

// Devices lists devices known to the adb server.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	out, err := c.runner.Output(ctx, c.adb, "devices")
	if err != nil {
		return nil, err
	}
	return parseDevices(out), nil
}

func parseDevices(out []byte) []Device {
	devices := make([]Device, 0)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		state := DeviceState(fields[1])
		switch state {
		case StateDevice, StateOffline, StateUnauthorized:
		default:
			state = StateUnknown
		}
		devices = append(devices, Device{
			Serial:     fields[0],
			State:      state,
			IsEmulator: strings.HasPrefix(fields[0], "emulator-"),
		})
	}
	return devices
}
