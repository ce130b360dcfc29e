package agriingestor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Payload parsing is tagged per topic: each parser returns a typed value or
// an error, and a malformed payload is dropped by the caller rather than
// propagated. The device publishes sensor values as bare decimal strings
// and status confirmations as JSON, with a plain "ON"/"OFF" string as the
// legacy fallback for motor status.

// DeviceStatus is the parsed device/status announcement.
type DeviceStatus struct {
	Online   bool
	DeviceID string
}

type motorStatusPayload struct {
	Status string `json:"status"`
}

type deviceStatusPayload struct {
	Status   string `json:"status"`
	DeviceID string `json:"device_id"`
}

// ParseSensorValue parses a bare decimal sensor payload.
func ParseSensorValue(payload []byte) (float64, error) {
	raw := strings.TrimSpace(string(payload))
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric sensor payload %q", raw)
	}
	return value, nil
}

// ParseMotorStatus parses a motor confirmation. Structured JSON
// ({"status":"ON",...}) is tried first; a bare "ON"/"OFF" string is the
// fallback contract.
func ParseMotorStatus(payload []byte) (bool, error) {
	var structured motorStatusPayload
	if err := json.Unmarshal(payload, &structured); err == nil && structured.Status != "" {
		return motorStateFromString(structured.Status)
	}
	return motorStateFromString(string(payload))
}

func motorStateFromString(raw string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "ON":
		return true, nil
	case "OFF":
		return false, nil
	}
	return false, fmt.Errorf("unrecognized motor status %q", raw)
}

// ParseDeviceStatus parses a device online/offline announcement.
func ParseDeviceStatus(payload []byte) (DeviceStatus, error) {
	var structured deviceStatusPayload
	if err := json.Unmarshal(payload, &structured); err != nil {
		return DeviceStatus{}, fmt.Errorf("malformed device status payload: %w", err)
	}
	switch strings.ToLower(structured.Status) {
	case "online":
		return DeviceStatus{Online: true, DeviceID: structured.DeviceID}, nil
	case "offline":
		return DeviceStatus{Online: false, DeviceID: structured.DeviceID}, nil
	}
	return DeviceStatus{}, fmt.Errorf("unrecognized device status %q", structured.Status)
}
