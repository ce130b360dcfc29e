package agrimodels

import "time"

// Stream event types pushed to dashboard subscribers.
const (
	EventInitial         = "initial"
	EventSensorData      = "sensorData"
	EventActuatorStatus  = "actuatorStatus"
	EventStatusUpdate    = "statusUpdate"
	EventIrrigationEvent = "irrigationEvent"
	EventHeartbeat       = "heartbeat"
)

// StreamEvent is the envelope written to every push-stream subscriber, one
// JSON object per message. Only the fields for the given Type are set.
type StreamEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// sensorData / initial
	Reading *Reading `json:"reading,omitempty"`

	// actuatorStatus / initial
	Actuator *ActuatorState `json:"actuator,omitempty"`

	// statusUpdate / initial
	DeviceOnline *bool `json:"device_online,omitempty"`

	// irrigationEvent
	Event *IrrigationEvent `json:"event,omitempty"`

	// initial only
	History   []IrrigationEvent `json:"history,omitempty"`
	Schedules []Schedule        `json:"schedules,omitempty"`
}
