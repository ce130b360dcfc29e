package agrimodels

import "time"

// Reading holds the latest sensor values reported by the device. Only the
// most recent value is kept here; time-series storage lives outside the
// coordinator.
type Reading struct {
	Temperature *float64  `bson:"temperature" json:"temperature"`
	Humidity    *float64  `bson:"humidity" json:"humidity"`
	ObservedAt  time.Time `bson:"observed_at" json:"observed_at"`
}

// ActuatorState is the confirmed on/off state of the irrigation motor.
type ActuatorState struct {
	On          bool      `bson:"on" json:"on"`
	LastChanged time.Time `bson:"last_changed" json:"last_changed"`
}
