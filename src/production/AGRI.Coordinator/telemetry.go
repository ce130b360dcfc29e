package coordinator

import (
	agrimodels "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Models"
)

// Sensor kinds accepted by RecordSensor.
const (
	SensorTemperature = "temperature"
	SensorHumidity    = "humidity"
)

// RecordSensor applies a parsed sensor value, stamps the observation time,
// marks the device seen and broadcasts the delta.
func (c *Coordinator) RecordSensor(kind string, value float64) {
	c.do(func() {
		now := c.now()
		switch kind {
		case SensorTemperature:
			v := value
			c.reading.Temperature = &v
		case SensorHumidity:
			v := value
			c.reading.Humidity = &v
		default:
			c.log.Warn("unknown sensor kind: " + kind)
			return
		}
		c.reading.ObservedAt = now
		c.markSeen()

		reading := c.reading
		c.bcast.Publish(agrimodels.StreamEvent{
			Type:      agrimodels.EventSensorData,
			Timestamp: now,
			Reading:   &reading,
		})
	})
}

// RecordActuatorStatus applies a confirmed motor state. State transitions
// are the trigger for session start and end: an off-to-on transition opens
// a session when none is active (a command-started session survives its own
// confirmation), and on-to-off closes the active session.
func (c *Coordinator) RecordActuatorStatus(on bool) {
	c.do(func() {
		now := c.now()
		c.markSeen()

		if c.actuator.On == on {
			return
		}
		c.actuator.On = on
		c.actuator.LastChanged = now

		if on {
			if c.session == nil {
				// device switched on outside any command we issued
				c.startSessionLocked(agrimodels.SourceManual, "", nil)
			}
		} else if c.session != nil {
			c.endSessionLocked()
		}

		actuator := c.actuator
		c.bcast.Publish(agrimodels.StreamEvent{
			Type:      agrimodels.EventActuatorStatus,
			Timestamp: now,
			Actuator:  &actuator,
		})
	})
}

// RecordDeviceStatus applies a device online/offline announcement. An
// explicit offline message forces the offline edge without waiting for the
// staleness threshold.
func (c *Coordinator) RecordDeviceStatus(online bool) {
	c.do(func() {
		if online {
			c.markSeen()
			return
		}
		if c.online {
			c.setOnline(false)
		}
	})
}
