package coordinator

import (
	agrimodels "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Models"
)

// The connectivity monitor derives device online/offline from telemetry
// recency. Both transitions are edge-triggered: exactly one statusUpdate
// event per crossing, never one per tick.

// markSeen refreshes the last-seen marker and raises the online edge if the
// device was considered offline. Loop-confined.
func (c *Coordinator) markSeen() {
	c.lastSeen = c.now()
	if !c.online {
		c.setOnline(true)
	}
}

// checkStaleness is the periodic monitor tick. Loop-confined.
func (c *Coordinator) checkStaleness() {
	if !c.online {
		return
	}
	if c.now().Sub(c.lastSeen) > c.cfg.StaleThreshold {
		c.setOnline(false)
	}
}

// setOnline flips the connectivity state and broadcasts the edge.
// Loop-confined.
func (c *Coordinator) setOnline(online bool) {
	c.online = online
	if online {
		c.appendLog(agrimodels.LogLevelInfo, "device online")
	} else {
		c.appendLog(agrimodels.LogLevelWarn, "device offline: telemetry stale")
	}

	state := online
	c.bcast.Publish(agrimodels.StreamEvent{
		Type:         agrimodels.EventStatusUpdate,
		Timestamp:    c.now(),
		DeviceOnline: &state,
	})
}

// Online reports the current derived connectivity state.
func (c *Coordinator) Online() bool {
	var online bool
	c.call(func() { online = c.online })
	return online
}
