package coordinator

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	agrimodels "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Models"
)

// StartSession opens an irrigation session attributed to the given source.
// Called by the manual control path and by the schedule engine at fire
// time. Overlapping triggers merge: an already-active session is force-ended
// before the new one starts, so at most one session ever exists.
func (c *Coordinator) StartSession(source, scheduleRef string, details *agrimodels.ScheduleDetails) {
	c.do(func() {
		c.startSessionLocked(source, scheduleRef, details)
	})
}

// startSessionLocked opens a session. Loop-confined.
func (c *Coordinator) startSessionLocked(source, scheduleRef string, details *agrimodels.ScheduleDetails) {
	if c.session != nil {
		// merge-on-overlap: close the running session first
		c.endSessionLocked()
	}
	c.session = &agrimodels.IrrigationSession{
		StartedAt:   c.now(),
		Source:      source,
		ScheduleRef: scheduleRef,
		Details:     details,
	}
	c.appendLog(agrimodels.LogLevelInfo, fmt.Sprintf("irrigation session started (source=%s)", source))
}

// endSessionLocked converts the active session into an IrrigationEvent,
// prepends it to the bounded history and broadcasts it. Loop-confined.
func (c *Coordinator) endSessionLocked() {
	sess := c.session
	if sess == nil {
		return
	}
	c.session = nil

	now := c.now()
	event := agrimodels.IrrigationEvent{
		ID:              uuid.NewString(),
		StartedAt:       sess.StartedAt,
		EndedAt:         now,
		DurationMinutes: int(math.Round(now.Sub(sess.StartedAt).Seconds() / 60)),
		Source:          sess.Source,
		ScheduleRef:     sess.ScheduleRef,
		ScheduleDetails: sess.Details,
	}

	c.history = append([]agrimodels.IrrigationEvent{event}, c.history...)
	if len(c.history) > c.cfg.HistoryCap {
		c.history = c.history[:c.cfg.HistoryCap]
	}

	// flush every Nth event, not every event, to bound write amplification
	c.eventsSinceFlush++
	if c.eventsSinceFlush >= c.cfg.HistoryFlushEvery {
		c.eventsSinceFlush = 0
		c.markDirty()
	}

	c.appendLog(agrimodels.LogLevelInfo,
		fmt.Sprintf("irrigation session ended (source=%s duration=%dm)", event.Source, event.DurationMinutes))

	c.bcast.Publish(agrimodels.StreamEvent{
		Type:      agrimodels.EventIrrigationEvent,
		Timestamp: now,
		Event:     &event,
	})
}

// ActiveSession returns a copy of the running session, if any.
func (c *Coordinator) ActiveSession() *agrimodels.IrrigationSession {
	var out *agrimodels.IrrigationSession
	c.call(func() {
		if c.session != nil {
			sess := *c.session
			out = &sess
		}
	})
	return out
}

// HistoryPage is one page of the irrigation history log.
type HistoryPage struct {
	Items []agrimodels.IrrigationEvent `json:"items"`
	Total int                          `json:"total"`
	Page  int                          `json:"page"`
	Limit int                          `json:"limit"`
}

// History returns a newest-first page of the capped event log.
func (c *Coordinator) History(page, limit int) HistoryPage {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	out := HistoryPage{Page: page, Limit: limit}
	c.call(func() {
		out.Total = len(c.history)
		start := (page - 1) * limit
		if start >= len(c.history) {
			out.Items = []agrimodels.IrrigationEvent{}
			return
		}
		end := start + limit
		if end > len(c.history) {
			end = len(c.history)
		}
		out.Items = make([]agrimodels.IrrigationEvent, end-start)
		copy(out.Items, c.history[start:end])
	})
	return out
}

// ControlActuator issues a manual motor command. The publish happens on the
// caller's goroutine (it may block on the broker acknowledgement); only the
// session bookkeeping is enqueued. An "on" command opens a manual-source
// session immediately; the confirmed off transition closes it through the
// normal telemetry path.
func (c *Coordinator) ControlActuator(pub ActuationPublisher, on bool) error {
	if err := pub.PublishControl(on); err != nil {
		c.do(func() {
			c.appendLog(agrimodels.LogLevelError, fmt.Sprintf("actuator command failed: %v", err))
		})
		return err
	}
	c.do(func() {
		action := "OFF"
		if on {
			action = "ON"
		}
		c.appendLog(agrimodels.LogLevelInfo, "actuator command sent: "+action)
		if on && c.session == nil {
			c.startSessionLocked(agrimodels.SourceManual, "", nil)
		}
	})
	return nil
}
