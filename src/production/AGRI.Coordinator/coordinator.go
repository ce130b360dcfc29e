// Package coordinator owns all mutable device state: the latest reading,
// the confirmed actuator state, the active irrigation session, the bounded
// history log, the schedule list and the subscriber registry. State is
// confined to a single-consumer task queue; every public operation enqueues
// a closure onto that queue, so no locks are needed around the state itself.
package coordinator

import (
	"context"
	"fmt"
	"time"

	broadcaster "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Broadcaster"
	config "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Config"
	logger "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Logger"
	agrimodels "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Models"
)

// ActuationPublisher issues motor commands to the device. Implemented by
// the MQTT ingestor.
type ActuationPublisher interface {
	PublishControl(on bool) error
}

// FlushNotifier receives change notices for the persistence writer.
type FlushNotifier interface {
	MarkDirty()
}

// TriggerRebuilder rebuilds the schedule engine's fire timers after any
// mutation of the schedule list.
type TriggerRebuilder interface {
	Rebuild(schedules []agrimodels.Schedule)
}

// Coordinator is the single-device irrigation coordinator.
type Coordinator struct {
	cfg config.CoordinatorConfig
	log *logger.Logger

	tasks chan func()

	// loop-confined state
	reading    agrimodels.Reading
	actuator   agrimodels.ActuatorState
	session    *agrimodels.IrrigationSession
	history    []agrimodels.IrrigationEvent // newest first
	schedules  []agrimodels.Schedule
	logbuf     *logRing
	lastSeen   time.Time
	online     bool

	eventsSinceFlush int

	bcast *broadcaster.Broadcaster

	flusher   FlushNotifier
	rebuilder TriggerRebuilder

	now func() time.Time
}

// New creates a coordinator. Wire the flusher and rebuilder before Run.
func New(cfg config.CoordinatorConfig, log *logger.Logger) *Coordinator {
	return &Coordinator{
		cfg:    cfg,
		log:    log.WithComponent("coordinator"),
		tasks:  make(chan func(), 256),
		logbuf: newLogRing(cfg.LogCap),
		bcast:  broadcaster.New(cfg.SubscriberLimit, cfg.SubscriberStale, log),
		now:    time.Now,
	}
}

// SetFlusher wires the persistence writer.
func (c *Coordinator) SetFlusher(f FlushNotifier) { c.flusher = f }

// SetRebuilder wires the schedule engine.
func (c *Coordinator) SetRebuilder(r TriggerRebuilder) { c.rebuilder = r }

// SetNow overrides the clock. Test hook.
func (c *Coordinator) SetNow(now func() time.Time) {
	c.now = now
	c.bcast.SetNow(now)
}

// LoadState seeds persisted schedules and history. Must be called before
// Run starts.
func (c *Coordinator) LoadState(schedules []agrimodels.Schedule, history []agrimodels.IrrigationEvent) {
	c.schedules = append(c.schedules[:0], schedules...)
	if len(history) > c.cfg.HistoryCap {
		history = history[:c.cfg.HistoryCap]
	}
	c.history = append(c.history[:0], history...)
}

// Run processes the task queue until the context is cancelled. A panic in
// one task is logged and isolated; subsequent tasks keep running.
func (c *Coordinator) Run(ctx context.Context) {
	c.log.Info("coordinator loop started")
	for {
		select {
		case <-ctx.Done():
			c.runTask(func() { c.bcast.CloseAll() })
			c.log.Info("coordinator loop stopped")
			return
		case task := <-c.tasks:
			c.runTask(task)
		}
	}
}

func (c *Coordinator) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error(fmt.Sprintf("recovered panic in coordinator task: %v", r))
		}
	}()
	task()
}

// do enqueues a fire-and-forget state mutation.
func (c *Coordinator) do(fn func()) {
	c.tasks <- fn
}

// call enqueues fn and waits for the loop to execute it.
func (c *Coordinator) call(fn func()) {
	done := make(chan struct{})
	c.tasks <- func() {
		defer close(done)
		fn()
	}
	<-done
}

// RunMonitor drives the connectivity staleness check on a fixed tick.
func (c *Coordinator) RunMonitor(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.MonitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.do(c.checkStaleness)
		}
	}
}

// RunHeartbeat pushes a periodic heartbeat to all subscribers and sweeps
// stale ones.
func (c *Coordinator) RunHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.do(func() {
				c.bcast.Publish(agrimodels.StreamEvent{
					Type:      agrimodels.EventHeartbeat,
					Timestamp: c.now(),
				})
				c.bcast.Sweep()
			})
		}
	}
}

// Subscribe registers a push-stream connection and returns it primed with a
// full-state snapshot event.
func (c *Coordinator) Subscribe() (*broadcaster.Subscriber, error) {
	var (
		sub *broadcaster.Subscriber
		err error
	)
	c.call(func() {
		sub, err = c.bcast.Subscribe(c.snapshotLocked())
	})
	return sub, err
}

// Unsubscribe drops a push-stream connection.
func (c *Coordinator) Unsubscribe(id string) {
	c.do(func() { c.bcast.Unsubscribe(id) })
}

// Snapshot returns the current full state as an initial-type event.
func (c *Coordinator) Snapshot() agrimodels.StreamEvent {
	var snap agrimodels.StreamEvent
	c.call(func() { snap = c.snapshotLocked() })
	return snap
}

// snapshotLocked builds the initial event. Loop-confined.
func (c *Coordinator) snapshotLocked() agrimodels.StreamEvent {
	online := c.online
	reading := c.reading
	actuator := c.actuator

	recent := c.history
	if len(recent) > 20 {
		recent = recent[:20]
	}
	history := make([]agrimodels.IrrigationEvent, len(recent))
	copy(history, recent)

	schedules := make([]agrimodels.Schedule, len(c.schedules))
	copy(schedules, c.schedules)

	return agrimodels.StreamEvent{
		Type:         agrimodels.EventInitial,
		Timestamp:    c.now(),
		Reading:      &reading,
		Actuator:     &actuator,
		DeviceOnline: &online,
		History:      history,
		Schedules:    schedules,
	}
}

// Logs returns a copy of the diagnostic ring buffer, newest first.
func (c *Coordinator) Logs() []agrimodels.LogEntry {
	var out []agrimodels.LogEntry
	c.call(func() { out = c.logbuf.entries() })
	return out
}

// appendLog records a diagnostic entry. Loop-confined.
func (c *Coordinator) appendLog(level, msg string) {
	c.logbuf.append(agrimodels.LogEntry{
		Timestamp: c.now(),
		Level:     level,
		Message:   msg,
	})
}

func (c *Coordinator) markDirty() {
	if c.flusher != nil {
		c.flusher.MarkDirty()
	}
}
