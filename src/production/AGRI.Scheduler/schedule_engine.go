// Package scheduler turns the schedule list into concrete fire timers and
// issues actuation commands when they elapse. Every mutation of the list
// triggers a full rebuild of the fire triggers rather than incremental
// patching; O(n) rebuild cost is acceptable at single-device scale.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	logger "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Logger"
	agrimodels "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Models"
)

// Publisher issues motor commands to the device.
type Publisher interface {
	PublishControl(on bool) error
}

// SessionControl is the slice of the coordinator the engine drives.
type SessionControl interface {
	StartSession(source, scheduleRef string, details *agrimodels.ScheduleDetails)
	DeactivateSchedule(id string)
}

// Engine owns the fire timers and the duration auto-off timers, both keyed
// by schedule id so that deleting a schedule cancels its pending work.
type Engine struct {
	pub      Publisher
	sessions SessionControl
	log      *logger.Logger

	mu         sync.Mutex
	generation uint64
	schedules  map[string]agrimodels.Schedule
	fireTimers map[string]*time.Timer
	offTimers  map[string]*time.Timer

	now func() time.Time
}

// New creates an engine. Call Rebuild with the initial schedule list to arm
// the triggers.
func New(pub Publisher, sessions SessionControl, log *logger.Logger) *Engine {
	return &Engine{
		pub:        pub,
		sessions:   sessions,
		log:        log.WithComponent("scheduler"),
		schedules:  make(map[string]agrimodels.Schedule),
		fireTimers: make(map[string]*time.Timer),
		offTimers:  make(map[string]*time.Timer),
		now:        time.Now,
	}
}

// SetNow overrides the clock. Test hook.
func (e *Engine) SetNow(now func() time.Time) { e.now = now }

// Rebuild replaces all fire triggers from the given schedule list. Auto-off
// timers for schedules still present survive the rebuild; timers for
// deleted schedules are cancelled here, so a removed schedule can no longer
// switch the motor off under a later watering.
func (e *Engine) Rebuild(schedules []agrimodels.Schedule) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.generation++
	for _, timer := range e.fireTimers {
		timer.Stop()
	}
	e.fireTimers = make(map[string]*time.Timer)

	known := make(map[string]agrimodels.Schedule, len(schedules))
	for _, sched := range schedules {
		known[sched.ID] = sched
	}
	for id, timer := range e.offTimers {
		if _, ok := known[id]; !ok {
			timer.Stop()
			delete(e.offTimers, id)
		}
	}
	e.schedules = known

	now := e.now()
	armed := 0
	for _, sched := range schedules {
		if e.armLocked(sched, now) {
			armed++
		}
	}
	e.log.WithField("count", armed).Debug("fire triggers rebuilt")
}

// armLocked computes the next fire time and arms the timer. Caller holds mu.
func (e *Engine) armLocked(sched agrimodels.Schedule, now time.Time) bool {
	fireAt, ok := NextFire(sched, now)
	if !ok {
		return false
	}
	gen := e.generation
	id := sched.ID
	e.fireTimers[id] = time.AfterFunc(fireAt.Sub(now), func() {
		e.fire(id, gen, fireAt)
	})
	return true
}

// fire runs on the timer goroutine. It re-checks that the trigger is still
// current before acting: a rebuild in the meantime invalidates it.
func (e *Engine) fire(id string, gen uint64, fireAt time.Time) {
	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		return
	}
	sched, ok := e.schedules[id]
	delete(e.fireTimers, id)
	if !ok || !sched.Active {
		e.mu.Unlock()
		return
	}

	// daily schedules recur; re-arm before releasing the lock. The next
	// occurrence is computed from the fired instant, never from a clock
	// reading that may still trail it, so the same occurrence cannot re-fire.
	if sched.Frequency == agrimodels.FrequencyDaily {
		base := e.now()
		if fireAt.After(base) {
			base = fireAt
		}
		e.armLocked(sched, base)
	}
	e.mu.Unlock()

	on := sched.Action == agrimodels.ActionOn
	e.log.WithField("schedule_id", id).Info(fmt.Sprintf("schedule fired (action=%s)", sched.Action))

	if err := e.pub.PublishControl(on); err != nil {
		// no automatic retry; the next daily occurrence reattempts naturally
		e.log.WithError(err).Error("schedule actuation publish failed")
	} else if on {
		e.sessions.StartSession(agrimodels.SourceSchedule, id, sched.Details())
		if sched.DurationMinutes > 0 {
			e.armAutoOff(sched)
		}
	}

	if sched.Frequency == agrimodels.FrequencyWeekly {
		// one firing only
		e.sessions.DeactivateSchedule(id)
		e.mu.Lock()
		delete(e.schedules, id)
		e.mu.Unlock()
	}
}

// armAutoOff schedules the deferred "duration elapsed" off command. The
// resulting confirmed transition closes the session through the normal
// telemetry path, so one watering cycle yields one history entry.
func (e *Engine) armAutoOff(sched agrimodels.Schedule) {
	id := sched.ID
	duration := time.Duration(sched.DurationMinutes) * time.Minute

	e.mu.Lock()
	// the schedule may have been deleted between fire releasing the lock
	// and this point; an off-timer for it must not outlive the deletion
	if _, ok := e.schedules[id]; !ok {
		e.mu.Unlock()
		return
	}
	if prev, ok := e.offTimers[id]; ok {
		prev.Stop()
	}
	e.offTimers[id] = time.AfterFunc(duration, func() {
		e.mu.Lock()
		delete(e.offTimers, id)
		e.mu.Unlock()

		e.log.WithField("schedule_id", id).Info("watering duration elapsed, switching motor off")
		if err := e.pub.PublishControl(false); err != nil {
			e.log.WithError(err).Error("auto-off publish failed")
		}
	})
	e.mu.Unlock()
}

// Stop cancels every pending timer. Used during shutdown.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation++
	for _, timer := range e.fireTimers {
		timer.Stop()
	}
	for _, timer := range e.offTimers {
		timer.Stop()
	}
	e.fireTimers = make(map[string]*time.Timer)
	e.offTimers = make(map[string]*time.Timer)
}

// PendingAutoOff reports whether a duration auto-off timer is armed for the
// schedule id.
func (e *Engine) PendingAutoOff(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.offTimers[id]
	return ok
}

// NextFire computes when the schedule should fire next. Daily schedules
// recur at TimeOfDay every day. Weekly schedules fire once at Date +
// TimeOfDay and never fire retroactively: a fire instant already in the
// past at setup time is skipped outright.
func NextFire(sched agrimodels.Schedule, now time.Time) (time.Time, bool) {
	if !sched.Active {
		return time.Time{}, false
	}
	tod, err := time.Parse(agrimodels.TimeOfDayLayout, sched.TimeOfDay)
	if err != nil {
		return time.Time{}, false
	}

	switch sched.Frequency {
	case agrimodels.FrequencyDaily:
		candidate := time.Date(now.Year(), now.Month(), now.Day(),
			tod.Hour(), tod.Minute(), 0, 0, now.Location())
		if !candidate.After(now) {
			candidate = candidate.Add(24 * time.Hour)
		}
		return candidate, true

	case agrimodels.FrequencyWeekly:
		day, err := time.ParseInLocation(agrimodels.DateLayout, sched.Date, now.Location())
		if err != nil {
			return time.Time{}, false
		}
		fireAt := time.Date(day.Year(), day.Month(), day.Day(),
			tod.Hour(), tod.Minute(), 0, 0, now.Location())
		if !fireAt.After(now) {
			return time.Time{}, false
		}
		return fireAt, true
	}
	return time.Time{}, false
}
