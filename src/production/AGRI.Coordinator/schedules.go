package coordinator

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	agrimodels "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Models"
)

// ErrScheduleNotFound is returned when a schedule id does not exist.
var ErrScheduleNotFound = errors.New("schedule not found")

// AddSchedule validates and stores a new schedule, persists the list and
// rebuilds the engine's fire triggers.
func (c *Coordinator) AddSchedule(sched agrimodels.Schedule) (agrimodels.Schedule, error) {
	if err := sched.Validate(); err != nil {
		return agrimodels.Schedule{}, err
	}
	sched.ID = uuid.NewString()
	sched.Active = true
	if sched.Frequency == agrimodels.FrequencyDaily {
		sched.Date = ""
	}
	c.call(func() {
		sched.CreatedAt = c.now()
		c.schedules = append(c.schedules, sched)
		c.appendLog(agrimodels.LogLevelInfo,
			fmt.Sprintf("schedule created (%s %s at %s)", sched.Frequency, sched.Action, sched.TimeOfDay))
		c.markDirty()
		c.rebuildTriggers()
	})
	return sched, nil
}

// DeleteSchedule removes a schedule, persists the list and rebuilds the
// engine's fire triggers, which also cancels any pending duration auto-off
// timer for the schedule.
func (c *Coordinator) DeleteSchedule(id string) error {
	err := ErrScheduleNotFound
	c.call(func() {
		for i, sched := range c.schedules {
			if sched.ID == id {
				c.schedules = append(c.schedules[:i], c.schedules[i+1:]...)
				c.appendLog(agrimodels.LogLevelInfo, "schedule deleted: "+id)
				c.markDirty()
				c.rebuildTriggers()
				err = nil
				return
			}
		}
	})
	return err
}

// DeactivateSchedule marks a schedule inactive and persists the change.
// The engine calls this after a weekly schedule fires its single time; the
// engine has already retired its own fire timer, so no rebuild is needed.
func (c *Coordinator) DeactivateSchedule(id string) {
	c.do(func() {
		for i := range c.schedules {
			if c.schedules[i].ID == id {
				c.schedules[i].Active = false
				c.appendLog(agrimodels.LogLevelInfo, "weekly schedule deactivated after firing: "+id)
				c.markDirty()
				return
			}
		}
	})
}

// Schedules returns a copy of the schedule list.
func (c *Coordinator) Schedules() []agrimodels.Schedule {
	var out []agrimodels.Schedule
	c.call(func() {
		out = make([]agrimodels.Schedule, len(c.schedules))
		copy(out, c.schedules)
	})
	return out
}

// RebuildTriggers pushes the current schedule list into the engine. Called
// once at startup after persisted state is loaded.
func (c *Coordinator) RebuildTriggers() {
	c.call(func() { c.rebuildTriggers() })
}

// rebuildTriggers hands the engine a snapshot of the list. Loop-confined.
func (c *Coordinator) rebuildTriggers() {
	if c.rebuilder == nil {
		return
	}
	snapshot := make([]agrimodels.Schedule, len(c.schedules))
	copy(snapshot, c.schedules)
	c.rebuilder.Rebuild(snapshot)
}

// PersistState returns copies of the durable state for the persistence
// writer: the schedule list and the history log, newest first.
func (c *Coordinator) PersistState() ([]agrimodels.Schedule, []agrimodels.IrrigationEvent) {
	var (
		schedules []agrimodels.Schedule
		history   []agrimodels.IrrigationEvent
	)
	c.call(func() {
		schedules = make([]agrimodels.Schedule, len(c.schedules))
		copy(schedules, c.schedules)
		history = make([]agrimodels.IrrigationEvent, len(c.history))
		copy(history, c.history)
	})
	return schedules, history
}
