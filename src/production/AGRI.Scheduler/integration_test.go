package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	config "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Config"
	coordinator "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Coordinator"
	agrimodels "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Models"
)

// loopbackDevice plays the field device: every accepted command is confirmed
// back to the coordinator as a motor status message after a short delay.
type loopbackDevice struct {
	coord *coordinator.Coordinator
	delay time.Duration

	mu       sync.Mutex
	commands []bool
}

func (d *loopbackDevice) PublishControl(on bool) error {
	d.mu.Lock()
	d.commands = append(d.commands, on)
	d.mu.Unlock()
	time.AfterFunc(d.delay, func() {
		d.coord.RecordActuatorStatus(on)
	})
	return nil
}

func (d *loopbackDevice) Commands() []bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]bool, len(d.commands))
	copy(out, d.commands)
	return out
}

// The full daily watering cycle: the schedule fires, the motor switches on,
// the session is attributed to the schedule, and the confirmed off
// transition after the watering duration yields exactly one history event.
func TestDailyScheduleWateringCycle(t *testing.T) {
	clock := struct {
		mu sync.Mutex
		t  time.Time
	}{t: time.Date(2026, 6, 1, 5, 59, 59, int(900*time.Millisecond), time.UTC)}
	now := func() time.Time {
		clock.mu.Lock()
		defer clock.mu.Unlock()
		return clock.t
	}
	advance := func(d time.Duration) {
		clock.mu.Lock()
		clock.t = clock.t.Add(d)
		clock.mu.Unlock()
	}

	log := testLogger()
	coord := coordinator.New(config.CoordinatorConfig{
		HistoryCap: 500, HistoryFlushEvery: 5, LogCap: 100,
		StaleThreshold: 15 * time.Second, MonitorInterval: 5 * time.Second,
		SubscriberLimit: 50, SubscriberStale: 90 * time.Second,
		HeartbeatInterval: 30 * time.Second,
	}, log)
	coord.SetNow(now)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coord.Run(ctx)

	device := &loopbackDevice{coord: coord, delay: 30 * time.Millisecond}
	engine := New(device, coord, log)
	engine.SetNow(now)
	defer engine.Stop()
	coord.SetRebuilder(engine)

	_, err := coord.AddSchedule(agrimodels.Schedule{
		TimeOfDay:       "06:00",
		Action:          agrimodels.ActionOn,
		DurationMinutes: 10,
		Frequency:       agrimodels.FrequencyDaily,
	})
	require.NoError(t, err)

	// fire (~100ms out) and the delayed device confirmation
	require.Eventually(t, func() bool {
		sess := coord.ActiveSession()
		return sess != nil && sess.Source == agrimodels.SourceSchedule
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []bool{true}, device.Commands())
	sched := coord.Schedules()[0]
	assert.True(t, engine.PendingAutoOff(sched.ID))

	// confirmation must not have restarted the session
	time.Sleep(100 * time.Millisecond)
	require.NotNil(t, coord.ActiveSession())
	assert.Equal(t, 0, coord.History(1, 10).Total)

	// watering duration elapses; the off confirmation arrives
	advance(10 * time.Minute)
	coord.RecordActuatorStatus(false)

	require.Eventually(t, func() bool { return coord.ActiveSession() == nil },
		2*time.Second, 10*time.Millisecond)

	page := coord.History(1, 10)
	require.Equal(t, 1, page.Total, "one watering cycle, one history event")
	event := page.Items[0]
	assert.Equal(t, agrimodels.SourceSchedule, event.Source)
	assert.Equal(t, sched.ID, event.ScheduleRef)
	assert.Equal(t, 10, event.DurationMinutes)
	require.NotNil(t, event.ScheduleDetails)
	assert.Equal(t, "06:00", event.ScheduleDetails.TimeOfDay)
}
