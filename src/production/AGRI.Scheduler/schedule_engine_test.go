package scheduler

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	config "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Config"
	logger "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Logger"
	agrimodels "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Models"
)

type recordingPublisher struct {
	mu       sync.Mutex
	commands []bool
	fail     bool
}

func (p *recordingPublisher) PublishControl(on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unreachable")
	}
	p.commands = append(p.commands, on)
	return nil
}

func (p *recordingPublisher) Commands() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]bool, len(p.commands))
	copy(out, p.commands)
	return out
}

type recordingSessions struct {
	mu          sync.Mutex
	started     []string
	deactivated []string
}

func (s *recordingSessions) StartSession(source, scheduleRef string, details *agrimodels.ScheduleDetails) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, scheduleRef)
}

func (s *recordingSessions) DeactivateSchedule(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deactivated = append(s.deactivated, id)
}

func (s *recordingSessions) Started() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.started))
	copy(out, s.started)
	return out
}

func (s *recordingSessions) Deactivated() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.deactivated))
	copy(out, s.deactivated)
	return out
}

func testLogger() *logger.Logger {
	return logger.NewLogger(&config.LoggingConfig{Level: "error", Format: "text"})
}

func newTestEngine(t *testing.T, now time.Time) (*Engine, *recordingPublisher, *recordingSessions) {
	t.Helper()
	pub := &recordingPublisher{}
	sessions := &recordingSessions{}
	engine := New(pub, sessions, testLogger())
	engine.SetNow(func() time.Time { return now })
	t.Cleanup(engine.Stop)
	return engine, pub, sessions
}

func TestNextFireDaily(t *testing.T) {
	now := time.Date(2026, 6, 1, 5, 30, 0, 0, time.UTC)

	sched := agrimodels.Schedule{ID: "d1", TimeOfDay: "06:00", Action: agrimodels.ActionOn,
		Frequency: agrimodels.FrequencyDaily, Active: true}

	fireAt, ok := NextFire(sched, now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 6, 1, 6, 0, 0, 0, time.UTC), fireAt, "before time of day fires today")

	fireAt, ok = NextFire(sched, time.Date(2026, 6, 1, 7, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 6, 2, 6, 0, 0, 0, time.UTC), fireAt, "past time of day fires tomorrow")

	sched.Active = false
	_, ok = NextFire(sched, now)
	assert.False(t, ok, "inactive schedules never fire")

	sched.Active = true
	sched.TimeOfDay = "6am"
	_, ok = NextFire(sched, now)
	assert.False(t, ok, "unparseable time of day disarms the schedule")
}

func TestNextFireWeekly(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	sched := agrimodels.Schedule{ID: "w1", TimeOfDay: "18:00", Action: agrimodels.ActionOn,
		Frequency: agrimodels.FrequencyWeekly, Date: "2026-06-03", Active: true}

	fireAt, ok := NextFire(sched, now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 6, 3, 18, 0, 0, 0, time.UTC), fireAt)

	sched.Date = "2026-05-20"
	_, ok = NextFire(sched, now)
	assert.False(t, ok, "a date in the past never fires retroactively")

	sched.Date = "2026-06-01"
	sched.TimeOfDay = "09:00"
	_, ok = NextFire(sched, now)
	assert.False(t, ok, "a fire instant earlier today is skipped, not fired late")

	sched.Date = "June 3rd"
	_, ok = NextFire(sched, now)
	assert.False(t, ok)
}

func TestWeeklyFiresOnceAndDeactivates(t *testing.T) {
	now := time.Date(2026, 6, 1, 17, 59, 59, int(950*time.Millisecond), time.UTC)
	engine, pub, sessions := newTestEngine(t, now)

	sched := agrimodels.Schedule{ID: "w1", TimeOfDay: "18:00", Action: agrimodels.ActionOn,
		DurationMinutes: 30, Frequency: agrimodels.FrequencyWeekly, Date: "2026-06-01", Active: true}
	engine.Rebuild([]agrimodels.Schedule{sched})

	require.Eventually(t, func() bool { return len(sessions.Deactivated()) == 1 },
		2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []bool{true}, pub.Commands())
	assert.Equal(t, []string{"w1"}, sessions.Started())
	assert.Equal(t, []string{"w1"}, sessions.Deactivated())
	assert.True(t, engine.PendingAutoOff("w1"), "duration auto-off armed after firing")

	// no second firing
	time.Sleep(150 * time.Millisecond)
	assert.Len(t, pub.Commands(), 1)
}

func TestDailyReArmsAfterFire(t *testing.T) {
	now := time.Date(2026, 6, 1, 5, 59, 59, int(950*time.Millisecond), time.UTC)
	engine, _, sessions := newTestEngine(t, now)

	sched := agrimodels.Schedule{ID: "d1", TimeOfDay: "06:00", Action: agrimodels.ActionOn,
		Frequency: agrimodels.FrequencyDaily, Active: true}
	engine.Rebuild([]agrimodels.Schedule{sched})

	require.Eventually(t, func() bool { return len(sessions.Started()) == 1 },
		2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"d1"}, sessions.Started())
	assert.Empty(t, sessions.Deactivated(), "daily schedules stay active")

	engine.mu.Lock()
	_, rearmed := engine.fireTimers["d1"]
	engine.mu.Unlock()
	assert.True(t, rearmed, "next occurrence armed immediately after firing")
}

func TestDailyFiresOccurrenceOnlyOnce(t *testing.T) {
	// the clock still trails the armed fire instant when the timer callback
	// runs; the re-arm must target tomorrow, not today's occurrence again
	now := time.Date(2026, 6, 1, 5, 59, 59, int(900*time.Millisecond), time.UTC)
	engine, pub, sessions := newTestEngine(t, now)

	sched := agrimodels.Schedule{ID: "d1", TimeOfDay: "06:00", Action: agrimodels.ActionOn,
		Frequency: agrimodels.FrequencyDaily, Active: true}
	engine.Rebuild([]agrimodels.Schedule{sched})

	require.Eventually(t, func() bool { return len(sessions.Started()) >= 1 },
		2*time.Second, 10*time.Millisecond)

	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, []bool{true}, pub.Commands(), "one occurrence publishes exactly once")
	assert.Equal(t, []string{"d1"}, sessions.Started())

	engine.mu.Lock()
	_, rearmed := engine.fireTimers["d1"]
	engine.mu.Unlock()
	assert.True(t, rearmed, "tomorrow's occurrence is armed")
}

func TestArmAutoOffSkipsDeletedSchedule(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	engine, _, _ := newTestEngine(t, now)

	sched := agrimodels.Schedule{ID: "d1", TimeOfDay: "06:00", Action: agrimodels.ActionOn,
		DurationMinutes: 30, Frequency: agrimodels.FrequencyDaily, Active: true}
	engine.Rebuild([]agrimodels.Schedule{sched})

	// deletion lands between the fire callback and the auto-off arming
	engine.Rebuild(nil)
	engine.armAutoOff(sched)

	assert.False(t, engine.PendingAutoOff("d1"), "no off-timer may outlive its schedule")
}

func TestRebuildInvalidatesPendingFire(t *testing.T) {
	now := time.Date(2026, 6, 1, 5, 59, 59, int(900*time.Millisecond), time.UTC)
	engine, pub, _ := newTestEngine(t, now)

	sched := agrimodels.Schedule{ID: "d1", TimeOfDay: "06:00", Action: agrimodels.ActionOn,
		Frequency: agrimodels.FrequencyDaily, Active: true}
	engine.Rebuild([]agrimodels.Schedule{sched})
	engine.Rebuild(nil)

	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, pub.Commands(), "rebuild cancels timers armed for removed schedules")
}

func TestFailedPublishDoesNotStartSession(t *testing.T) {
	now := time.Date(2026, 6, 1, 5, 59, 59, int(950*time.Millisecond), time.UTC)
	engine, pub, sessions := newTestEngine(t, now)
	pub.fail = true

	sched := agrimodels.Schedule{ID: "d1", TimeOfDay: "06:00", Action: agrimodels.ActionOn,
		DurationMinutes: 15, Frequency: agrimodels.FrequencyDaily, Active: true}
	engine.Rebuild([]agrimodels.Schedule{sched})

	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, sessions.Started())
	assert.False(t, engine.PendingAutoOff("d1"))
}

func TestRebuildCancelsAutoOffForDeletedSchedules(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	engine, _, _ := newTestEngine(t, now)

	sched := agrimodels.Schedule{ID: "d1", TimeOfDay: "06:00", Action: agrimodels.ActionOn,
		DurationMinutes: 30, Frequency: agrimodels.FrequencyDaily, Active: true}
	other := agrimodels.Schedule{ID: "d2", TimeOfDay: "07:00", Action: agrimodels.ActionOn,
		DurationMinutes: 10, Frequency: agrimodels.FrequencyDaily, Active: true}

	engine.Rebuild([]agrimodels.Schedule{sched, other})
	engine.armAutoOff(sched)
	engine.armAutoOff(other)
	require.True(t, engine.PendingAutoOff("d1"))
	require.True(t, engine.PendingAutoOff("d2"))

	// d1 removed, d2 kept: only d1's pending off command is cancelled
	engine.Rebuild([]agrimodels.Schedule{other})
	assert.False(t, engine.PendingAutoOff("d1"), "deleting a schedule cancels its auto-off")
	assert.True(t, engine.PendingAutoOff("d2"), "surviving schedules keep their auto-off")
}

func TestStopCancelsEverything(t *testing.T) {
	now := time.Date(2026, 6, 1, 5, 59, 59, int(900*time.Millisecond), time.UTC)
	engine, pub, _ := newTestEngine(t, now)

	sched := agrimodels.Schedule{ID: "d1", TimeOfDay: "06:00", Action: agrimodels.ActionOn,
		DurationMinutes: 30, Frequency: agrimodels.FrequencyDaily, Active: true}
	engine.Rebuild([]agrimodels.Schedule{sched})
	engine.armAutoOff(sched)
	engine.Stop()

	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, pub.Commands())
	assert.False(t, engine.PendingAutoOff("d1"))
}
