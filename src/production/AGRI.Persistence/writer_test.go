package persistence

import (
	"context"
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

type fakeSource struct {
	mu        sync.Mutex
	schedules []agrimodels.Schedule
	history   []agrimodels.IrrigationEvent
}

func (s *fakeSource) PersistState() ([]agrimodels.Schedule, []agrimodels.IrrigationEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedules, s.history
}

type fakeScheduleRepo struct {
	mu       sync.Mutex
	writes   int
	failNext int
	last     []agrimodels.Schedule
}

func (r *fakeScheduleRepo) ReplaceAll(ctx context.Context, schedules []agrimodels.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext > 0 {
		r.failNext--
		return errors.New("write failed")
	}
	r.writes++
	r.last = schedules
	return nil
}

func (r *fakeScheduleRepo) LoadAll(ctx context.Context) ([]agrimodels.Schedule, error) {
	return nil, nil
}

func (r *fakeScheduleRepo) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

type fakeHistoryRepo struct {
	mu     sync.Mutex
	writes int
	last   []agrimodels.IrrigationEvent
}

func (r *fakeHistoryRepo) ReplaceAll(ctx context.Context, events []agrimodels.IrrigationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	r.last = events
	return nil
}

func (r *fakeHistoryRepo) LoadRecent(ctx context.Context, limit int) ([]agrimodels.IrrigationEvent, error) {
	return nil, nil
}

func (r *fakeHistoryRepo) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func (r *fakeHistoryRepo) Last() []agrimodels.IrrigationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func testLogger() *logger.Logger {
	return logger.NewLogger(&config.LoggingConfig{Level: "error", Format: "text"})
}

func newTestWriter(debounce time.Duration, maxPending, historyCap int) (*Writer, *fakeSource, *fakeScheduleRepo, *fakeHistoryRepo) {
	source := &fakeSource{}
	schedRepo := &fakeScheduleRepo{}
	histRepo := &fakeHistoryRepo{}
	w := NewWriter(source, schedRepo, histRepo, debounce, maxPending, historyCap, testLogger())
	return w, source, schedRepo, histRepo
}

func TestDebounceCoalescesBurstIntoOneFlush(t *testing.T) {
	w, _, schedRepo, histRepo := newTestWriter(30*time.Millisecond, 100, 500)

	for i := 0; i < 10; i++ {
		w.MarkDirty()
	}

	require.Eventually(t, func() bool { return schedRepo.Writes() == 1 },
		2*time.Second, 5*time.Millisecond)

	// quiescence: no further flushes
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, schedRepo.Writes())
	assert.Equal(t, 1, histRepo.Writes())
}

func TestPendingCapForcesImmediateFlush(t *testing.T) {
	w, _, schedRepo, _ := newTestWriter(time.Hour, 3, 500)

	w.MarkDirty()
	w.MarkDirty()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, schedRepo.Writes(), "below the cap, only the debounce timer is armed")

	w.MarkDirty()
	require.Eventually(t, func() bool { return schedRepo.Writes() == 1 },
		2*time.Second, 5*time.Millisecond, "the capth notice flushes without waiting out the debounce")
}

func TestFlushNoopWhenClean(t *testing.T) {
	w, _, schedRepo, histRepo := newTestWriter(10*time.Millisecond, 100, 500)

	require.NoError(t, w.Flush(context.Background()))
	assert.Equal(t, 0, schedRepo.Writes())
	assert.Equal(t, 0, histRepo.Writes())
}

func TestFailedFlushRetriesOnNextCycle(t *testing.T) {
	w, _, schedRepo, _ := newTestWriter(20*time.Millisecond, 100, 500)
	schedRepo.failNext = 1

	w.MarkDirty()

	require.Eventually(t, func() bool { return schedRepo.Writes() == 1 },
		2*time.Second, 5*time.Millisecond, "the failed write is retried after another debounce window")
}

func TestFlushTruncatesHistoryToCap(t *testing.T) {
	w, source, _, histRepo := newTestWriter(time.Hour, 100, 5)

	source.history = make([]agrimodels.IrrigationEvent, 12)
	w.MarkDirty()
	require.NoError(t, w.Flush(context.Background()))

	assert.Len(t, histRepo.Last(), 5)
}

func TestShutdownFlushIsSynchronous(t *testing.T) {
	w, source, schedRepo, histRepo := newTestWriter(time.Hour, 100, 500)
	source.schedules = []agrimodels.Schedule{{ID: "s1", TimeOfDay: "06:00",
		Action: agrimodels.ActionOn, Frequency: agrimodels.FrequencyDaily, Active: true}}

	w.MarkDirty()
	require.NoError(t, w.Flush(context.Background()))

	assert.Equal(t, 1, schedRepo.Writes())
	assert.Equal(t, 1, histRepo.Writes())

	// the pending debounce timer was consumed by the synchronous flush
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, schedRepo.Writes())
}
