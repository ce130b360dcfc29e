// Package persistence coalesces bursts of state mutations into single
// durable writes. The coordinator's hot path only ever calls MarkDirty;
// the actual document-store I/O happens here, off the coordinator loop.
package persistence

import (
	"context"
	"sync"
	"time"

	logger "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Logger"
	agrimodels "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Models"
	interfaces "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Repository/Interfaces"
)

// StateSource yields the durable state snapshot. Implemented by the
// coordinator.
type StateSource interface {
	PersistState() ([]agrimodels.Schedule, []agrimodels.IrrigationEvent)
}

// Writer debounces mutation notices: a flush runs after the quiescence
// window elapses with no further notice, or unconditionally once
// maxPending notices have accumulated, whichever comes first. Write
// failures are logged and retried on the next cycle; they are never fatal.
type Writer struct {
	source     StateSource
	schedules  interfaces.ScheduleRepository
	history    interfaces.HistoryRepository
	log        *logger.Logger
	debounce   time.Duration
	maxPending int
	historyCap int

	mu      sync.Mutex
	dirty   bool
	pending int
	timer   *time.Timer

	flushMu sync.Mutex
}

// NewWriter creates a persistence writer.
func NewWriter(source StateSource, schedules interfaces.ScheduleRepository, history interfaces.HistoryRepository,
	debounce time.Duration, maxPending, historyCap int, log *logger.Logger) *Writer {
	return &Writer{
		source:     source,
		schedules:  schedules,
		history:    history,
		log:        log.WithComponent("persistence"),
		debounce:   debounce,
		maxPending: maxPending,
		historyCap: historyCap,
	}
}

// MarkDirty records one mutation notice. Never blocks on I/O.
func (w *Writer) MarkDirty() {
	w.mu.Lock()
	w.dirty = true
	w.pending++
	hitCap := w.pending >= w.maxPending
	if hitCap {
		w.pending = 0
		if w.timer != nil {
			w.timer.Stop()
			w.timer = nil
		}
	} else {
		if w.timer != nil {
			w.timer.Stop()
		}
		w.timer = time.AfterFunc(w.debounce, w.flushAsync)
	}
	w.mu.Unlock()

	if hitCap {
		go w.flushAsync()
	}
}

func (w *Writer) flushAsync() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := w.Flush(ctx); err != nil {
		w.log.WithError(err).Error("state flush failed, will retry on next cycle")
	}
}

// Flush writes the current snapshot if anything changed since the last
// successful flush. Called synchronously on graceful shutdown.
func (w *Writer) Flush(ctx context.Context) error {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.mu.Lock()
	if !w.dirty {
		w.mu.Unlock()
		return nil
	}
	w.dirty = false
	w.pending = 0
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	schedules, history := w.source.PersistState()
	if len(history) > w.historyCap {
		history = history[:w.historyCap]
	}

	if err := w.schedules.ReplaceAll(ctx, schedules); err != nil {
		w.markRetry()
		return err
	}
	if err := w.history.ReplaceAll(ctx, history); err != nil {
		w.markRetry()
		return err
	}
	w.log.WithField("schedules", len(schedules)).WithField("events", len(history)).Debug("state flushed")
	return nil
}

// markRetry re-flags the state so the next debounce cycle retries the
// failed write.
func (w *Writer) markRetry() {
	w.mu.Lock()
	w.dirty = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushAsync)
	w.mu.Unlock()
}
