// Package broadcaster fans state-change events out to live dashboard
// subscribers. The registry is owned by the coordinator loop and must only
// be touched from there; it does no locking of its own.
package broadcaster

import (
	"errors"
	"time"

	"github.com/google/uuid"
	logger "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Logger"
	agrimodels "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Models"
)

// ErrSubscriberLimit is returned when the registry is at capacity.
var ErrSubscriberLimit = errors.New("subscriber limit reached")

// subscriberBuffer is the per-connection event buffer. A subscriber that
// falls this far behind is treated as hung and dropped.
const subscriberBuffer = 16

// Subscriber is one live push-stream connection.
type Subscriber struct {
	ID        string
	CreatedAt time.Time

	ch       chan agrimodels.StreamEvent
	lastPush time.Time
}

// Events returns the channel the connection handler drains. It is closed
// when the subscriber is dropped.
func (s *Subscriber) Events() <-chan agrimodels.StreamEvent {
	return s.ch
}

// Broadcaster maintains the subscriber registry and delivers events
// best-effort: a slow or dead subscriber is dropped, never waited on.
type Broadcaster struct {
	limit int
	stale time.Duration
	log   *logger.Logger
	subs  map[string]*Subscriber

	now func() time.Time
}

// New creates a broadcaster with the given capacity ceiling and staleness
// window.
func New(limit int, stale time.Duration, log *logger.Logger) *Broadcaster {
	return &Broadcaster{
		limit: limit,
		stale: stale,
		log:   log,
		subs:  make(map[string]*Subscriber),
		now:   time.Now,
	}
}

// SetNow overrides the clock. Test hook.
func (b *Broadcaster) SetNow(now func() time.Time) {
	b.now = now
}

// Subscribe registers a new connection and synchronously queues the given
// full-state snapshot as its first event, so new clients never start blind.
func (b *Broadcaster) Subscribe(snapshot agrimodels.StreamEvent) (*Subscriber, error) {
	if len(b.subs) >= b.limit {
		return nil, ErrSubscriberLimit
	}
	sub := &Subscriber{
		ID:        uuid.NewString(),
		CreatedAt: b.now(),
		ch:        make(chan agrimodels.StreamEvent, subscriberBuffer),
		lastPush:  b.now(),
	}
	sub.ch <- snapshot
	b.subs[sub.ID] = sub
	b.log.WithField("subscriber_id", sub.ID).Debug("subscriber registered")
	return sub, nil
}

// Unsubscribe removes a connection. Safe to call for an already-dropped id.
func (b *Broadcaster) Unsubscribe(id string) {
	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(sub.ch)
}

// Publish writes the event to every live subscriber. The registry is
// snapshotted before iterating so that drops triggered by failed writes
// never mutate the map mid-pass.
func (b *Broadcaster) Publish(evt agrimodels.StreamEvent) {
	if len(b.subs) == 0 {
		return
	}
	targets := make([]*Subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		targets = append(targets, sub)
	}

	var failed []string
	for _, sub := range targets {
		select {
		case sub.ch <- evt:
			sub.lastPush = b.now()
		default:
			// buffer full: hung consumer
			failed = append(failed, sub.ID)
		}
	}
	for _, id := range failed {
		b.log.WithField("subscriber_id", id).Warn("dropping unresponsive subscriber")
		b.Unsubscribe(id)
	}
}

// Sweep drops subscribers with no successful push inside the staleness
// window. Called periodically alongside the heartbeat.
func (b *Broadcaster) Sweep() {
	cutoff := b.now().Add(-b.stale)
	var stale []string
	for id, sub := range b.subs {
		if sub.lastPush.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		b.log.WithField("subscriber_id", id).Warn("dropping stale subscriber")
		b.Unsubscribe(id)
	}
}

// Count returns the number of live subscribers.
func (b *Broadcaster) Count() int {
	return len(b.subs)
}

// CloseAll drops every subscriber. Used during shutdown.
func (b *Broadcaster) CloseAll() {
	for id := range b.subs {
		b.Unsubscribe(id)
	}
}
