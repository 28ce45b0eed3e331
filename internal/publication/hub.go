package publication

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/simple-todos/internal/domain"
	"github.com/phrazzld/simple-todos/internal/events"
)

// DefaultBufferSize is the subscription buffer used when none is given.
const DefaultBufferSize = 64

var (
	// ErrHubClosed is returned when subscribing to a closed hub, and is the
	// Err of subscriptions ended by Hub.Close.
	ErrHubClosed = errors.New("publication hub closed")

	// ErrSlowSubscriber is the Err of a subscription dropped because its
	// buffer was full.
	ErrSlowSubscriber = errors.New("subscriber too slow")
)

// Gauge receives the current number of subscribers.
// prometheus.Gauge satisfies it.
type Gauge interface {
	Set(float64)
}

// Option configures a Hub.
type Option func(*Hub)

// WithSubscriberGauge reports the subscriber count to g.
func WithSubscriberGauge(g Gauge) Option {
	return func(h *Hub) { h.gauge = g }
}

// Hub fans task events out to subscribers. It implements events.EventHandler.
//
// Events may arrive out of commit order. The hub remembers the highest
// version forwarded per task and drops anything not newer, so every
// subscriber's last message for a task reflects its latest committed state.
type Hub struct {
	mu       sync.Mutex
	subs     map[*Subscription]struct{}
	versions map[uuid.UUID]int64
	closed   bool
	gauge    Gauge
	logger   *slog.Logger
}

var _ events.EventHandler = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		subs:     make(map[*Subscription]struct{}),
		versions: make(map[uuid.UUID]int64),
		logger:   logger.With(slog.String("component", "publication_hub")),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a viewer. Messages are buffered up to bufferSize; a
// subscriber that falls further behind is dropped.
func (h *Hub) Subscribe(viewer domain.Caller, bufferSize int) (*Subscription, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}

	sub := &Subscription{
		viewer: viewer,
		ch:     make(chan Message, bufferSize),
		hub:    h,
	}
	h.subs[sub] = struct{}{}
	h.reportLocked()

	h.logger.Debug("subscriber added",
		slog.String("viewer", viewer.UserID.String()),
		slog.Int("subscribers", len(h.subs)))
	return sub, nil
}

// HandleEvent implements events.EventHandler. It never blocks on subscribers.
// Unversioned events are always forwarded.
func (h *Hub) HandleEvent(_ context.Context, event *events.TaskEvent) error {
	if event == nil || event.Task == nil {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if event.Version > 0 {
		id := event.Task.ID
		if last, seen := h.versions[id]; seen && event.Version <= last {
			h.logger.Debug("dropping stale task event",
				slog.String("task_id", id.String()),
				slog.Int64("version", event.Version),
				slog.Int64("forwarded_version", last))
			return nil
		}
		// Removals stay recorded so a late change cannot resurrect the task.
		h.versions[id] = event.Version
	}

	for sub := range h.subs {
		msg, ok := Translate(sub.viewer, event)
		if !ok {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
			h.logger.Warn("dropping slow subscriber",
				slog.String("viewer", sub.viewer.UserID.String()),
				slog.Int("buffer_size", cap(sub.ch)))
			h.removeLocked(sub, ErrSlowSubscriber)
		}
	}

	return nil
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription with ErrHubClosed and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		h.removeLocked(sub, ErrHubClosed)
	}
	h.logger.Info("publication hub closed")
}

func (h *Hub) removeLocked(sub *Subscription, reason error) {
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	sub.err = reason
	close(sub.ch)
	h.reportLocked()
}

func (h *Hub) reportLocked() {
	if h.gauge != nil {
		h.gauge.Set(float64(len(h.subs)))
	}
}

// Subscription is one viewer's stream of publication messages.
type Subscription struct {
	viewer domain.Caller
	ch     chan Message
	hub    *Hub
	err    error // guarded by hub.mu
}

// Viewer returns the caller the subscription filters for.
func (s *Subscription) Viewer() domain.Caller {
	return s.viewer
}

// Messages returns the message channel. It is closed when the subscription
// ends, after which Err reports why.
func (s *Subscription) Messages() <-chan Message {
	return s.ch
}

// Err returns the reason the subscription ended, or nil if it is live or was
// closed by its owner.
func (s *Subscription) Err() error {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.err
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.removeLocked(s, nil)
}
