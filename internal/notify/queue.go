package notify

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/celerix-dev/celerix-console/internal/metrics"
	"github.com/celerix-dev/celerix-console/internal/schedule"
)

// Queue is an ordered, in-memory list of notifications with per-entry expiry.
// It is safe for concurrent use.
type Queue struct {
	sched      *schedule.Scheduler
	chime      Chime
	logger     *slog.Logger
	metrics    *metrics.Metrics
	defaultTTL time.Duration

	mu      sync.Mutex
	entries []Notification
	expiry  map[string]*schedule.Task
	seq     int64
	subs    map[int]chan Event
	nextSub int
	closed  bool
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithChime sets the audio cue player. The default plays nothing.
func WithChime(c Chime) QueueOption {
	return func(q *Queue) { q.chime = c }
}

// WithLogger sets the queue logger.
func WithLogger(l *slog.Logger) QueueOption {
	return func(q *Queue) { q.logger = l }
}

// WithMetrics sets the collectors updated on push and removal.
func WithMetrics(m *metrics.Metrics) QueueOption {
	return func(q *Queue) { q.metrics = m }
}

// WithDefaultTTL overrides DefaultTTL.
func WithDefaultTTL(d time.Duration) QueueOption {
	return func(q *Queue) {
		if d > 0 {
			q.defaultTTL = d
		}
	}
}

// NewQueue creates an empty queue whose expiries run on sched.
func NewQueue(sched *schedule.Scheduler, opts ...QueueOption) *Queue {
	q := &Queue{
		sched:      sched,
		chime:      NopChime{},
		defaultTTL: DefaultTTL,
		expiry:     make(map[string]*schedule.Task),
		subs:       make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.logger == nil {
		q.logger = slog.Default()
	}
	return q
}

type pushConfig struct {
	ttl    time.Duration
	silent bool
}

// PushOption adjusts a single push.
type PushOption func(*pushConfig)

// WithTTL sets the entry's time-to-live.
func WithTTL(d time.Duration) PushOption {
	return func(c *pushConfig) { c.ttl = d }
}

// Silent suppresses the audio cue.
func Silent() PushOption {
	return func(c *pushConfig) { c.silent = true }
}

// Push stores n and schedules its removal, returning the assigned id.
// Any id, creation time or TTL already set on n are replaced. The TTL is, in order,
// the WithTTL option, n.TTLMs, or the queue default.
// After Close, Push returns "" and stores nothing.
func (q *Queue) Push(n Notification, opts ...PushOption) string {
	cfg := pushConfig{ttl: n.TTL()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ttl <= 0 {
		cfg.ttl = q.defaultTTL
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ""
	}
	now := q.sched.Now()
	q.seq++
	n.ID = strconv.FormatInt(now.UnixMilli(), 36) + "-" + string(n.Category) + "-" + strconv.FormatInt(q.seq, 36)
	n.CreatedAt = now
	n.TTLMs = cfg.ttl.Milliseconds()
	q.entries = append(q.entries, n)

	id := n.ID
	q.expiry[id] = q.sched.After(cfg.ttl, func() { q.remove(id, ReasonExpired) })
	sound := ""
	if !cfg.silent {
		sound = soundKeyOf(n)
	}
	q.broadcast(Event{Type: EventPushed, Notification: n, Sound: SoundAsset(sound)})
	q.mu.Unlock()

	q.metrics.NotificationPushed(string(n.Category))
	q.logger.Debug("notification pushed",
		slog.String("id", id),
		slog.String("category", string(n.Category)),
		slog.String("title", n.Title))
	if sound != "" {
		q.chime.Play(sound)
	}
	return id
}

// Success pushes a success notification with the default TTL.
func (q *Queue) Success(title, message string) string {
	return q.Push(Notification{Category: CategorySuccess, Title: title, Message: message})
}

// Error pushes an error notification with the default TTL.
func (q *Queue) Error(title, message string) string {
	return q.Push(Notification{Category: CategoryError, Title: title, Message: message})
}

// Info pushes an info notification with the default TTL.
func (q *Queue) Info(title, message string) string {
	return q.Push(Notification{Category: CategoryInfo, Title: title, Message: message})
}

// Warning pushes a warning notification with the default TTL.
func (q *Queue) Warning(title, message string) string {
	return q.Push(Notification{Category: CategoryWarning, Title: title, Message: message})
}

// Dismiss removes the entry now. Unknown or already removed ids are ignored.
func (q *Queue) Dismiss(id string) {
	q.remove(id, ReasonDismissed)
}

// remove deletes id and cancels its pending expiry. Both the expiry callback and
// Dismiss go through here, so whichever runs second finds nothing and returns.
func (q *Queue) remove(id, reason string) {
	q.mu.Lock()
	idx := -1
	for i := range q.entries {
		if q.entries[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		q.mu.Unlock()
		return
	}
	n := q.entries[idx]
	q.entries = append(q.entries[:idx], q.entries[idx+1:]...)
	if task, ok := q.expiry[id]; ok {
		task.Stop()
		delete(q.expiry, id)
	}
	q.broadcast(Event{Type: EventRemoved, Notification: n, Reason: reason})
	q.mu.Unlock()

	q.metrics.NotificationRemoved(reason)
}

// List returns the live entries, oldest first.
func (q *Queue) List() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.live()
}

// live must be called with q.mu held.
func (q *Queue) live() []Notification {
	now := q.sched.Now()
	out := make([]Notification, 0, len(q.entries))
	for _, n := range q.entries {
		// The expiry callback may lag behind the clock.
		if !now.Before(n.ExpiresAt()) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Len returns the number of stored entries, including any awaiting their expiry callback.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Subscribe returns a channel receiving every subsequent queue event, and a function
// that ends the subscription. Events are dropped for a subscriber whose buffer is full.
func (q *Queue) Subscribe(buffer int) (<-chan Event, func()) {
	_, ch, cancel := q.SubscribeWithSnapshot(buffer)
	return ch, cancel
}

// SubscribeWithSnapshot is Subscribe that also returns the live entries at the moment
// of subscribing. Each entry is either in the snapshot or announced on the channel,
// never both.
func (q *Queue) SubscribeWithSnapshot(buffer int) ([]Notification, <-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		close(ch)
		return nil, ch, func() {}
	}
	id := q.nextSub
	q.nextSub++
	q.subs[id] = ch

	var once sync.Once
	return q.live(), ch, func() {
		once.Do(func() {
			q.mu.Lock()
			defer q.mu.Unlock()
			if c, ok := q.subs[id]; ok {
				delete(q.subs, id)
				close(c)
			}
		})
	}
}

// broadcast must be called with q.mu held.
func (q *Queue) broadcast(ev Event) {
	for _, ch := range q.subs {
		select {
		case ch <- ev:
		default:
			q.logger.Warn("notification subscriber lagging, event dropped", slog.String("id", ev.Notification.ID))
		}
	}
}

// Close cancels every pending expiry, drops all entries and closes subscriber channels.
// The queue accepts no pushes afterwards.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	for id, task := range q.expiry {
		task.Stop()
		delete(q.expiry, id)
	}
	q.entries = nil
	for id, ch := range q.subs {
		delete(q.subs, id)
		close(ch)
	}
}
