package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ariabot/aria/aria/database/models"
)

const (
	defaultPollInterval    = 30 * time.Second
	defaultShortThreshold  = 60 * time.Second
	maxConsecutiveFailures = 5
	dispatchTimeout        = 30 * time.Second
)

// Store is the persistence surface the dispatcher needs. The timer
// repository satisfies it.
type Store interface {
	Insert(ctx context.Context, timer *models.Timer) error
	DueWithin(ctx context.Context, window time.Duration) ([]*models.Timer, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Handler reacts to a fired timer. Errors are logged and isolated; they
// never stop the dispatcher or other timers in the same batch.
type Handler func(ctx context.Context, timer *models.Timer) error

type Option func(*Dispatcher)

func WithPollInterval(d time.Duration) Option {
	return func(s *Dispatcher) { s.pollInterval = d }
}

func WithShortTimerThreshold(d time.Duration) Option {
	return func(s *Dispatcher) { s.shortThreshold = d }
}

// WithClock overrides the dispatcher's time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Dispatcher) { s.now = now }
}

// Dispatcher fires named events at (approximately) their requested
// time. Long timers survive restarts through the timers table; timers
// below the short threshold live only in memory.
type Dispatcher struct {
	store          Store
	pollInterval   time.Duration
	shortThreshold time.Duration
	now            func() time.Time

	mu       sync.RWMutex
	handlers map[string]Handler

	startOnce sync.Once
	shutdown  chan struct{}
}

func NewDispatcher(store Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:          store,
		pollInterval:   defaultPollInterval,
		shortThreshold: defaultShortThreshold,
		now:            time.Now,
		handlers:       make(map[string]Handler),
		shutdown:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OnTimer registers the handler for an event name. Registration must
// happen before Start; later registrations race with dispatch.
func (d *Dispatcher) OnTimer(event string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[event] = h
}

// Schedule creates a timer firing at when. Delays strictly below the
// short-timer threshold are held in memory only and skip the database;
// exactly at the threshold and above, the timer is persisted and the
// returned timer carries its assigned ID.
func (d *Dispatcher) Schedule(ctx context.Context, event string, when time.Time, payload any) (*models.Timer, error) {
	timer, err := NewTimer(event, when, payload)
	if err != nil {
		return nil, err
	}

	delay := when.Sub(d.now())
	if delay < d.shortThreshold {
		go d.fireAfter(delay, timer)
		return timer, nil
	}

	if err := d.store.Insert(ctx, timer); err != nil {
		return nil, fmt.Errorf("failed to persist timer: %w", err)
	}

	slog.Debug("Timer persisted",
		slog.String("type", "timer"),
		slog.String("event", event),
		slog.Int64("id", timer.ID),
		slog.Time("expires", when))
	return timer, nil
}

// Cancel deletes a persisted timer before it fires. Short timers have
// no cancellation path once scheduled.
func (d *Dispatcher) Cancel(ctx context.Context, id int64) (bool, error) {
	return d.store.Delete(ctx, id)
}

// Start launches the poll loop.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		go d.run()
	})
}

func (d *Dispatcher) Stop() {
	close(d.shutdown)
}

func (d *Dispatcher) run() {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ticker.C:
			if err := d.poll(); err != nil {
				failures++
				slog.Error("Timer poll failed",
					slog.String("type", "timer"),
					slog.Int("consecutive_failures", failures),
					slog.Any("error", err))
				if failures >= maxConsecutiveFailures {
					// Back off and start the polling cycle over rather
					// than spinning against a dead database.
					slog.Warn("Timer poll loop restarting after repeated failures",
						slog.String("type", "timer"))
					select {
					case <-time.After(d.pollInterval * 2):
					case <-d.shutdown:
						return
					}
					failures = 0
				}
				continue
			}
			failures = 0
		case <-d.shutdown:
			return
		}
	}
}

func (d *Dispatcher) poll() error {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	due, err := d.store.DueWithin(ctx, d.pollInterval)
	if err != nil {
		return err
	}

	for _, timer := range due {
		go d.waitAndFire(timer)
	}
	return nil
}

// waitAndFire sleeps out the timer's remaining delta, claims its row,
// and dispatches. Deleting the row first makes dispatch at-most-once:
// when two polls race over the same timer, only the deleter fires.
func (d *Dispatcher) waitAndFire(timer *models.Timer) {
	if delta := timer.Expires.Sub(d.now()); delta > 0 {
		select {
		case <-time.After(delta):
		case <-d.shutdown:
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	deleted, err := d.store.Delete(ctx, timer.ID)
	if err != nil {
		slog.Error("Failed to claim due timer",
			slog.String("type", "timer"),
			slog.Int64("id", timer.ID),
			slog.Any("error", err))
		return
	}
	if !deleted {
		// Another poll already fired this timer.
		return
	}

	d.fire(timer)
}

// fireAfter drives a short timer entirely in memory.
func (d *Dispatcher) fireAfter(delay time.Duration, timer *models.Timer) {
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-d.shutdown:
			return
		}
	}
	d.fire(timer)
}

func (d *Dispatcher) fire(timer *models.Timer) {
	d.mu.RLock()
	h, ok := d.handlers[timer.Event]
	d.mu.RUnlock()

	if !ok {
		slog.Warn("No handler for timer event",
			slog.String("type", "timer"),
			slog.String("event", timer.Event))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Timer handler panicked",
				slog.String("type", "timer"),
				slog.String("event", timer.Event),
				slog.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	if err := h(ctx, timer); err != nil {
		slog.Error("Timer handler failed",
			slog.String("type", "timer"),
			slog.String("event", timer.Event),
			slog.Int64("id", timer.ID),
			slog.Any("error", err))
		return
	}

	slog.Debug("Timer dispatched",
		slog.String("type", "timer"),
		slog.String("event", timer.Event),
		slog.Int64("id", timer.ID))
}
