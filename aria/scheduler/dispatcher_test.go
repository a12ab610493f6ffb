package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ariabot/aria/aria/database/models"
)

type fakeStore struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[int64]*models.Timer
	inserts int
	deletes int
	failDue error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[int64]*models.Timer)}
}

func (s *fakeStore) Insert(_ context.Context, timer *models.Timer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	timer.ID = s.nextID
	s.rows[timer.ID] = timer
	s.inserts++
	return nil
}

func (s *fakeStore) DueWithin(_ context.Context, window time.Duration) ([]*models.Timer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDue != nil {
		return nil, s.failDue
	}
	var due []*models.Timer
	cutoff := time.Now().Add(window)
	for _, t := range s.rows {
		if t.Expires.Before(cutoff) {
			due = append(due, t)
		}
	}
	return due, nil
}

func (s *fakeStore) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	if _, ok := s.rows[id]; !ok {
		return false, nil
	}
	delete(s.rows, id)
	return true, nil
}

func TestSchedule_ShortTimerBoundary(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		delay       time.Duration
		wantPersist bool
	}{
		{
			name:        "exactly at threshold is persisted",
			delay:       60 * time.Second,
			wantPersist: true,
		},
		{
			name:        "just under threshold stays in memory",
			delay:       60*time.Second - time.Millisecond,
			wantPersist: false,
		},
		{
			name:        "long delay is persisted",
			delay:       time.Hour,
			wantPersist: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			d := NewDispatcher(store, WithClock(func() time.Time { return base }))

			timer, err := d.Schedule(context.Background(), EventReminder, base.Add(tt.delay), ReminderPayload{UserID: "1"})
			if err != nil {
				t.Fatalf("Schedule() error = %v", err)
			}

			persisted := store.inserts > 0
			if persisted != tt.wantPersist {
				t.Errorf("persisted = %v, want %v", persisted, tt.wantPersist)
			}
			if tt.wantPersist && timer.ID == 0 {
				t.Errorf("persisted timer has no assigned ID")
			}
			if !tt.wantPersist && timer.ID != 0 {
				t.Errorf("short timer got ID %d, want 0", timer.ID)
			}
		})
	}
}

func TestShortTimer_Fires(t *testing.T) {
	store := newFakeStore()
	d := NewDispatcher(store)

	fired := make(chan *models.Timer, 1)
	d.OnTimer(EventReminder, func(_ context.Context, timer *models.Timer) error {
		fired <- timer
		return nil
	})

	_, err := d.Schedule(context.Background(), EventReminder, time.Now().Add(10*time.Millisecond), ReminderPayload{Message: "hi"})
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}

	select {
	case timer := <-fired:
		var p ReminderPayload
		if err := DecodePayload(timer, &p); err != nil {
			t.Fatalf("DecodePayload() error = %v", err)
		}
		if p.Message != "hi" {
			t.Errorf("payload message = %q, want %q", p.Message, "hi")
		}
	case <-time.After(time.Second):
		t.Fatal("short timer never fired")
	}

	if store.inserts != 0 {
		t.Errorf("short timer was persisted, inserts = %d", store.inserts)
	}
}

func TestWaitAndFire_AtMostOnce(t *testing.T) {
	store := newFakeStore()
	d := NewDispatcher(store)

	var fires atomic.Int64
	d.OnTimer(EventUnmute, func(context.Context, *models.Timer) error {
		fires.Add(1)
		return nil
	})

	timer, err := NewTimer(EventUnmute, time.Now().Add(-time.Second), UnmutePayload{GuildID: "g", UserID: "u"})
	if err != nil {
		t.Fatalf("NewTimer() error = %v", err)
	}
	if err := store.Insert(context.Background(), timer); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	// Two overlapping polls racing over the same due timer: only the
	// goroutine that deletes the row may fire.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.waitAndFire(timer)
		}()
	}
	wg.Wait()

	if got := fires.Load(); got != 1 {
		t.Errorf("timer fired %d times, want 1", got)
	}
}

func TestFire_HandlerErrorsIsolated(t *testing.T) {
	store := newFakeStore()
	d := NewDispatcher(store)

	var reminders atomic.Int64
	d.OnTimer(EventUnmute, func(context.Context, *models.Timer) error {
		return errors.New("handler blew up")
	})
	d.OnTimer(EventReminder, func(context.Context, *models.Timer) error {
		reminders.Add(1)
		return nil
	})

	due := time.Now().Add(-time.Second)
	bad, _ := NewTimer(EventUnmute, due, UnmutePayload{})
	good, _ := NewTimer(EventReminder, due, ReminderPayload{})
	store.Insert(context.Background(), bad)
	store.Insert(context.Background(), good)

	d.waitAndFire(bad)
	d.waitAndFire(good)

	if got := reminders.Load(); got != 1 {
		t.Errorf("second timer fired %d times despite first handler failing, want 1", got)
	}
}

func TestFire_PanicRecovered(t *testing.T) {
	d := NewDispatcher(newFakeStore())
	d.OnTimer(EventReminder, func(context.Context, *models.Timer) error {
		panic("boom")
	})

	timer, _ := NewTimer(EventReminder, time.Now(), ReminderPayload{})

	// Must not crash the test binary.
	d.fire(timer)
}

func TestPoll_SurfacesStoreErrors(t *testing.T) {
	store := newFakeStore()
	store.failDue = errors.New("connection refused")
	d := NewDispatcher(store)

	if err := d.poll(); err == nil {
		t.Error("poll() error = nil, want store error")
	}
}

func TestCancel_DeletesRow(t *testing.T) {
	store := newFakeStore()
	base := time.Now()
	d := NewDispatcher(store, WithClock(func() time.Time { return base }))

	timer, err := d.Schedule(context.Background(), EventUnmute, base.Add(time.Hour), UnmutePayload{})
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}

	cancelled, err := d.Cancel(context.Background(), timer.ID)
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if !cancelled {
		t.Error("Cancel() = false, want true")
	}

	cancelled, err = d.Cancel(context.Background(), timer.ID)
	if err != nil {
		t.Fatalf("Cancel() second call error = %v", err)
	}
	if cancelled {
		t.Error("Cancel() on already-deleted timer = true, want false")
	}
}
