package music

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"
)

func makeSongs(titles ...string) []*Song {
	songs := make([]*Song, len(titles))
	for i, title := range titles {
		songs[i] = &Song{VideoID: title, Title: title}
	}
	return songs
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue()
	songs := makeSongs("a", "b", "c", "d")
	for _, s := range songs {
		q.Put(s)
	}

	ctx := context.Background()
	for i, want := range songs {
		got, err := q.Get(ctx)
		if err != nil {
			t.Fatalf("Get() #%d error = %v", i, err)
		}
		if got != want {
			t.Errorf("Get() #%d = %q, want %q", i, got.Title, want.Title)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Len() after draining = %d, want 0", q.Len())
	}
}

func TestQueue_GetBlocksUntilPut(t *testing.T) {
	q := NewQueue()
	want := &Song{Title: "late arrival"}

	got := make(chan *Song, 1)
	go func() {
		s, err := q.Get(context.Background())
		if err != nil {
			t.Errorf("Get() error = %v", err)
			return
		}
		got <- s
	}()

	time.Sleep(20 * time.Millisecond)
	q.Put(want)

	select {
	case s := <-got:
		if s != want {
			t.Errorf("Get() = %q, want %q", s.Title, want.Title)
		}
	case <-time.After(time.Second):
		t.Fatal("Get() never returned after Put()")
	}
}

func TestQueue_GetHonorsContext(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Get(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Get() error = %v, want deadline exceeded", err)
	}
}

func TestQueue_Remove(t *testing.T) {
	tests := []struct {
		name      string
		index     int
		wantTitle string
		wantErr   bool
		wantLeft  []string
	}{
		{name: "middle", index: 1, wantTitle: "b", wantLeft: []string{"a", "c"}},
		{name: "head", index: 0, wantTitle: "a", wantLeft: []string{"b", "c"}},
		{name: "tail", index: 2, wantTitle: "c", wantLeft: []string{"a", "b"}},
		{name: "negative", index: -1, wantErr: true, wantLeft: []string{"a", "b", "c"}},
		{name: "out of range", index: 3, wantErr: true, wantLeft: []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueue()
			for _, s := range makeSongs("a", "b", "c") {
				q.Put(s)
			}

			got, err := q.Remove(tt.index)
			if tt.wantErr {
				if !errors.Is(err, ErrBadPosition) {
					t.Errorf("Remove(%d) error = %v, want ErrBadPosition", tt.index, err)
				}
			} else {
				if err != nil {
					t.Fatalf("Remove(%d) error = %v", tt.index, err)
				}
				if got.Title != tt.wantTitle {
					t.Errorf("Remove(%d) = %q, want %q", tt.index, got.Title, tt.wantTitle)
				}
			}

			var left []string
			for _, s := range q.Snapshot() {
				left = append(left, s.Title)
			}
			if len(left) != len(tt.wantLeft) {
				t.Fatalf("remaining = %v, want %v", left, tt.wantLeft)
			}
			for i := range left {
				if left[i] != tt.wantLeft[i] {
					t.Errorf("remaining = %v, want %v", left, tt.wantLeft)
					break
				}
			}
		})
	}
}

func TestQueue_ShuffleIsPermutation(t *testing.T) {
	q := NewQueue()
	titles := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, s := range makeSongs(titles...) {
		q.Put(s)
	}

	q.Shuffle()

	var got []string
	for _, s := range q.Snapshot() {
		got = append(got, s.Title)
	}
	if len(got) != len(titles) {
		t.Fatalf("Shuffle() changed length: got %d, want %d", len(got), len(titles))
	}

	sorted := append([]string(nil), got...)
	sort.Strings(sorted)
	for i, want := range titles {
		if sorted[i] != want {
			t.Errorf("Shuffle() changed multiset: got %v", got)
			break
		}
	}
}

func TestQueue_Clear(t *testing.T) {
	q := NewQueue()
	for _, s := range makeSongs("a", "b", "c") {
		q.Put(s)
	}

	if n := q.Clear(); n != 3 {
		t.Errorf("Clear() = %d, want 3", n)
	}
	if q.Len() != 0 {
		t.Errorf("Len() after Clear() = %d, want 0", q.Len())
	}
}
