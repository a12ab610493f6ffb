package music

import (
	"context"
	"math/rand"
	"sync"
)

// Queue is an unbounded FIFO of pending songs. Put never blocks; Get
// suspends the caller until a song or context cancellation.
type Queue struct {
	mu    sync.Mutex
	items []*Song
	wake  chan struct{}
}

func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

func (q *Queue) Put(song *Song) {
	q.mu.Lock()
	q.items = append(q.items, song)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Get removes and returns the head of the queue, blocking until a song
// is available or ctx is done.
func (q *Queue) Get(ctx context.Context) (*Song, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			song := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return song, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.wake:
		}
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// At returns the song at position i (0-based) without removing it.
func (q *Queue) At(i int) (*Song, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if i < 0 || i >= len(q.items) {
		return nil, ErrBadPosition
	}
	return q.items[i], nil
}

// Remove deletes and returns the song at position i (0-based).
func (q *Queue) Remove(i int) (*Song, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if i < 0 || i >= len(q.items) {
		return nil, ErrBadPosition
	}
	song := q.items[i]
	q.items = append(q.items[:i], q.items[i+1:]...)
	return song, nil
}

func (q *Queue) Shuffle() {
	q.mu.Lock()
	defer q.mu.Unlock()
	rand.Shuffle(len(q.items), func(i, j int) {
		q.items[i], q.items[j] = q.items[j], q.items[i]
	})
}

func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}

// Snapshot returns a copy of the pending songs in order.
func (q *Queue) Snapshot() []*Song {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Song, len(q.items))
	copy(out, q.items)
	return out
}
