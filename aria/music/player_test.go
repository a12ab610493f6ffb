package music

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

type fakePlayback struct {
	song   *Song
	once   sync.Once
	onDone func()
	paused atomic.Bool
}

func (p *fakePlayback) finish() {
	p.once.Do(p.onDone)
}

func (p *fakePlayback) Pause()  { p.paused.Store(true) }
func (p *fakePlayback) Resume() { p.paused.Store(false) }
func (p *fakePlayback) Stop()   { p.finish() }

type fakeOutput struct {
	playCh       chan *fakePlayback
	disconnected atomic.Bool
}

func newFakeOutput() *fakeOutput {
	return &fakeOutput{playCh: make(chan *fakePlayback, 16)}
}

func (o *fakeOutput) Play(song *Song, _ int, onDone func()) (Playback, error) {
	pb := &fakePlayback{song: song, onDone: onDone}
	o.playCh <- pb
	return pb, nil
}

func (o *fakeOutput) Disconnect(context.Context) {
	o.disconnected.Store(true)
}

func (o *fakeOutput) nextPlayback(t *testing.T) *fakePlayback {
	t.Helper()
	select {
	case pb := <-o.playCh:
		return pb
	case <-time.After(time.Second):
		t.Fatal("no playback started in time")
		return nil
	}
}

func startPlayer(t *testing.T, out *fakeOutput, opts Options) *Player {
	t.Helper()
	p := NewPlayer(snowflake.ID(42), out, opts)
	go p.Run()
	t.Cleanup(p.Close)
	return p
}

func waitForState(t *testing.T, p *Player, want State) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if p.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("player state = %v, want %v", p.State(), want)
}

func TestPlayer_SkipThroughQueue(t *testing.T) {
	out := newFakeOutput()
	p := startPlayer(t, out, Options{IdleTimeout: 5 * time.Second})

	songs := makeSongs("one", "two", "three")
	for _, s := range songs {
		p.Enqueue(s)
	}

	for i, want := range songs {
		pb := out.nextPlayback(t)
		if pb.song != want {
			t.Errorf("play #%d = %q, want %q", i, pb.song.Title, want.Title)
		}
		waitForState(t, p, StatePlaying)
		if err := p.Skip(); err != nil {
			t.Fatalf("Skip() #%d error = %v", i, err)
		}
	}

	waitForState(t, p, StateWaiting)
	if n := p.Queue().Len(); n != 0 {
		t.Errorf("queue length after skipping all = %d, want 0", n)
	}
}

func TestPlayer_LoopOneReplaysSameSong(t *testing.T) {
	out := newFakeOutput()
	p := startPlayer(t, out, Options{IdleTimeout: 5 * time.Second})
	p.SetLoopOne(true)

	song := &Song{VideoID: "v", Title: "on repeat"}
	p.Enqueue(song)

	for i := 0; i < 4; i++ {
		pb := out.nextPlayback(t)
		if pb.song != song {
			t.Fatalf("cycle %d played %q, want the same song", i, pb.song.Title)
		}
		if got := p.Current(); got != song {
			t.Fatalf("cycle %d current = %v, want the same song", i, got)
		}
		pb.finish()
	}

	if n := p.Queue().Len(); n != 0 {
		t.Errorf("loop-one requeued the song, queue length = %d", n)
	}
}

func TestPlayer_LoopAllCyclesQueueInOrder(t *testing.T) {
	out := newFakeOutput()
	p := startPlayer(t, out, Options{IdleTimeout: 5 * time.Second})
	p.SetLoopAll(true)

	songs := makeSongs("a", "b", "c")
	for _, s := range songs {
		p.Enqueue(s)
	}

	// Two full cycles: playback order must repeat the original order.
	for cycle := 0; cycle < 2; cycle++ {
		for i, want := range songs {
			pb := out.nextPlayback(t)
			if pb.song != want {
				t.Fatalf("cycle %d play #%d = %q, want %q", cycle, i, pb.song.Title, want.Title)
			}
			pb.finish()
		}
	}
}

func TestPlayer_LoopModesMutuallyExclusive(t *testing.T) {
	p := NewPlayer(snowflake.ID(1), newFakeOutput(), Options{})

	p.SetLoopOne(true)
	p.SetLoopAll(true)
	if one, all := p.LoopMode(); one || !all {
		t.Errorf("after SetLoopAll: loopOne=%v loopAll=%v, want false/true", one, all)
	}

	p.SetLoopOne(true)
	if one, all := p.LoopMode(); !one || all {
		t.Errorf("after SetLoopOne: loopOne=%v loopAll=%v, want true/false", one, all)
	}
}

func TestPlayer_IdleTimeoutCloses(t *testing.T) {
	out := newFakeOutput()
	registry := NewRegistry()

	closed := make(chan struct{})
	p, created := registry.GetOrCreate(snowflake.ID(7), func() *Player {
		return NewPlayer(snowflake.ID(7), out, Options{
			IdleTimeout: 50 * time.Millisecond,
			OnClose: func(p *Player) {
				registry.Remove(p.GuildID, p)
				close(closed)
			},
		})
	})
	if !created {
		t.Fatal("GetOrCreate did not create a fresh player")
	}

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("player never closed after idle timeout")
	}

	if got := p.State(); got != StateClosed {
		t.Errorf("state after idle timeout = %v, want closed", got)
	}
	if !out.disconnected.Load() {
		t.Error("voice connection was not released on idle timeout")
	}
	if n := registry.Count(); n != 0 {
		t.Errorf("registry count after close = %d, want 0", n)
	}
}

func TestPlayer_PauseResume(t *testing.T) {
	out := newFakeOutput()
	p := startPlayer(t, out, Options{IdleTimeout: 5 * time.Second})

	p.Enqueue(&Song{Title: "x"})
	pb := out.nextPlayback(t)
	waitForState(t, p, StatePlaying)

	if err := p.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if p.State() != StatePaused {
		t.Errorf("state after Pause() = %v, want paused", p.State())
	}
	if !pb.paused.Load() {
		t.Error("Pause() did not reach the playback")
	}

	if err := p.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if p.State() != StatePlaying {
		t.Errorf("state after Resume() = %v, want playing", p.State())
	}

	if err := p.Resume(); err != ErrNothingPlaying {
		t.Errorf("Resume() while playing error = %v, want ErrNothingPlaying", err)
	}
}

func TestPlayer_SkipWithoutPlayback(t *testing.T) {
	p := NewPlayer(snowflake.ID(1), newFakeOutput(), Options{})
	if err := p.Skip(); err != ErrNothingPlaying {
		t.Errorf("Skip() error = %v, want ErrNothingPlaying", err)
	}
}

func TestPlayer_TrackStartHooks(t *testing.T) {
	out := newFakeOutput()

	var recorded atomic.Int64
	var notified atomic.Int64
	p := startPlayer(t, out, Options{
		IdleTimeout: 5 * time.Second,
		Notify:      true,
		Recorder: recorderFunc(func(context.Context, *Song) {
			recorded.Add(1)
		}),
		OnTrackStart: func(*Song) {
			notified.Add(1)
		},
	})

	p.Enqueue(&Song{VideoID: "v1", Title: "a"})
	pb := out.nextPlayback(t)
	waitForState(t, p, StatePlaying)

	if got := recorded.Load(); got != 1 {
		t.Errorf("recorded plays = %d, want 1", got)
	}
	if got := notified.Load(); got != 1 {
		t.Errorf("notifications = %d, want 1", got)
	}
	pb.finish()
}

type recorderFunc func(context.Context, *Song)

func (f recorderFunc) RecordPlay(ctx context.Context, s *Song) { f(ctx, s) }

func TestRegistry_OnePlayerPerGuild(t *testing.T) {
	registry := NewRegistry()
	out := newFakeOutput()

	build := func() *Player {
		return NewPlayer(snowflake.ID(9), out, Options{IdleTimeout: 5 * time.Second})
	}

	p1, created := registry.GetOrCreate(snowflake.ID(9), build)
	if !created {
		t.Fatal("first GetOrCreate should create")
	}
	defer p1.Close()

	p2, created := registry.GetOrCreate(snowflake.ID(9), build)
	if created {
		t.Error("second GetOrCreate created a duplicate player")
	}
	if p1 != p2 {
		t.Error("second GetOrCreate returned a different player")
	}

	// A stale close must not evict a replacement player.
	registry.Remove(snowflake.ID(9), p1)
	p3, _ := registry.GetOrCreate(snowflake.ID(9), build)
	defer p3.Close()
	registry.Remove(snowflake.ID(9), p1)
	if _, ok := registry.Get(snowflake.ID(9)); !ok {
		t.Error("stale Remove evicted the replacement player")
	}
}
