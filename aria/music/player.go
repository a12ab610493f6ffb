package music

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

type State int

const (
	StateWaiting State = iota
	StatePlaying
	StatePaused
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Output is the voice-side capability the player drives. The production
// implementation streams through ffmpeg into a disgo voice connection;
// tests substitute a fake.
type Output interface {
	// Play starts asynchronous playback of song and calls onDone
	// exactly once when playback finishes or is stopped.
	Play(song *Song, volume int, onDone func()) (Playback, error)
	Disconnect(ctx context.Context)
}

// Playback controls one in-flight track.
type Playback interface {
	Pause()
	Resume()
	Stop()
}

// PlayRecorder records one play per track start. The song repository
// satisfies it through a thin adapter.
type PlayRecorder interface {
	RecordPlay(ctx context.Context, song *Song)
}

type Options struct {
	IdleTimeout time.Duration
	Volume      int
	Notify      bool

	Recorder     PlayRecorder
	OnTrackStart func(*Song)
	OnClose      func(*Player)
}

const defaultIdleTimeout = 180 * time.Second

// Player drives continuous playback for one guild with a single
// long-lived loop goroutine.
type Player struct {
	GuildID snowflake.ID

	queue *Queue
	out   Output

	mu       sync.Mutex
	state    State
	current  *Song
	playback Playback
	gen      int
	loopOne  bool
	loopAll  bool
	volume   int
	notify   bool

	idleTimeout time.Duration
	advance     chan struct{}
	closed      chan struct{}
	closeOnce   sync.Once

	recorder     PlayRecorder
	onTrackStart func(*Song)
	onClose      func(*Player)
}

func NewPlayer(guildID snowflake.ID, out Output, opts Options) *Player {
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}
	if opts.Volume == 0 {
		opts.Volume = 100
	}
	return &Player{
		GuildID:      guildID,
		queue:        NewQueue(),
		out:          out,
		state:        StateWaiting,
		volume:       opts.Volume,
		notify:       opts.Notify,
		idleTimeout:  opts.IdleTimeout,
		advance:      make(chan struct{}, 1),
		closed:       make(chan struct{}),
		recorder:     opts.Recorder,
		onTrackStart: opts.OnTrackStart,
		onClose:      opts.OnClose,
	}
}

// Run is the playback loop. It returns only when the player closes;
// unhandled panics inside one iteration restart the loop with the
// queue and current song intact rather than killing the guild's player.
func (p *Player) Run() {
	for {
		if p.runLoop() {
			return
		}
		slog.Warn("Playback loop restarting",
			slog.String("type", "player"),
			slog.String("guild_id", p.GuildID.String()))
	}
}

func (p *Player) runLoop() (done bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Playback loop panicked",
				slog.String("type", "player"),
				slog.String("guild_id", p.GuildID.String()),
				slog.Any("panic", r))
			done = p.isClosed()
		}
	}()

	for {
		if p.isClosed() {
			return true
		}

		p.drainAdvance()

		p.mu.Lock()
		if p.loopAll && p.current != nil {
			p.queue.Put(p.current)
		}
		needNext := !(p.loopOne && p.current != nil)
		p.mu.Unlock()

		if needNext {
			p.setState(StateWaiting)

			song, err := p.nextSong()
			if err != nil {
				// Idle timeout or explicit close: tear down.
				p.Close()
				return true
			}

			p.mu.Lock()
			p.current = song
			p.mu.Unlock()
		}

		song := p.Current()

		p.mu.Lock()
		p.gen++
		gen := p.gen
		volume := p.volume
		p.mu.Unlock()

		playback, err := p.out.Play(song, volume, func() { p.advanceIf(gen) })
		if err != nil {
			slog.Error("Failed to start playback",
				slog.String("type", "player"),
				slog.String("guild_id", p.GuildID.String()),
				slog.String("title", song.Title),
				slog.Any("error", err))
			// Drop the broken track so loop-one cannot spin on it.
			p.mu.Lock()
			p.current = nil
			p.mu.Unlock()
			continue
		}

		p.mu.Lock()
		p.playback = playback
		p.mu.Unlock()
		p.setState(StatePlaying)

		if p.recorder != nil && song.VideoID != "" {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			p.recorder.RecordPlay(ctx, song)
			cancel()
		}
		if p.notify && p.onTrackStart != nil {
			p.onTrackStart(song)
		}

		select {
		case <-p.advance:
		case <-p.closed:
			playback.Stop()
			return true
		}

		playback.Stop()
		p.mu.Lock()
		p.playback = nil
		p.mu.Unlock()
	}
}

// nextSong blocks on the queue for up to the idle timeout.
func (p *Player) nextSong() (*Song, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.idleTimeout)
	defer cancel()

	go func() {
		select {
		case <-p.closed:
			cancel()
		case <-ctx.Done():
		}
	}()

	return p.queue.Get(ctx)
}

func (p *Player) drainAdvance() {
	select {
	case <-p.advance:
	default:
	}
}

// advanceIf signals track completion, ignoring callbacks from stale
// playbacks that outlived a skip.
func (p *Player) advanceIf(gen int) {
	p.mu.Lock()
	stale := gen != p.gen
	p.mu.Unlock()
	if stale {
		return
	}

	select {
	case p.advance <- struct{}{}:
	default:
	}
}

func (p *Player) isClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

func (p *Player) setState(s State) {
	p.mu.Lock()
	if p.state != StateClosed {
		p.state = s
	}
	p.mu.Unlock()
}

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Player) Current() *Song {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Player) Queue() *Queue {
	return p.queue
}

func (p *Player) Enqueue(song *Song) {
	p.queue.Put(song)
}

// Skip ends the current track; the loop advances through the normal
// completion path.
func (p *Player) Skip() error {
	p.mu.Lock()
	playback := p.playback
	p.mu.Unlock()

	if playback == nil {
		return ErrNothingPlaying
	}
	playback.Stop()
	return nil
}

func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playback == nil || p.state != StatePlaying {
		return ErrNothingPlaying
	}
	p.playback.Pause()
	p.state = StatePaused
	return nil
}

func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playback == nil || p.state != StatePaused {
		return ErrNothingPlaying
	}
	p.playback.Resume()
	p.state = StatePlaying
	return nil
}

// SetLoopOne and SetLoopAll are mutually exclusive: enabling one
// clears the other.
func (p *Player) SetLoopOne(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loopOne = on
	if on {
		p.loopAll = false
	}
}

func (p *Player) SetLoopAll(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loopAll = on
	if on {
		p.loopOne = false
	}
}

func (p *Player) LoopMode() (loopOne, loopAll bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loopOne, p.loopAll
}

func (p *Player) SetVolume(volume int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
}

func (p *Player) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Close is the terminal transition: stop playback, release the voice
// connection, unregister. Safe to call from any state and any
// goroutine.
func (p *Player) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.state = StateClosed
		playback := p.playback
		p.playback = nil
		p.mu.Unlock()

		close(p.closed)

		if playback != nil {
			playback.Stop()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		p.out.Disconnect(ctx)
		cancel()

		if p.onClose != nil {
			p.onClose(p)
		}

		slog.Info("Player closed",
			slog.String("type", "player"),
			slog.String("guild_id", p.GuildID.String()))
	})
}
