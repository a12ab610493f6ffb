package music

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disgoorg/disgo/voice"
)

// opusSilence is a single silent Opus frame, fed while paused.
var opusSilence = []byte{0xF8, 0xFF, 0xFE}

// VoiceOutput streams songs through ffmpeg into a disgo voice
// connection. One per player.
type VoiceOutput struct {
	conn voice.Conn
}

func NewVoiceOutput(conn voice.Conn) *VoiceOutput {
	return &VoiceOutput{conn: conn}
}

func (o *VoiceOutput) Play(song *Song, volume int, onDone func()) (Playback, error) {
	input := song.StreamURL
	if song.Path != "" {
		if _, err := os.Stat(song.Path); err == nil {
			input = song.Path
		}
	}
	if input == "" {
		return nil, fmt.Errorf("song %q has no playable input", song.Title)
	}

	args := []string{
		"-i", input,
		"-map", "0:a",
		"-acodec", "libopus",
		"-b:a", "128k",
		"-vbr", "on",
		"-compression_level", "10",
		"-af", fmt.Sprintf("volume=%.2f", float64(volume)/100),
		"-analyzeduration", "0",
		"-probesize", "32",
		"-f", "opus",
		"pipe:1",
	}
	if strings.HasPrefix(input, "http") {
		args = append([]string{
			"-reconnect", "1",
			"-reconnect_streamed", "1",
			"-reconnect_delay_max", "2",
			"-user_agent", "Mozilla/5.0",
		}, args...)
	}

	cmd := exec.Command("ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	var once sync.Once
	finish := func() { once.Do(onDone) }

	provider := newOggProvider(stdout, finish)
	o.conn.SetOpusFrameProvider(provider)
	if err := o.conn.SetSpeaking(context.TODO(), voice.SpeakingFlagMicrophone); err != nil {
		cmd.Process.Kill()
		return nil, fmt.Errorf("failed to set speaking state: %w", err)
	}

	pb := &ffmpegPlayback{
		cmd:      cmd,
		conn:     o.conn,
		provider: provider,
		finish:   finish,
	}
	go func() {
		cmd.Wait()
	}()
	return pb, nil
}

func (o *VoiceOutput) Disconnect(ctx context.Context) {
	o.conn.SetOpusFrameProvider(nil)
	o.conn.SetSpeaking(context.TODO(), 0)
	o.conn.Close(ctx)
}

type ffmpegPlayback struct {
	cmd      *exec.Cmd
	conn     voice.Conn
	provider *oggProvider
	finish   func()
	stopped  sync.Once
}

func (p *ffmpegPlayback) Pause() {
	p.provider.setPaused(true)
}

func (p *ffmpegPlayback) Resume() {
	p.provider.setPaused(false)
}

func (p *ffmpegPlayback) Stop() {
	p.stopped.Do(func() {
		if p.cmd.Process != nil {
			p.cmd.Process.Kill()
		}
		p.conn.SetOpusFrameProvider(nil)
		p.conn.SetSpeaking(context.TODO(), 0)
		// A killed ffmpeg may never deliver EOF to the provider, so
		// report completion here as well; finish is once-guarded.
		time.AfterFunc(50*time.Millisecond, p.finish)
	})
}

// oggProvider implements voice.OpusFrameProvider by parsing raw Opus
// packets out of the Ogg stream ffmpeg writes to its stdout.
type oggProvider struct {
	reader    *bufio.Reader
	header    []byte
	segBuf    []byte
	packetBuf bytes.Buffer
	queue     [][]byte
	paused    atomic.Bool
	onFinish  func()
	once      sync.Once
}

func newOggProvider(r io.Reader, onFinish func()) *oggProvider {
	return &oggProvider{
		reader:   bufio.NewReaderSize(r, 16384),
		header:   make([]byte, 27),
		segBuf:   make([]byte, 255),
		onFinish: onFinish,
	}
}

func (p *oggProvider) Close() {}

func (p *oggProvider) setPaused(paused bool) {
	p.paused.Store(paused)
}

func (p *oggProvider) triggerFinish() {
	p.once.Do(func() {
		if p.onFinish != nil {
			p.onFinish()
		}
	})
}

// ProvideOpusFrame parses the next Opus packet from the Ogg stream.
func (p *oggProvider) ProvideOpusFrame() ([]byte, error) {
	if p.paused.Load() {
		return opusSilence, nil
	}

	if len(p.queue) > 0 {
		frame := p.queue[0]
		p.queue = p.queue[1:]
		return frame, nil
	}

	for {
		sig, err := p.reader.Peek(4)
		if err != nil {
			p.triggerFinish()
			return nil, err
		}

		if string(sig) == "OggS" {
			if _, err := io.ReadFull(p.reader, p.header); err != nil {
				p.triggerFinish()
				return nil, err
			}
		} else {
			_, _ = p.reader.Discard(1)
			continue
		}

		numSegs := int(p.header[26])
		segTable := p.segBuf[:numSegs]
		if _, err := io.ReadFull(p.reader, segTable); err != nil {
			p.triggerFinish()
			return nil, err
		}

		for _, segLen := range segTable {
			l := int(segLen)
			if _, err := io.CopyN(&p.packetBuf, p.reader, int64(l)); err != nil {
				p.triggerFinish()
				return nil, err
			}

			// Segments shorter than 255 bytes terminate a packet.
			if l < 255 {
				payload := p.packetBuf.Bytes()
				frame := make([]byte, len(payload))
				copy(frame, payload)
				p.packetBuf.Reset()

				// OpusHead/OpusTags metadata packets are not audio.
				if len(frame) > 8 && (string(frame[:8]) == "OpusHead" || string(frame[:8]) == "OpusTags") {
					continue
				}

				p.queue = append(p.queue, frame)
			}
		}

		if len(p.queue) > 0 {
			frame := p.queue[0]
			p.queue = p.queue[1:]
			return frame, nil
		}
	}
}
