// Package player plays one audio resource at a time for a single guild.
package player

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"yt-play/internal/music/stream"
)

var (
	ErrNoTrackPlaying = errors.New("no track is currently playing")
	ErrNoOutput       = errors.New("player has no voice connection")
	ErrClosed         = errors.New("player is closed")
)

// Output is where the Opus frames go, normally a voice connection.
type Output interface {
	Speaking(bool) error
	Frames() chan<- []byte
}

// EncoderFactory returns a fresh encoder for each track.
type EncoderFactory func() (stream.Encoder, error)

type playback struct {
	res  *stream.Resource
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func (pb *playback) halt() {
	pb.once.Do(func() { close(pb.stop) })
}

type Player struct {
	newEncoder EncoderFactory
	log        zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// playMu serializes Play so stopping the old track and starting the new
	// one happen as one step.
	playMu sync.Mutex

	mu      sync.Mutex
	output  Output
	current *playback
	closed  bool
	subs    map[int]func(error)
	nextSub int
}

// New creates the player of a guild. Playback stops when ctx is done.
func New(ctx context.Context, guildID string, newEncoder EncoderFactory, log zerolog.Logger) *Player {
	ctx, cancel := context.WithCancel(ctx)
	return &Player{
		newEncoder: newEncoder,
		log:        log.With().Str("guild", guildID).Logger(),
		ctx:        ctx,
		cancel:     cancel,
		subs:       make(map[int]func(error)),
	}
}

// Subscribe routes playback to out. The next Play uses it; a track already
// playing keeps its output.
func (p *Player) Subscribe(out Output) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output = out
}

// OnError registers fn for asynchronous playback errors. The returned
// function removes it.
func (p *Player) OnError(fn func(error)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

// Play stops whatever is playing, waits for it to finish and starts res.
// The player owns res from here on, also when Play fails.
func (p *Player) Play(res *stream.Resource) error {
	p.playMu.Lock()
	defer p.playMu.Unlock()

	p.mu.Lock()
	out, prev, closed := p.output, p.current, p.closed
	p.mu.Unlock()

	if closed {
		res.Close()
		return ErrClosed
	}
	if out == nil {
		res.Close()
		return ErrNoOutput
	}

	if prev != nil {
		p.log.Debug().Str("title", prev.res.Metadata().Title).Msg("Stopping current track before playing next")
		prev.halt()
		<-prev.done
	}

	enc, err := p.newEncoder()
	if err != nil {
		res.Close()
		return fmt.Errorf("failed to create encoder: %w", err)
	}

	pb := &playback{
		res:  res,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	p.mu.Lock()
	p.current = pb
	p.mu.Unlock()

	p.log.Info().Str("title", res.Metadata().Title).Msg("Starting track")

	go p.run(pb, out, enc)
	return nil
}

func (p *Player) run(pb *playback, out Output, enc stream.Encoder) {
	defer close(pb.done)

	if err := out.Speaking(true); err != nil {
		p.log.Warn().Err(err).Msg("Failed to set speaking state")
	}

	err := pb.res.Play(p.ctx, pb.stop, enc, out.Frames())

	if err := out.Speaking(false); err != nil {
		p.log.Debug().Err(err).Msg("Failed to clear speaking state")
	}

	p.mu.Lock()
	if p.current == pb {
		p.current = nil
	}
	p.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		p.log.Error().Err(err).Str("title", pb.res.Metadata().Title).Msg("Playback finished with error")
		p.publish(fmt.Errorf("playback error: %w", err))
		return
	}

	p.log.Debug().Str("title", pb.res.Metadata().Title).Msg("Playback finished")
}

func (p *Player) publish(err error) {
	p.mu.Lock()
	subs := make([]func(error), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(err)
	}
}

// Stop ends the current track and waits for its goroutine to exit.
func (p *Player) Stop() error {
	p.mu.Lock()
	pb := p.current
	p.mu.Unlock()

	if pb == nil {
		return ErrNoTrackPlaying
	}

	pb.halt()
	<-pb.done
	return nil
}

// IsPlaying returns current playback state
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

// Close stops playback for good and drops every subscription.
func (p *Player) Close() {
	p.mu.Lock()
	p.closed = true
	p.output = nil
	p.mu.Unlock()

	_ = p.Stop()
	p.cancel()

	p.mu.Lock()
	clear(p.subs)
	p.mu.Unlock()
}
