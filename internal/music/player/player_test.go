package player

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yt-play/internal/music/parsers"
	"yt-play/internal/music/stream"
)

const frame = 960 * 2 * 2

type rawPCM struct{}

func (rawPCM) Transcode(_ context.Context, in io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(in), nil
}

type nopEncoder struct{ err error }

func (e nopEncoder) Encode([]int16, int, int) ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []byte{1}, nil
}

type fakeOutput struct {
	frames   chan []byte
	mu       sync.Mutex
	speaking []bool
}

func newOutput() *fakeOutput {
	return &fakeOutput{frames: make(chan []byte, 1024)}
}

func (o *fakeOutput) Speaking(b bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.speaking = append(o.speaking, b)
	return nil
}

func (o *fakeOutput) Frames() chan<- []byte { return o.frames }

func (o *fakeOutput) speakingCalls() []bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]bool(nil), o.speaking...)
}

type closeTracker struct {
	io.Reader
	closed atomic.Bool
	close  func() error
}

func (c *closeTracker) Close() error {
	c.closed.Store(true)
	if c.close != nil {
		return c.close()
	}
	return nil
}

// endless never ends until closed.
func endless(title string) (*stream.Resource, *closeTracker) {
	pr, pw := io.Pipe()
	go func() {
		buf := make([]byte, frame)
		for {
			if _, err := pw.Write(buf); err != nil {
				return
			}
		}
	}()
	src := &closeTracker{Reader: pr, close: pr.Close}
	return stream.NewResource(&parsers.Stream{ReadCloser: src, Metadata: parsers.Metadata{Title: title}}, rawPCM{}, 1), src
}

func finite(title string, frames int) (*stream.Resource, *closeTracker) {
	src := &closeTracker{Reader: bytes.NewReader(make([]byte, frames*frame))}
	return stream.NewResource(&parsers.Stream{ReadCloser: src, Metadata: parsers.Metadata{Title: title}}, rawPCM{}, 1), src
}

// playingTitle is the title of the current track, or "" when idle.
func playingTitle(p *Player) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return ""
	}
	return p.current.res.Metadata().Title
}

func newPlayer(t *testing.T, enc stream.Encoder) *Player {
	t.Helper()
	p := New(context.Background(), "guild-1", func() (stream.Encoder, error) { return enc, nil }, zerolog.New(zerolog.NewTestWriter(t)))
	t.Cleanup(p.Close)
	return p
}

func TestPlayWithoutOutput(t *testing.T) {
	p := newPlayer(t, nopEncoder{})
	res, src := finite("a", 1)

	assert.ErrorIs(t, p.Play(res), ErrNoOutput)
	assert.True(t, src.closed.Load())
	assert.False(t, p.IsPlaying())
}

func TestPlayFinishes(t *testing.T) {
	p := newPlayer(t, nopEncoder{})
	out := newOutput()
	p.Subscribe(out)

	res, _ := finite("a", 3)
	require.NoError(t, p.Play(res))

	assert.Eventually(t, func() bool { return !p.IsPlaying() }, time.Second, 5*time.Millisecond)
	assert.Len(t, out.frames, 3)
	assert.Equal(t, []bool{true, false}, out.speakingCalls())
}

func TestPlayPreemptsCurrentTrack(t *testing.T) {
	p := newPlayer(t, nopEncoder{})
	out := newOutput()
	p.Subscribe(out)

	var errs atomic.Int32
	p.OnError(func(error) { errs.Add(1) })

	a, srcA := endless("a")
	require.NoError(t, p.Play(a))

	assert.Equal(t, "a", playingTitle(p))

	b, srcB := endless("b")
	require.NoError(t, p.Play(b))

	// A has fully stopped before B starts
	assert.True(t, srcA.closed.Load())
	assert.Equal(t, "b", playingTitle(p))
	assert.True(t, p.IsPlaying())

	require.NoError(t, p.Stop())
	assert.True(t, srcB.closed.Load())
	assert.False(t, p.IsPlaying())
	assert.Zero(t, errs.Load())
}

func TestStopWhenIdle(t *testing.T) {
	p := newPlayer(t, nopEncoder{})
	assert.ErrorIs(t, p.Stop(), ErrNoTrackPlaying)
	assert.Empty(t, playingTitle(p))
}

func TestErrorsReachSubscribers(t *testing.T) {
	p := newPlayer(t, nopEncoder{err: errors.New("bad frame")})
	p.Subscribe(newOutput())

	got := make(chan error, 1)
	p.OnError(func(err error) { got <- err })

	res, _ := finite("a", 1)
	require.NoError(t, p.Play(res))

	select {
	case err := <-got:
		assert.ErrorContains(t, err, "bad frame")
	case <-time.After(time.Second):
		t.Fatal("error not delivered")
	}
	assert.Eventually(t, func() bool { return !p.IsPlaying() }, time.Second, 5*time.Millisecond)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	p := newPlayer(t, nopEncoder{err: errors.New("bad frame")})
	p.Subscribe(newOutput())

	var calls atomic.Int32
	unsubscribe := p.OnError(func(error) { calls.Add(1) })
	unsubscribe()
	unsubscribe()

	res, _ := finite("a", 1)
	require.NoError(t, p.Play(res))
	assert.Eventually(t, func() bool { return !p.IsPlaying() }, time.Second, 5*time.Millisecond)

	assert.Zero(t, calls.Load())
}

func TestReplayingConsumedResourceFails(t *testing.T) {
	p := newPlayer(t, nopEncoder{})
	p.Subscribe(newOutput())

	got := make(chan error, 1)
	p.OnError(func(err error) { got <- err })

	res, _ := finite("a", 1)
	require.NoError(t, p.Play(res))
	assert.Eventually(t, func() bool { return !p.IsPlaying() }, time.Second, 5*time.Millisecond)

	require.NoError(t, p.Play(res))
	select {
	case err := <-got:
		assert.ErrorIs(t, err, stream.ErrResourceConsumed)
	case <-time.After(time.Second):
		t.Fatal("error not delivered")
	}
}

func TestClose(t *testing.T) {
	p := newPlayer(t, nopEncoder{})
	p.Subscribe(newOutput())

	a, srcA := endless("a")
	require.NoError(t, p.Play(a))

	p.Close()
	assert.True(t, srcA.closed.Load())
	assert.False(t, p.IsPlaying())

	b, srcB := finite("b", 1)
	assert.ErrorIs(t, p.Play(b), ErrClosed)
	assert.True(t, srcB.closed.Load())
}
