// Package stream turns an encoded audio stream into Opus frames for a voice
// connection: ffmpeg decodes to PCM, the volume is applied inline and gopus
// encodes 20ms frames.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"yt-play/internal/music/parsers"
)

const (
	channels   = 2
	sampleRate = 48000
	frameSize  = 960 // 20ms at 48kHz
	frameBytes = frameSize * channels * 2
)

const MaxVolume = 2.0

var ErrResourceConsumed = errors.New("audio resource already consumed")

// Resource is one playable track. It can be played once.
type Resource struct {
	source     *parsers.Stream
	transcoder Transcoder

	volume   atomic.Uint64
	consumed atomic.Bool
}

// NewResource wraps a resolved stream. volume is clamped to [0, MaxVolume].
func NewResource(source *parsers.Stream, transcoder Transcoder, volume float64) *Resource {
	r := &Resource{source: source, transcoder: transcoder}
	r.SetVolume(volume)
	return r
}

func (r *Resource) Metadata() parsers.Metadata {
	return r.source.Metadata
}

// SetVolume changes the gain of the resource, also while it plays.
func (r *Resource) SetVolume(v float64) {
	if math.IsNaN(v) || v < 0 {
		v = 0
	}
	if v > MaxVolume {
		v = MaxVolume
	}
	r.volume.Store(math.Float64bits(v))
}

func (r *Resource) Volume() float64 {
	return math.Float64frombits(r.volume.Load())
}

// Open starts decoding and returns the PCM stream. Closing it releases the
// decoder and the source. A second call fails with ErrResourceConsumed.
func (r *Resource) Open(ctx context.Context) (io.ReadCloser, error) {
	if !r.consumed.CompareAndSwap(false, true) {
		return nil, ErrResourceConsumed
	}

	pcm, err := r.transcoder.Transcode(ctx, r.source)
	if err != nil {
		r.source.Close()
		return nil, fmt.Errorf("transcode: %w", err)
	}

	return &pcmStream{ReadCloser: pcm, source: r.source}, nil
}

// Close releases the source of a resource that was never played.
func (r *Resource) Close() error {
	if !r.consumed.CompareAndSwap(false, true) {
		return nil
	}
	return r.source.Close()
}

// Play decodes the resource and sends Opus frames to out until the track
// ends, stop is closed or ctx is done.
func (r *Resource) Play(ctx context.Context, stop <-chan struct{}, enc Encoder, out chan<- []byte) error {
	pcm, err := r.Open(ctx)
	if err != nil {
		return err
	}
	defer pcm.Close()

	// a blocked read only returns once the stream is closed
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-stop:
		case <-ctx.Done():
		case <-finished:
			return
		}
		pcm.Close()
	}()

	return StreamToDiscord(ctx, pcm, stop, enc, out, r.Volume)
}

type pcmStream struct {
	io.ReadCloser
	source io.Closer

	once sync.Once
	err  error
}

// The source goes first so the decoder is not left waiting on its input.
func (p *pcmStream) Close() error {
	p.once.Do(func() {
		p.err = errors.Join(p.source.Close(), p.ReadCloser.Close())
	})
	return p.err
}
