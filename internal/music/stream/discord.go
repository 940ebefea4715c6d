package stream

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"layeh.com/gopus"

	"yt-play/internal/music/parsers"
)

// Encoder encodes one PCM frame. *gopus.Encoder satisfies it.
type Encoder interface {
	Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error)
}

var bitrates = map[parsers.Quality]int{
	parsers.QualityLow:    64000,
	parsers.QualityMedium: 96000,
	parsers.QualityHigh:   128000,
}

// NewOpusEncoder returns a 48kHz stereo music encoder for the quality tier.
func NewOpusEncoder(quality parsers.Quality) (Encoder, error) {
	encoder, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("encoder error: %w", err)
	}
	if bitrate, ok := bitrates[quality]; ok {
		encoder.SetBitrate(bitrate)
	}
	return encoder, nil
}

// StreamToDiscord reads s16le stereo PCM, scales it by volume() and sends
// the encoded frames to out. A short last frame is padded with silence. It
// returns nil when the stream ends or stop is closed.
func StreamToDiscord(ctx context.Context, pcm io.Reader, stop <-chan struct{}, enc Encoder, out chan<- []byte, volume func() float64) error {
	pcmBuf := make([]byte, frameBytes)
	intBuf := make([]int16, frameSize*channels)

	for {
		select {
		case <-stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := io.ReadFull(pcm, pcmBuf)
		last := false
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			clear(pcmBuf[n:])
			last = true
		case err != nil:
			select {
			case <-stop:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return fmt.Errorf("read error: %w", err)
		}

		gain := volume()
		for i := range intBuf {
			sample := int16(binary.LittleEndian.Uint16(pcmBuf[i*2 : i*2+2]))
			intBuf[i] = scale(sample, gain)
		}

		opus, err := enc.Encode(intBuf, frameSize, frameBytes)
		if err != nil {
			return fmt.Errorf("encode error: %w", err)
		}

		select {
		case out <- opus:
		case <-stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}

		if last {
			return nil
		}
	}
}

func scale(sample int16, gain float64) int16 {
	if gain == 1 {
		return sample
	}
	v := math.Round(float64(sample) * gain)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
