// Package parsers defines what a stream parser returns: an encoded audio
// stream plus the metadata shown to users.
package parsers

import (
	"errors"
	"io"
	"time"
)

// Quality is the requested audio tier.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

var (
	ErrNoAudioFormats = errors.New("no audio formats found")
	ErrEmptyStream    = errors.New("parser returned an empty stream")
)

type Metadata struct {
	Title        string
	URL          string
	ThumbnailURL string
	Duration     time.Duration
}

// Stream is an encoded audio stream. Closing it releases whatever produced it.
type Stream struct {
	io.ReadCloser
	// Format is a hint such as "audio/webm; codecs=\"opus\"".
	Format   string
	Parser   string
	Metadata Metadata
}

// Result is either a resolved stream or the reason resolving failed.
type Result struct {
	Stream *Stream
	Reason error
}

func Resolved(s *Stream) Result { return Result{Stream: s} }

func Failed(reason error) Result { return Result{Reason: reason} }

// OK reports whether r carries a usable stream.
func (r Result) OK() bool {
	return r.Reason == nil && r.Stream != nil && r.Stream.ReadCloser != nil
}
