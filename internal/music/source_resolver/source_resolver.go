// Package source_resolver turns a validated YouTube URL into an audio stream
// by trying each parser in turn.
package source_resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"yt-play/internal/music/parsers"
)

const DefaultTimeout = 30 * time.Second

var ErrNoParsers = errors.New("no parsers configured")

type SourceResolver struct {
	parsers []parsers.Streamer
	quality parsers.Quality
	timeout time.Duration
	log     zerolog.Logger
}

type Option func(*SourceResolver)

func WithQuality(q parsers.Quality) Option {
	return func(r *SourceResolver) { r.quality = q }
}

func WithTimeout(d time.Duration) Option {
	return func(r *SourceResolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *SourceResolver) { r.log = l }
}

// New returns a resolver trying streamers in the given order.
func New(streamers []parsers.Streamer, opts ...Option) *SourceResolver {
	r := &SourceResolver{
		parsers: streamers,
		quality: parsers.QualityHigh,
		timeout: DefaultTimeout,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the first non-empty stream any parser opens. When every
// parser fails the result carries all of their errors.
func (r *SourceResolver) Resolve(ctx context.Context, url string) parsers.Result {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var errs []error

	for _, p := range r.parsers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		stream, err := p.Open(ctx, url, r.quality)
		if err == nil && (stream == nil || stream.ReadCloser == nil) {
			err = parsers.ErrEmptyStream
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("parser %s failed: %w", p.Name(), err))
			r.log.Warn().Err(err).Str("parser", p.Name()).Str("url", url).Msg("Parser failed, trying next parser")
			continue
		}

		if stream.Parser == "" {
			stream.Parser = p.Name()
		}

		r.log.Info().
			Str("parser", stream.Parser).
			Str("title", stream.Metadata.Title).
			Str("url", url).
			Msg("Stream opened")
		return parsers.Resolved(stream)
	}

	if len(errs) == 0 {
		errs = append(errs, ErrNoParsers)
	}

	return parsers.Failed(fmt.Errorf("all parsers failed for %s: %w", url, errors.Join(errs...)))
}
