// Package kkdai opens YouTube audio with github.com/kkdai/youtube.
package kkdai

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"

	"yt-play/internal/music/parsers"
	ytsource "yt-play/internal/music/sources/youtube"
)

const Name = "kkdai"

// Client is the part of *youtube.Client the streamer uses.
type Client interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetPlaylistContext(ctx context.Context, url string) (*youtube.Playlist, error)
	VideoFromPlaylistEntryContext(ctx context.Context, entry *youtube.PlaylistEntry) (*youtube.Video, error)
	GetStreamContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error)
}

type KKDAIStreamer struct {
	client Client
	log    zerolog.Logger
}

func New(client Client, log zerolog.Logger) *KKDAIStreamer {
	return &KKDAIStreamer{client: client, log: log.With().Str("parser", Name).Logger()}
}

func (s *KKDAIStreamer) Name() string { return Name }

// Open fetches the video (or the first entry of a playlist link) and starts
// downloading its best matching audio format. ctx bounds the lookup only;
// the returned stream lives until it is closed.
func (s *KKDAIStreamer) Open(ctx context.Context, rawURL string, quality parsers.Quality) (*parsers.Stream, error) {
	video, err := s.video(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	format, err := pickFormat(video.Formats, quality)
	if err != nil {
		return nil, fmt.Errorf("video %s: %w", video.ID, err)
	}

	s.log.Debug().
		Str("video", video.ID).
		Int("itag", format.ItagNo).
		Str("mime", format.MimeType).
		Int("bitrate", format.Bitrate).
		Msg("Selected audio format")

	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	body, _, err := s.client.GetStreamContext(streamCtx, video, format)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("get stream: %w", err)
	}
	if body == nil {
		cancel()
		return nil, parsers.ErrEmptyStream
	}

	return &parsers.Stream{
		ReadCloser: &cancelCloser{ReadCloser: body, cancel: cancel},
		Format:     format.MimeType,
		Parser:     Name,
		Metadata:   metadata(video),
	}, nil
}

func (s *KKDAIStreamer) video(ctx context.Context, rawURL string) (*youtube.Video, error) {
	kind, err := ytsource.Classify(rawURL)
	if err != nil {
		return nil, err
	}

	if kind != ytsource.KindPlaylist {
		video, err := s.client.GetVideoContext(ctx, ytsource.CleanVideoURL(rawURL))
		if err != nil {
			return nil, fmt.Errorf("youtube client error: %w", err)
		}
		return video, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	playlist, err := s.client.GetPlaylistContext(ctx, ytsource.PlaylistID(u))
	if err != nil {
		return nil, fmt.Errorf("get playlist: %w", err)
	}
	if len(playlist.Videos) == 0 {
		return nil, fmt.Errorf("playlist %s: %w", playlist.ID, youtube.ErrInvalidPlaylist)
	}

	s.log.Debug().Str("playlist", playlist.ID).Int("entries", len(playlist.Videos)).Msg("Playing first playlist entry")

	video, err := s.client.VideoFromPlaylistEntryContext(ctx, playlist.Videos[0])
	if err != nil {
		return nil, fmt.Errorf("playlist entry: %w", err)
	}
	return video, nil
}

func metadata(video *youtube.Video) parsers.Metadata {
	md := parsers.Metadata{
		Title:    video.Title,
		URL:      ytsource.WatchURL(video.ID),
		Duration: video.Duration,
	}
	if len(video.Thumbnails) > 0 {
		md.ThumbnailURL = video.Thumbnails[0].URL
	}
	return md
}

type cancelCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelCloser) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
