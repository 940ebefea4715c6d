package kkdai

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yt-play/internal/music/parsers"
)

const (
	videoURL    = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	playlistURL = "https://www.youtube.com/playlist?list=PLFgquLnL59alCl_2TQvOiD5Vgm1hCaGSI"
)

type fakeClient struct {
	video    *youtube.Video
	playlist *youtube.Playlist
	err      error
	body     io.ReadCloser

	gotVideoURL  string
	gotPlaylist  string
	gotEntry     *youtube.PlaylistEntry
	gotFormat    *youtube.Format
	streamCtxErr func() error
}

func (f *fakeClient) GetVideoContext(_ context.Context, url string) (*youtube.Video, error) {
	f.gotVideoURL = url
	return f.video, f.err
}

func (f *fakeClient) GetPlaylistContext(_ context.Context, url string) (*youtube.Playlist, error) {
	f.gotPlaylist = url
	return f.playlist, f.err
}

func (f *fakeClient) VideoFromPlaylistEntryContext(_ context.Context, entry *youtube.PlaylistEntry) (*youtube.Video, error) {
	f.gotEntry = entry
	return f.video, f.err
}

func (f *fakeClient) GetStreamContext(ctx context.Context, _ *youtube.Video, format *youtube.Format) (io.ReadCloser, int64, error) {
	f.gotFormat = format
	f.streamCtxErr = ctx.Err
	return f.body, 0, nil
}

func testVideo() *youtube.Video {
	return &youtube.Video{
		ID:       "dQw4w9WgXcQ",
		Title:    "Never Gonna Give You Up",
		Duration: 213 * time.Second,
		Thumbnails: youtube.Thumbnails{
			{URL: "https://i.ytimg.com/vi/dQw4w9WgXcQ/default.jpg"},
			{URL: "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg"},
		},
		Formats: youtube.FormatList{
			{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, AudioChannels: 2, Bitrate: 500000, AudioQuality: "AUDIO_QUALITY_LOW"},
			{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, AudioChannels: 2, Bitrate: 130000, AudioQuality: "AUDIO_QUALITY_MEDIUM"},
			{ItagNo: 249, MimeType: `audio/webm; codecs="opus"`, AudioChannels: 2, Bitrate: 50000, AudioQuality: "AUDIO_QUALITY_LOW"},
			{ItagNo: 251, MimeType: `audio/webm; codecs="opus"`, AudioChannels: 2, Bitrate: 140000, AudioQuality: "AUDIO_QUALITY_MEDIUM"},
		},
	}
}

func TestOpenVideo(t *testing.T) {
	client := &fakeClient{video: testVideo(), body: io.NopCloser(strings.NewReader("webm"))}
	s := New(client, zerolog.New(zerolog.NewTestWriter(t)))

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := s.Open(ctx, videoURL, parsers.QualityHigh)
	require.NoError(t, err)
	cancel()

	assert.Equal(t, videoURL, client.gotVideoURL)
	assert.Equal(t, 251, client.gotFormat.ItagNo)
	assert.Equal(t, Name, stream.Parser)
	assert.Contains(t, stream.Format, "opus")
	assert.Equal(t, parsers.Metadata{
		Title:        "Never Gonna Give You Up",
		URL:          "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		ThumbnailURL: "https://i.ytimg.com/vi/dQw4w9WgXcQ/default.jpg",
		Duration:     213 * time.Second,
	}, stream.Metadata)

	// the download outlives the lookup context until the stream is closed
	assert.NoError(t, client.streamCtxErr())
	require.NoError(t, stream.Close())
	assert.ErrorIs(t, client.streamCtxErr(), context.Canceled)
}

func TestOpenPlaylistPlaysFirstEntry(t *testing.T) {
	first := &youtube.PlaylistEntry{ID: "dQw4w9WgXcQ"}
	client := &fakeClient{
		video:    testVideo(),
		playlist: &youtube.Playlist{ID: "PLFgquLnL59alCl_2TQvOiD5Vgm1hCaGSI", Videos: []*youtube.PlaylistEntry{first, {ID: "other"}}},
		body:     io.NopCloser(strings.NewReader("webm")),
	}
	s := New(client, zerolog.New(zerolog.NewTestWriter(t)))

	stream, err := s.Open(context.Background(), playlistURL, parsers.QualityHigh)
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, "PLFgquLnL59alCl_2TQvOiD5Vgm1hCaGSI", client.gotPlaylist)
	assert.Same(t, first, client.gotEntry)
	assert.Empty(t, client.gotVideoURL)
}

func TestOpenWatchLinkInsidePlaylistPlaysThatVideo(t *testing.T) {
	client := &fakeClient{
		video: testVideo(),
		playlist: &youtube.Playlist{ID: "PLFgquLnL59alCl_2TQvOiD5Vgm1hCaGSI", Videos: []*youtube.PlaylistEntry{
			{ID: "AAAAAAAAAAA", Title: "First playlist entry"},
		}},
		body: io.NopCloser(strings.NewReader("webm")),
	}
	s := New(client, zerolog.New(zerolog.NewTestWriter(t)))

	stream, err := s.Open(context.Background(),
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PLFgquLnL59alCl_2TQvOiD5Vgm1hCaGSI&index=5", parsers.QualityHigh)
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, videoURL, client.gotVideoURL)
	assert.Empty(t, client.gotPlaylist)
	assert.Nil(t, client.gotEntry)
	assert.Equal(t, "Never Gonna Give You Up", stream.Metadata.Title)
	assert.Equal(t, videoURL, stream.Metadata.URL)
}

func TestOpenEmptyPlaylist(t *testing.T) {
	client := &fakeClient{playlist: &youtube.Playlist{ID: "PLFgquLnL59alCl_2TQvOiD5Vgm1hCaGSI"}}
	s := New(client, zerolog.New(zerolog.NewTestWriter(t)))

	_, err := s.Open(context.Background(), playlistURL, parsers.QualityHigh)
	assert.ErrorIs(t, err, youtube.ErrInvalidPlaylist)
}

func TestOpenErrors(t *testing.T) {
	log := zerolog.New(zerolog.NewTestWriter(t))

	_, err := New(&fakeClient{err: youtube.ErrVideoPrivate}, log).Open(context.Background(), videoURL, parsers.QualityHigh)
	assert.ErrorIs(t, err, youtube.ErrVideoPrivate)

	noAudio := testVideo()
	noAudio.Formats = youtube.FormatList{{ItagNo: 137, MimeType: `video/mp4; codecs="avc1.640028"`}}
	_, err = New(&fakeClient{video: noAudio}, log).Open(context.Background(), videoURL, parsers.QualityHigh)
	assert.ErrorIs(t, err, parsers.ErrNoAudioFormats)

	_, err = New(&fakeClient{video: testVideo()}, log).Open(context.Background(), videoURL, parsers.QualityHigh)
	assert.ErrorIs(t, err, parsers.ErrEmptyStream)

	_, err = New(&fakeClient{}, log).Open(context.Background(), "https://example.com/x", parsers.QualityHigh)
	assert.Error(t, err)
}

func TestPickFormat(t *testing.T) {
	formats := testVideo().Formats

	high, err := pickFormat(formats, parsers.QualityHigh)
	require.NoError(t, err)
	assert.Equal(t, 251, high.ItagNo)

	medium, err := pickFormat(formats, parsers.QualityMedium)
	require.NoError(t, err)
	assert.Equal(t, 251, medium.ItagNo)

	low, err := pickFormat(formats, parsers.QualityLow)
	require.NoError(t, err)
	assert.Equal(t, 249, low.ItagNo)

	muxedOnly := youtube.FormatList{formats[0]}
	muxed, err := pickFormat(muxedOnly, parsers.QualityHigh)
	require.NoError(t, err)
	assert.Equal(t, 18, muxed.ItagNo)

	_, err = pickFormat(nil, parsers.QualityHigh)
	assert.True(t, errors.Is(err, parsers.ErrNoAudioFormats))
}
