package youtube

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	kkdai "github.com/kkdai/youtube/v2"
)

// Kind is what a YouTube URL points at.
type Kind int

const (
	KindUnknown Kind = iota
	KindVideo
	KindPlaylist
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindPlaylist:
		return "playlist"
	default:
		return "unknown"
	}
}

var (
	ErrNotURL         = errors.New("not an http(s) URL")
	ErrUnsupportedURL = errors.New("not a YouTube URL")
	ErrNoVideoID      = errors.New("no video ID in URL")
)

var (
	playlistIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{13,42}$`)
	videoIDPattern    = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

var youtubeHosts = map[string]bool{
	"youtube.com":              true,
	"www.youtube.com":          true,
	"m.youtube.com":            true,
	"music.youtube.com":        true,
	"youtu.be":                 true,
	"www.youtu.be":             true,
	"youtube-nocookie.com":     true,
	"www.youtube-nocookie.com": true,
}

// path prefixes that carry the video ID as the next segment
var idPathPrefixes = []string{"/shorts/", "/embed/", "/live/", "/v/"}

// Classify reports whether raw is a YouTube video or playlist URL.
func Classify(raw string) (Kind, error) {
	raw = strings.TrimSpace(raw)
	if !isURL(raw) {
		return KindUnknown, ErrNotURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return KindUnknown, fmt.Errorf("parse url: %w", err)
	}

	host := strings.ToLower(u.Hostname())
	if !youtubeHosts[host] {
		return KindUnknown, fmt.Errorf("%w: %s", ErrUnsupportedURL, host)
	}

	// a watch link opened from inside a playlist still names one video
	id, idErr := videoID(host, u)
	if idErr == nil {
		return KindVideo, nil
	}
	if PlaylistID(u) != "" {
		return KindPlaylist, nil
	}
	if id == "" {
		return KindUnknown, idErr
	}
	return KindUnknown, fmt.Errorf("extract video id: %w", idErr)
}

func videoID(host string, u *url.URL) (string, error) {
	candidate := videoCandidate(host, u)
	if candidate == "" {
		return "", ErrNoVideoID
	}

	id, err := kkdai.ExtractVideoID(candidate)
	if err != nil {
		return candidate, err
	}
	if !videoIDPattern.MatchString(id) {
		return id, fmt.Errorf("%w: %q", ErrNoVideoID, id)
	}
	return id, nil
}

// PlaylistID returns the list parameter of u when it is a well-formed playlist ID.
func PlaylistID(u *url.URL) string {
	list := u.Query().Get("list")
	if playlistIDPattern.MatchString(list) {
		return list
	}
	return ""
}

func videoCandidate(host string, u *url.URL) string {
	if strings.HasSuffix(host, "youtu.be") {
		return strings.Trim(u.Path, "/")
	}

	if u.Path == "/watch" {
		return u.Query().Get("v")
	}

	for _, prefix := range idPathPrefixes {
		if rest, ok := strings.CutPrefix(u.Path, prefix); ok {
			id, _, _ := strings.Cut(rest, "/")
			return id
		}
	}

	return ""
}
