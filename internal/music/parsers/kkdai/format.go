package kkdai

import (
	"cmp"
	"slices"
	"strings"

	"github.com/kkdai/youtube/v2"

	"yt-play/internal/music/parsers"
)

var qualityLevels = map[string]int{
	"AUDIO_QUALITY_LOW":    0,
	"AUDIO_QUALITY_MEDIUM": 1,
	"AUDIO_QUALITY_HIGH":   2,
}

var targetLevels = map[parsers.Quality]int{
	parsers.QualityLow:    0,
	parsers.QualityMedium: 1,
	parsers.QualityHigh:   2,
}

// pickFormat prefers audio-only formats, Opus before anything else, then the
// audio quality closest to the requested tier, then bitrate (highest for
// medium and high, lowest for low). Muxed formats are used only when no
// audio-only format exists.
func pickFormat(formats youtube.FormatList, quality parsers.Quality) (*youtube.Format, error) {
	candidates := audioOnly(formats)
	if len(candidates) == 0 {
		candidates = slices.Clone(formats.WithAudioChannels())
	}
	if len(candidates) == 0 {
		return nil, parsers.ErrNoAudioFormats
	}

	target, ok := targetLevels[quality]
	if !ok {
		target = targetLevels[parsers.QualityHigh]
	}

	slices.SortStableFunc(candidates, func(a, b youtube.Format) int {
		if c := cmp.Compare(opusRank(b), opusRank(a)); c != 0 {
			return c
		}
		if c := cmp.Compare(distance(a, target), distance(b, target)); c != 0 {
			return c
		}
		if target == 0 {
			return cmp.Compare(a.Bitrate, b.Bitrate)
		}
		return cmp.Compare(b.Bitrate, a.Bitrate)
	})

	return &candidates[0], nil
}

func audioOnly(formats youtube.FormatList) []youtube.Format {
	var out []youtube.Format
	for _, f := range formats {
		if f.AudioChannels > 0 && strings.HasPrefix(f.MimeType, "audio/") {
			out = append(out, f)
		}
	}
	return out
}

func opusRank(f youtube.Format) int {
	if strings.Contains(f.MimeType, "opus") {
		return 1
	}
	return 0
}

func distance(f youtube.Format, target int) int {
	level, ok := qualityLevels[f.AudioQuality]
	if !ok {
		return 3
	}
	if level > target {
		return level - target
	}
	return target - level
}
