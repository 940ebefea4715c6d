// Package ytdlp opens YouTube audio by running yt-dlp through go-ytdlp.
package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	goytdlp "github.com/lrstanley/go-ytdlp"
	"github.com/rs/zerolog"

	"yt-play/internal/music/parsers"
	ytsource "yt-play/internal/music/sources/youtube"
)

const Name = "ytdlp"

// printTemplate is split on tabs by parseMetadata.
const printTemplate = "%(id)s\t%(title)s\t%(duration)s\t%(thumbnail)s\t%(webpage_url)s"

var formats = map[parsers.Quality]string{
	parsers.QualityLow:    "worstaudio[acodec=opus]/worstaudio/bestaudio",
	parsers.QualityMedium: "bestaudio[acodec=opus][abr<=96]/bestaudio[abr<=128]/bestaudio",
	parsers.QualityHigh:   "bestaudio[acodec=opus]/bestaudio[ext=webm]/bestaudio",
}

type YTDLPStreamer struct {
	proxy      string
	executable string
	log        zerolog.Logger
}

type Option func(*YTDLPStreamer)

// WithExecutable runs the given yt-dlp binary instead of the one go-ytdlp
// finds in its cache or on PATH.
func WithExecutable(path string) Option {
	return func(s *YTDLPStreamer) { s.executable = path }
}

func New(proxy string, log zerolog.Logger, opts ...Option) *YTDLPStreamer {
	s := &YTDLPStreamer{proxy: proxy, log: log.With().Str("parser", Name).Logger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *YTDLPStreamer) Name() string { return Name }

// Open asks yt-dlp for the metadata of the video (or first entry of a
// playlist link), then starts a second yt-dlp writing the audio to stdout.
func (s *YTDLPStreamer) Open(ctx context.Context, url string, quality parsers.Quality) (*parsers.Stream, error) {
	format := formatFor(quality)
	url = ytsource.CleanVideoURL(url)

	res, err := s.command().
		Print(printTemplate).
		Format(format).
		NoCheckFormats().
		Run(ctx, url)
	if err != nil {
		if res != nil && res.Stderr != "" {
			return nil, fmt.Errorf("yt-dlp metadata: %w: %s", err, strings.TrimSpace(res.Stderr))
		}
		return nil, fmt.Errorf("yt-dlp metadata: %w", err)
	}

	md, err := parseMetadata(res.Stdout)
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	cmd := s.command().
		Format(format).
		Output("-").
		NoSimulate().
		NoPart().
		NoCheckFormats().
		BuildCommand(streamCtx, url)

	var stderr strings.Builder
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("yt-dlp stdout pipe error: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("yt-dlp start error: %w", err)
	}

	s.log.Debug().Str("url", url).Str("format", format).Msg("yt-dlp streaming")

	return &parsers.Stream{
		ReadCloser: &process{ReadCloser: stdout, cmd: cmd, cancel: cancel, stderr: &stderr, log: s.log},
		Format:     format,
		Parser:     Name,
		Metadata:   md,
	}, nil
}

func (s *YTDLPStreamer) command() *goytdlp.Command {
	cmd := goytdlp.New().
		NoPlaylist().
		PlaylistItems("1").
		NoWarnings().
		IgnoreConfig()
	if s.executable != "" {
		cmd.SetExecutable(s.executable)
	}
	if s.proxy != "" {
		cmd.Proxy(s.proxy)
	}
	return cmd
}

func formatFor(q parsers.Quality) string {
	if f, ok := formats[q]; ok {
		return f
	}
	return formats[parsers.QualityHigh]
}

func parseMetadata(stdout string) (parsers.Metadata, error) {
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) < 5 {
			continue
		}

		md := parsers.Metadata{
			Title:        parts[1],
			ThumbnailURL: noneToEmpty(parts[3]),
			URL:          noneToEmpty(parts[4]),
		}
		if md.URL == "" && parts[0] != "" {
			md.URL = "https://www.youtube.com/watch?v=" + parts[0]
		}
		if secs, err := strconv.ParseFloat(parts[2], 64); err == nil {
			md.Duration = time.Duration(secs * float64(time.Second))
		}
		return md, nil
	}
	return parsers.Metadata{}, errors.New("failed to parse yt-dlp metadata")
}

// yt-dlp prints NA for missing fields.
func noneToEmpty(s string) string {
	if s == "NA" {
		return ""
	}
	return s
}

// process is the stdout of a running yt-dlp. Closing it stops the process.
type process struct {
	io.ReadCloser
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stderr *strings.Builder
	log    zerolog.Logger
}

func (p *process) Close() error {
	p.cancel()
	err := p.cmd.Wait()

	// killed on purpose, the exit status carries no information
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) && !errors.Is(err, context.Canceled) {
		return err
	}
	if exitErr != nil && p.stderr.Len() > 0 {
		p.log.Debug().Str("stderr", strings.TrimSpace(p.stderr.String())).Msg("yt-dlp exited")
	}
	return nil
}
