package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const waitDelay = 5 * time.Second

var ErrFFmpegNotFound = errors.New("ffmpeg not found")

// Transcoder decodes encoded audio into s16le 48kHz stereo PCM.
type Transcoder interface {
	Transcode(ctx context.Context, in io.Reader) (io.ReadCloser, error)
}

// LocateFFmpeg returns configured when it names an executable, otherwise
// ffmpeg from PATH.
func LocateFFmpeg(configured string) (string, error) {
	if configured != "" {
		if path, err := exec.LookPath(configured); err == nil {
			return path, nil
		}
	}
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFFmpegNotFound, err)
	}
	return path, nil
}

type FFmpeg struct {
	path string
	log  zerolog.Logger
}

func NewFFmpeg(path string, log zerolog.Logger) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{path: path, log: log}
}

func (f *FFmpeg) Path() string { return f.path }

func (f *FFmpeg) Transcode(ctx context.Context, in io.Reader) (io.ReadCloser, error) {
	ctx, cancel := context.WithCancel(ctx)

	cmd := exec.CommandContext(ctx, f.path,
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-loglevel", "warning",
		"pipe:1",
	)
	cmd.Stdin = in
	cmd.Stderr = f.log.With().Str("proc", "ffmpeg").Logger()
	cmd.WaitDelay = waitDelay

	reader, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdout pipe error: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}

	return &process{ReadCloser: reader, cmd: cmd, cancel: cancel}, nil
}

type process struct {
	io.ReadCloser
	cmd    *exec.Cmd
	cancel context.CancelFunc
}

func (p *process) Close() error {
	p.cancel()
	err := p.cmd.Wait()

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
