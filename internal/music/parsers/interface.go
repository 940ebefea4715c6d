package parsers

import "context"

// Streamer opens the audio of a YouTube URL.
type Streamer interface {
	Name() string
	Open(ctx context.Context, url string, quality Quality) (*Stream, error)
}
