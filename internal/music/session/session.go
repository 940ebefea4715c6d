// Package session keeps one voice connection and one player per guild.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"yt-play/internal/music/player"
	"yt-play/internal/music/stream"
)

const errorBuffer = 64

// Conn is an open voice connection.
type Conn interface {
	player.Output
	ChannelID() string
	Disconnect() error
}

// Joiner opens voice connections. Joining a guild that already has a
// connection moves it to the new channel.
type Joiner interface {
	Join(ctx context.Context, guildID, channelID string) (Conn, error)
}

// GuildError is an asynchronous playback error of one guild.
type GuildError struct {
	GuildID string
	Err     error
}

func (e GuildError) Error() string {
	return fmt.Sprintf("guild %s: %v", e.GuildID, e.Err)
}

func (e GuildError) Unwrap() error { return e.Err }

type Session struct {
	guildID     string
	player      *player.Player
	unsubscribe func()

	// connectMu is held while joining so one guild never joins twice at once.
	connectMu sync.Mutex

	mu         sync.Mutex
	conn       Conn
	lastActive time.Time
}

// ChannelID is the voice channel the session is connected to.
func (s *Session) ChannelID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ""
	}
	return s.conn.ChannelID()
}

// Bind subscribes the connection to the guild's player.
func (s *Session) Bind() error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return player.ErrNoOutput
	}
	s.player.Subscribe(conn)
	return nil
}

// Play preempts whatever the guild is playing with res.
func (s *Session) Play(res *stream.Resource) error {
	s.touch(time.Now())
	return s.player.Play(res)
}

func (s *Session) touch(t time.Time) {
	s.mu.Lock()
	s.lastActive = t
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

type Registry struct {
	joiner      Joiner
	newEncoder  player.EncoderFactory
	idleTimeout time.Duration
	log         zerolog.Logger
	now         func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*Session
	errs     chan GuildError
	closed   bool
}

type Option func(*Registry)

// WithIdleTimeout sets how long a silent session stays connected. Zero keeps
// sessions until Close.
func WithIdleTimeout(d time.Duration) Option {
	return func(r *Registry) { r.idleTimeout = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

func NewRegistry(ctx context.Context, joiner Joiner, newEncoder player.EncoderFactory, opts ...Option) *Registry {
	ctx, cancel := context.WithCancel(ctx)
	r := &Registry{
		joiner:     joiner,
		newEncoder: newEncoder,
		log:        zerolog.Nop(),
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
		sessions:   make(map[string]*Session),
		errs:       make(chan GuildError, errorBuffer),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.idleTimeout > 0 {
		r.wg.Add(1)
		go r.reapLoop()
	}
	return r
}

// Errors delivers playback errors of every guild. It is closed by Close.
func (r *Registry) Errors() <-chan GuildError {
	return r.errs
}

// Connect returns the guild's session connected to channelID, joining or
// moving the voice connection when needed.
func (r *Registry) Connect(ctx context.Context, guildID, channelID string) (*Session, error) {
	s, err := r.session(guildID)
	if err != nil {
		return nil, err
	}

	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	if current := s.ChannelID(); current == channelID {
		s.touch(r.now())
		return s, nil
	} else if current != "" {
		r.log.Info().Str("guild", guildID).Str("from", current).Str("to", channelID).Msg("Moving voice connection")
	}

	conn, err := r.joiner.Join(ctx, guildID, channelID)
	if err != nil {
		if s.ChannelID() == "" {
			r.remove(s)
		}
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.lastActive = r.now()
	s.mu.Unlock()

	r.log.Info().Str("guild", guildID).Str("channel", channelID).Msg("Joined voice channel")
	return s, nil
}

func (r *Registry) session(guildID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, player.ErrClosed
	}

	if s, ok := r.sessions[guildID]; ok {
		s.touch(r.now())
		return s, nil
	}

	p := player.New(r.ctx, guildID, r.newEncoder, r.log.With().Str("component", "player").Logger())
	s := &Session{guildID: guildID, player: p, lastActive: r.now()}
	s.unsubscribe = p.OnError(func(err error) { r.report(guildID, err) })
	r.sessions[guildID] = s
	return s, nil
}

func (r *Registry) report(guildID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	select {
	case r.errs <- GuildError{GuildID: guildID, Err: err}:
	default:
		r.log.Warn().Err(err).Str("guild", guildID).Msg("Player error dropped (channel full)")
	}
}

// Reap disconnects sessions that have been silent for the idle timeout and
// returns how many it removed.
func (r *Registry) Reap() int {
	if r.idleTimeout <= 0 {
		return 0
	}

	now := r.now()

	r.mu.Lock()
	var idle []*Session
	for _, s := range r.sessions {
		if s.player.IsPlaying() {
			s.touch(now)
			continue
		}
		if now.Sub(s.idleSince()) >= r.idleTimeout {
			idle = append(idle, s)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		r.log.Info().Str("guild", s.guildID).Msg("Leaving idle voice channel")
		r.teardown(s)
	}
	return len(idle)
}

func (r *Registry) reapLoop() {
	defer r.wg.Done()

	interval := max(r.idleTimeout/4, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.Reap()
		}
	}
}

func (r *Registry) remove(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[s.guildID] != s {
		return false
	}
	delete(r.sessions, s.guildID)
	return true
}

func (r *Registry) teardown(s *Session) {
	if !r.remove(s) {
		return
	}

	s.unsubscribe()
	s.player.Close()

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		if err := conn.Disconnect(); err != nil {
			r.log.Warn().Err(err).Str("guild", s.guildID).Msg("Failed to disconnect voice connection")
		}
	}
}

// Close stops every player, leaves every voice channel and closes Errors.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()

	for _, s := range sessions {
		r.teardown(s)
	}

	r.mu.Lock()
	close(r.errs)
	r.mu.Unlock()
}
