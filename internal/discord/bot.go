// Package discord connects the command registry and the voice sessions to a
// Discord gateway session.
package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"yt-play/internal/command"
	"yt-play/internal/config"
	"yt-play/internal/i18n"
	"yt-play/internal/music/session"
	"yt-play/pkg/cmd"
)

// Discord allows a handful of command writes per second per application.
const (
	registerInterval = 250 * time.Millisecond
	registerBurst    = 2
)

// Bot is a Discord bot
type Bot struct {
	dg       *discordgo.Session
	cfg      *config.Config
	log      zerolog.Logger
	commands *cmd.Registry
	catalog  *i18n.Catalog
	limiter  *rate.Limiter

	mu       sync.RWMutex
	ctx      context.Context
	sessions *session.Registry
}

// NewBot creates the gateway session without connecting it.
func NewBot(cfg *config.Config, commands *cmd.Registry, log zerolog.Logger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	return &Bot{
		dg:       dg,
		cfg:      cfg,
		log:      log,
		commands: commands,
		catalog:  i18n.NewCatalog(cfg.Locale),
		limiter:  rate.NewLimiter(rate.Every(registerInterval), registerBurst),
		ctx:      context.Background(),
	}, nil
}

// Voice returns a locator backed by the gateway's voice state cache.
func (b *Bot) Voice() command.VoiceLocator {
	return stateVoice{state: b.dg.State}
}

// Joiner returns a joiner that opens voice connections on this session.
func (b *Bot) Joiner() session.Joiner {
	return voiceJoiner{dg: b.dg}
}

// UseSessions hands the session registry to the bot: Run logs its playback
// errors and closes it on shutdown.
func (b *Bot) UseSessions(r *session.Registry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions = r
}

// Run opens the gateway and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.mu.Lock()
	b.ctx = ctx
	sessions := b.sessions
	b.mu.Unlock()

	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onInteractionCreate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	if sessions != nil {
		defer sessions.Close()
		go b.logPlaybackErrors(sessions.Errors())
	}

	<-ctx.Done()
	b.log.Info().Msg("Shutdown signal received, cleaning up")
	return nil
}

func (b *Bot) runCtx() context.Context {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ctx
}

func (b *Bot) logPlaybackErrors(errs <-chan session.GuildError) {
	for ge := range errs {
		b.log.Error().Err(ge.Err).Str("guild", ge.GuildID).Msg("Playback failed")
	}
}
