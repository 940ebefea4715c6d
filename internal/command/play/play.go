// Package play implements the /play slash command.
package play

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	embed "github.com/clinet/discordgo-embed"
	"github.com/rs/zerolog"

	"yt-play/internal/command"
	"yt-play/internal/i18n"
	"yt-play/internal/music/parsers"
	"yt-play/internal/music/session"
	"yt-play/internal/music/stream"
	"yt-play/pkg/cmd"
)

const (
	Name      = "play"
	OptionURL = "url"

	EmbedColor = 0x00ff00
)

type Validator interface {
	Validate(url string) bool
}

type Resolver interface {
	Resolve(ctx context.Context, url string) parsers.Result
}

// Session is a guild's voice connection plus player.
type Session interface {
	Bind() error
	Play(res *stream.Resource) error
}

// Connector opens or reuses the voice session of a guild.
type Connector interface {
	Connect(ctx context.Context, guildID, channelID string) (Session, error)
}

// ResourceFactory builds the playable resource of a resolved stream.
type ResourceFactory func(*parsers.Stream) *stream.Resource

type Deps struct {
	Validator   Validator
	Voice       command.VoiceLocator
	Sessions    Connector
	Resolver    Resolver
	NewResource ResourceFactory
	Log         zerolog.Logger
}

type PlayCommand struct {
	deps Deps
}

func New(deps Deps) *PlayCommand {
	return &PlayCommand{deps: deps}
}

func (c *PlayCommand) Name() string { return Name }

func (c *PlayCommand) Description() string { return i18n.MsgPlayDescription }

func (c *PlayCommand) SlashDefinition() *discordgo.ApplicationCommand {
	descriptions := i18n.Localizations(i18n.MsgPlayDescription)
	return &discordgo.ApplicationCommand{
		Name:                     Name,
		Description:              i18n.New("es").T(i18n.MsgPlayDescription),
		DescriptionLocalizations: &descriptions,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:                     discordgo.ApplicationCommandOptionString,
				Name:                     OptionURL,
				Description:              i18n.New("es").T(i18n.MsgURLDescription),
				DescriptionLocalizations: i18n.Localizations(i18n.MsgURLDescription),
				Required:                 true,
			},
		},
	}
}

// Run defers, checks the member's voice channel and the URL, connects,
// resolves and starts playback, then edits the deferred response with the
// now-playing embed. Every path ends with exactly one visible message.
func (c *PlayCommand) Run(ctx context.Context, inv *cmd.Invocation) (err error) {
	slash, ok := inv.Data.(*command.SlashContext)
	if !ok {
		return fmt.Errorf("wrong context type %T", inv.Data)
	}
	r := slash.Responder
	url := inv.Option(OptionURL)

	log := c.deps.Log.With().
		Str("guild", slash.GuildID).
		Str("user", slash.UserID).
		Str("url", url).
		Logger()

	if err := r.Defer(); err != nil {
		return fmt.Errorf("failed to send deferred response: %w", err)
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = &command.PanicError{Value: rec}
		}
		if err != nil {
			log.Error().Err(err).Msg("Error playing audio")
			if !r.Replied() {
				if ferr := command.Finalize(r, slash.T.T(i18n.MsgPlaybackFailed)); ferr != nil {
					log.Warn().Err(ferr).Msg("Failed to send failure message")
				}
			}
			err = nil
		}
	}()

	channelID, err := c.deps.Voice.VoiceChannel(slash.GuildID, slash.UserID)
	if err != nil {
		if !errors.Is(err, command.ErrNotInVoice) {
			log.Warn().Err(err).Msg("Voice state lookup failed")
		}
		return r.Edit(slash.T.T(i18n.MsgNotInVoice))
	}

	if !c.deps.Validator.Validate(url) {
		return r.Edit(slash.T.T(i18n.MsgInvalidURL))
	}

	sess, err := c.deps.Sessions.Connect(ctx, slash.GuildID, channelID)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	res := c.deps.Resolver.Resolve(ctx, url)
	if !res.OK() {
		reason := res.Reason
		if reason == nil {
			reason = parsers.ErrEmptyStream
		}
		return fmt.Errorf("resolve: %w", reason)
	}

	resource := c.deps.NewResource(res.Stream)
	if err := sess.Bind(); err != nil {
		resource.Close()
		return fmt.Errorf("bind: %w", err)
	}
	if err := sess.Play(resource); err != nil {
		return fmt.Errorf("play: %w", err)
	}

	md := resource.Metadata()
	log.Info().Str("title", md.Title).Str("parser", res.Stream.Parser).Msg("Now playing")

	// the track is already playing; a lost embed is not a playback failure
	if err := r.EditEmbed(nowPlaying(slash.T, md, url)); err != nil {
		log.Warn().Err(err).Msg("Failed to send now playing embed")
	}
	return nil
}

func nowPlaying(t *i18n.Translator, md parsers.Metadata, url string) *discordgo.MessageEmbed {
	e := embed.NewEmbed().
		SetTitle(t.T(i18n.MsgNowPlaying)).
		SetDescription(fmt.Sprintf("[%s](%s)", md.Title, url)).
		SetColor(EmbedColor)
	if md.ThumbnailURL != "" {
		e.SetThumbnail(md.ThumbnailURL)
	}
	return e.MessageEmbed
}

// Sessions adapts a session registry to Connector.
func Sessions(r *session.Registry) Connector {
	return registryConnector{r}
}

type registryConnector struct {
	r *session.Registry
}

func (c registryConnector) Connect(ctx context.Context, guildID, channelID string) (Session, error) {
	s, err := c.r.Connect(ctx, guildID, channelID)
	if err != nil {
		return nil, err
	}
	return s, nil
}
