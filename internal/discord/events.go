package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"yt-play/internal/command"
	"yt-play/internal/i18n"
	"yt-play/pkg/cmd"
)

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info().
		Str("user", r.User.Username).
		Int("guilds", len(r.Guilds)).
		Msg("Discord session ready")

	appID := r.User.ID
	if r.Application != nil && r.Application.ID != "" {
		appID = r.Application.ID
	}
	go b.registerCommands(b.runCtx(), s, appID)
}

// registerCommands syncs slash commands to every configured guild, or
// globally when none are configured.
func (b *Bot) registerCommands(ctx context.Context, api commandAPI, appID string) {
	guilds := b.cfg.DiscordGuildIDs
	if len(guilds) == 0 {
		guilds = []string{""}
	}

	s := &syncer{api: api, limiter: b.limiter, log: b.log}
	defs := commandDefinitions(b.commands)
	for _, guildID := range guilds {
		if err := s.sync(ctx, appID, guildID, defs); err != nil {
			b.log.Error().Err(err).Str("guild", scopeName(guildID)).Msg("Failed to register commands")
		}
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.dispatch(b.runCtx(), s, i)
}

// dispatch runs the chat-input command of an interaction. When the command
// fails without having answered, the user gets a generic failure message.
func (b *Bot) dispatch(ctx context.Context, api interactionAPI, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.CommandType != 0 && data.CommandType != discordgo.ChatApplicationCommand {
		return
	}

	t := b.catalog.For(i.Locale)
	r := newResponder(api, i.Interaction)
	log := b.log.With().Str("command", data.Name).Str("guild", i.GuildID).Logger()

	c, ok := b.commands.Get(data.Name)
	if !ok {
		log.Warn().Msg("Unknown command")
		if err := command.Finalize(r, t.T(i18n.MsgRequestFailed)); err != nil {
			log.Warn().Err(err).Msg("Failed to answer unknown command")
		}
		return
	}

	userID, username := invoker(i)
	inv := &cmd.Invocation{
		Options: options(data.Options),
		Data: &command.SlashContext{
			Responder: r,
			GuildID:   i.GuildID,
			ChannelID: i.ChannelID,
			UserID:    userID,
			Username:  username,
			Locale:    i.Locale,
			T:         t,
		},
	}

	if err := c.Run(ctx, inv); err != nil {
		log.Error().Err(err).Msg("Command failed")
		if !r.Replied() {
			if ferr := command.Finalize(r, t.T(i18n.MsgRequestFailed)); ferr != nil {
				log.Warn().Err(ferr).Msg("Failed to send failure message")
			}
		}
	}
}

func invoker(i *discordgo.InteractionCreate) (id, name string) {
	switch {
	case i.Member != nil && i.Member.User != nil:
		return i.Member.User.ID, i.Member.User.Username
	case i.User != nil:
		return i.User.ID, i.User.Username
	}
	return "", ""
}

func options(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]string {
	out := make(map[string]string, len(opts))
	for _, o := range opts {
		if o.Type == discordgo.ApplicationCommandOptionString {
			out[o.Name] = o.StringValue()
			continue
		}
		out[o.Name] = fmt.Sprint(o.Value)
	}
	return out
}
