// Package command holds what slash commands see of Discord: the invocation
// context, a responder that tracks what was already sent, and the
// middleware shared by every command.
package command

import (
	"errors"

	"github.com/bwmarrin/discordgo"

	"yt-play/internal/i18n"
)

var ErrNotInVoice = errors.New("user is not in a voice channel")

// Responder answers one interaction.
type Responder interface {
	// Defer acknowledges the interaction without content.
	Defer() error
	// Reply sends the first visible response.
	Reply(content string) error
	// Edit replaces the deferred or previous response.
	Edit(content string) error
	EditEmbed(embed *discordgo.MessageEmbed) error

	Deferred() bool
	// Replied reports whether a visible response has been sent.
	Replied() bool
}

// VoiceLocator finds the voice channel a member is in.
type VoiceLocator interface {
	// VoiceChannel returns ErrNotInVoice when the user is not connected.
	VoiceChannel(guildID, userID string) (string, error)
}

// SlashProvider is implemented by commands registered as slash commands.
type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

type SlashContext struct {
	Responder Responder
	GuildID   string
	ChannelID string
	UserID    string
	Username  string
	Locale    discordgo.Locale
	T         *i18n.Translator
}

// Finalize sends content as the terminal response: an edit when the
// interaction was deferred or answered, a reply otherwise.
func Finalize(r Responder, content string) error {
	if r.Deferred() || r.Replied() {
		return r.Edit(content)
	}
	return r.Reply(content)
}
