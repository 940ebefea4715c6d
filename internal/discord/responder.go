package discord

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

// interactionAPI is the part of *discordgo.Session used to answer interactions.
type interactionAPI interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// responder implements command.Responder for one interaction.
type responder struct {
	api         interactionAPI
	interaction *discordgo.Interaction

	mu       sync.Mutex
	deferred bool
	replied  bool
}

func newResponder(api interactionAPI, i *discordgo.Interaction) *responder {
	return &responder{api: api, interaction: i}
}

func (r *responder) Defer() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.deferred || r.replied {
		return nil
	}
	err := r.api.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		return err
	}
	r.deferred = true
	return nil
}

func (r *responder) Reply(content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.deferred || r.replied {
		return r.edit(&content, &[]*discordgo.MessageEmbed{})
	}
	return r.respondLocked(content)
}

func (r *responder) Edit(content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.deferred && !r.replied {
		return r.respondLocked(content)
	}
	return r.edit(&content, &[]*discordgo.MessageEmbed{})
}

func (r *responder) EditEmbed(embed *discordgo.MessageEmbed) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.deferred && !r.replied {
		err := r.api.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
		})
		if err != nil {
			return err
		}
		r.replied = true
		return nil
	}
	empty := ""
	return r.edit(&empty, &[]*discordgo.MessageEmbed{embed})
}

func (r *responder) Deferred() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deferred
}

func (r *responder) Replied() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replied
}

func (r *responder) respondLocked(content string) error {
	err := r.api.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
	if err != nil {
		return err
	}
	r.replied = true
	return nil
}

// edit replaces the original response. Callers hold r.mu.
func (r *responder) edit(content *string, embeds *[]*discordgo.MessageEmbed) error {
	if _, err := r.api.InteractionResponseEdit(r.interaction, &discordgo.WebhookEdit{
		Content: content,
		Embeds:  embeds,
	}); err != nil {
		return err
	}
	r.replied = true
	return nil
}
