package discord

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"yt-play/internal/command"
	"yt-play/pkg/cmd"
)

// commandAPI is the part of *discordgo.Session used to sync slash commands.
type commandAPI interface {
	ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommandCreate(appID, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error
}

// syncer registers slash commands, globally when guildID is "".
type syncer struct {
	api     commandAPI
	limiter *rate.Limiter
	log     zerolog.Logger
}

// sync deletes remote commands that are no longer defined and creates the
// ones whose definition changed. Every write waits on the limiter.
func (s *syncer) sync(ctx context.Context, appID, guildID string, defs []*discordgo.ApplicationCommand) error {
	log := s.log.With().Str("guild", scopeName(guildID)).Logger()

	remote, err := s.api.ApplicationCommands(appID, guildID)
	if err != nil {
		return fmt.Errorf("failed to list commands: %w", err)
	}
	remoteByName := make(map[string]*discordgo.ApplicationCommand, len(remote))
	for _, rc := range remote {
		remoteByName[rc.Name] = rc
	}

	local := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		local[d.Name] = struct{}{}
	}

	for name, rc := range remoteByName {
		if _, ok := local[name]; ok {
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := s.api.ApplicationCommandDelete(appID, guildID, rc.ID); err != nil {
			log.Error().Err(err).Str("command", name).Msg("Failed to delete obsolete command")
			continue
		}
		log.Info().Str("command", name).Msg("Deleted obsolete command")
	}

	for _, d := range defs {
		if rc, ok := remoteByName[d.Name]; ok && hashCommand(rc) == hashCommand(d) {
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		if _, err := s.api.ApplicationCommandCreate(appID, guildID, d); err != nil {
			log.Error().Err(err).Str("command", d.Name).Msg("Failed to register command")
			continue
		}
		log.Info().Str("command", d.Name).Msg("Registered command")
	}
	return nil
}

func scopeName(guildID string) string {
	if guildID == "" {
		return "global"
	}
	return guildID
}

// commandDefinitions returns the slash definitions of all registered commands,
// walking through middleware wrappers via cmd.Root.
func commandDefinitions(r *cmd.Registry) []*discordgo.ApplicationCommand {
	var defs []*discordgo.ApplicationCommand
	for _, c := range r.GetAll() {
		slash, ok := cmd.Root(c).(command.SlashProvider)
		if !ok {
			continue
		}
		def := slash.SlashDefinition()
		if def == nil {
			continue
		}
		if def.Type == 0 {
			def.Type = discordgo.ChatApplicationCommand
		}
		defs = append(defs, def)
	}
	return defs
}

// hashCommand returns a deterministic SHA-1 of a command's stable fields.
// IDs and versions assigned by Discord are left out.
func hashCommand(c *discordgo.ApplicationCommand) string {
	typ := c.Type
	if typ == 0 {
		typ = discordgo.ChatApplicationCommand
	}
	stable := map[string]interface{}{
		"name":        c.Name,
		"description": c.Description,
		"type":        typ,
	}
	if c.DescriptionLocalizations != nil {
		stable["description_localizations"] = *c.DescriptionLocalizations
	}
	if len(c.Options) > 0 {
		stable["options"] = normalizeOptions(c.Options)
	}
	data, _ := json.Marshal(stable)
	sum := sha1.Sum(data)
	return fmt.Sprintf("%x", sum)
}

func normalizeOptions(opts []*discordgo.ApplicationCommandOption) []map[string]interface{} {
	out := make([]map[string]interface{}, len(opts))
	for i, o := range opts {
		entry := map[string]interface{}{
			"name":        o.Name,
			"description": o.Description,
			"type":        o.Type,
			"required":    o.Required,
		}
		if len(o.DescriptionLocalizations) > 0 {
			entry["description_localizations"] = o.DescriptionLocalizations
		}
		if len(o.Choices) > 0 {
			choices := make([]map[string]interface{}, len(o.Choices))
			for j, ch := range o.Choices {
				choices[j] = map[string]interface{}{"name": ch.Name, "value": ch.Value}
			}
			entry["choices"] = choices
		}
		if len(o.Options) > 0 {
			entry["options"] = normalizeOptions(o.Options)
		}
		out[i] = entry
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i]["name"].(string) < out[j]["name"].(string)
	})
	return out
}
