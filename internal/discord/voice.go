package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"yt-play/internal/command"
	"yt-play/internal/music/session"
)

// stateVoice finds members' voice channels in the gateway state cache.
type stateVoice struct {
	state *discordgo.State
}

func (v stateVoice) VoiceChannel(guildID, userID string) (string, error) {
	vs, err := v.state.VoiceState(guildID, userID)
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return "", command.ErrNotInVoice
	}
	if err != nil {
		return "", fmt.Errorf("error retrieving voice state: %w", err)
	}
	if vs == nil || vs.ChannelID == "" {
		return "", command.ErrNotInVoice
	}
	return vs.ChannelID, nil
}

// voiceJoiner opens voice connections through the gateway session.
type voiceJoiner struct {
	dg *discordgo.Session
}

type joinResult struct {
	vc  *discordgo.VoiceConnection
	err error
}

// Join connects self-deafened. discordgo blocks until the voice handshake
// completes or times out; when ctx ends first the late connection is dropped.
func (j voiceJoiner) Join(ctx context.Context, guildID, channelID string) (session.Conn, error) {
	done := make(chan joinResult, 1)
	go func() {
		vc, err := j.dg.ChannelVoiceJoin(guildID, channelID, false, true)
		done <- joinResult{vc, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("failed to join voice channel %s: %w", channelID, res.err)
		}
		return &voiceConn{vc: res.vc}, nil
	case <-ctx.Done():
		go func() {
			if res := <-done; res.err == nil {
				_ = res.vc.Disconnect()
			}
		}()
		return nil, ctx.Err()
	}
}

// voiceConn adapts a discordgo voice connection to session.Conn.
type voiceConn struct {
	vc *discordgo.VoiceConnection
}

func (c *voiceConn) Speaking(b bool) error { return c.vc.Speaking(b) }

func (c *voiceConn) Frames() chan<- []byte { return c.vc.OpusSend }

func (c *voiceConn) ChannelID() string {
	c.vc.RLock()
	defer c.vc.RUnlock()
	return c.vc.ChannelID
}

func (c *voiceConn) Disconnect() error { return c.vc.Disconnect() }
