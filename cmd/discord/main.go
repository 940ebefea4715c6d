// cmd/discord/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"yt-play/internal/command"
	"yt-play/internal/command/play"
	"yt-play/internal/config"
	"yt-play/internal/discord"
	"yt-play/internal/logging"
	"yt-play/internal/music/parsers"
	"yt-play/internal/music/parsers/kkdai"
	"yt-play/internal/music/parsers/ytdlp"
	"yt-play/internal/music/session"
	"yt-play/internal/music/source_resolver"
	"yt-play/internal/music/sources/youtube"
	"yt-play/internal/music/stream"
	v "yt-play/internal/version"
	"yt-play/pkg/cmd"
)

func main() {
	cfg := config.New()

	log, closer := logging.New(cfg)
	defer closer.Close()

	log.Info().Str("app", v.AppName).Str("go", v.GoVersion).Str("built", v.BuildDate).Msg("Starting bot")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ffmpegPath, err := stream.LocateFFmpeg(cfg.FFmpegPath)
	found := err == nil
	if !found {
		log.Warn().Err(err).Msg("ffmpeg not found, playback will fail until it is installed")
		ffmpegPath = "ffmpeg"
	}
	ffmpeg := stream.NewFFmpeg(ffmpegPath, logging.Component(log, "ffmpeg"))
	if found {
		log.Info().Str("path", ffmpeg.Path()).Msg("ffmpeg located")
	}

	quality := parsers.Quality(cfg.StreamQuality)

	var ytdlpOpts []ytdlp.Option
	if cfg.YTDLPPath != "" {
		ytdlpOpts = append(ytdlpOpts, ytdlp.WithExecutable(cfg.YTDLPPath))
	}

	yt := youtube.NewClient(cfg.YouTubeProxy, logging.Component(log, "youtube"))
	resolver := source_resolver.New(
		[]parsers.Streamer{
			kkdai.New(yt, logging.Component(log, kkdai.Name)),
			ytdlp.New(cfg.YouTubeProxy, logging.Component(log, ytdlp.Name), ytdlpOpts...),
		},
		source_resolver.WithQuality(quality),
		source_resolver.WithTimeout(cfg.ResolveTimeout),
		source_resolver.WithLogger(logging.Component(log, "resolver")),
	)

	commands := cmd.NewRegistry()
	bot, err := discord.NewBot(cfg, commands, logging.Component(log, "discord"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	sessions := session.NewRegistry(ctx, bot.Joiner(),
		func() (stream.Encoder, error) { return stream.NewOpusEncoder(quality) },
		session.WithIdleTimeout(cfg.IdleTimeout),
		session.WithLogger(logging.Component(log, "session")),
	)
	bot.UseSessions(sessions)

	playCmd := play.New(play.Deps{
		Validator: youtube.NewValidator(logging.Component(log, "validator")),
		Voice:     bot.Voice(),
		Sessions:  play.Sessions(sessions),
		Resolver:  resolver,
		NewResource: func(s *parsers.Stream) *stream.Resource {
			return stream.NewResource(s, ffmpeg, cfg.Volume)
		},
		Log: logging.Component(log, "play"),
	})
	if err := commands.Register(cmd.Apply(playCmd,
		command.WithRecover(),
		command.WithGuildOnly(),
		command.WithCommandLogger(logging.Component(log, "command")),
	)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register commands")
	}

	if err := bot.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Discord bot error")
		closer.Close()
		os.Exit(1)
	}

	log.Info().Msg("Discord bot exited cleanly")
}
