// /internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func init() {
	err := godotenv.Load()
	if err != nil {
		log.Info().Msg("No .env file found, falling back to system environment variables")
	}
}

// Quality tiers accepted by STREAM_QUALITY.
const (
	QualityLow    = "low"
	QualityMedium = "medium"
	QualityHigh   = "high"
)

type Config struct {
	DiscordToken    string   `env:"DISCORD_TOKEN,required,notEmpty"`
	DiscordGuildIDs []string `env:"DISCORD_GUILD_IDS" envSeparator:","`

	FFmpegPath   string `env:"FFMPEG_PATH"`
	YTDLPPath    string `env:"YTDLP_PATH"`
	YouTubeProxy string `env:"YOUTUBE_PROXY"`

	StreamQuality  string        `env:"STREAM_QUALITY" envDefault:"high"`
	Volume         float64       `env:"VOLUME" envDefault:"1.0"`
	IdleTimeout    time.Duration `env:"IDLE_TIMEOUT" envDefault:"5m"`
	ResolveTimeout time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"30s"`

	Locale string `env:"LOCALE" envDefault:"es"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile   string `env:"LOG_FILE"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"true"`
}

// New loads the configuration from the process environment and exits on error.
func New() *Config {
	cfg, err := Load(env.Options{})
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	return cfg
}

// Load parses the configuration with the given env options. Tests pass
// opts.Environment to avoid touching the process environment.
func Load(opts env.Options) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values the env tags cannot express.
func (c *Config) Validate() error {
	switch c.StreamQuality {
	case QualityLow, QualityMedium, QualityHigh:
	default:
		return fmt.Errorf("invalid STREAM_QUALITY %q: want low, medium or high", c.StreamQuality)
	}

	if c.Volume < 0 || c.Volume > 2 {
		return fmt.Errorf("invalid VOLUME %v: must be between 0 and 2", c.Volume)
	}

	if c.IdleTimeout < 0 {
		return fmt.Errorf("invalid IDLE_TIMEOUT %v", c.IdleTimeout)
	}

	if c.ResolveTimeout <= 0 {
		return fmt.Errorf("invalid RESOLVE_TIMEOUT %v", c.ResolveTimeout)
	}

	return nil
}
