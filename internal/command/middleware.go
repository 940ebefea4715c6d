package command

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"yt-play/internal/i18n"
	"yt-play/pkg/cmd"
)

// PanicError is returned by WithRecover when a command panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("command panicked: %v", e.Value)
}

// WithGuildOnly answers outside of guilds with a localized rejection and does
// not run the command.
func WithGuildOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			if slash, ok := inv.Data.(*SlashContext); ok && slash.GuildID == "" {
				return Finalize(slash.Responder, slash.T.T(i18n.MsgGuildOnly))
			}
			return c.Run(ctx, inv)
		})
	}
}

// WithCommandLogger logs every execution with its outcome and duration.
func WithCommandLogger(log zerolog.Logger) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := c.Run(ctx, inv)

			event := log.Info()
			if err != nil {
				event = log.Error().Err(err)
			}
			event = event.Str("command", c.Name()).Dur("took", time.Since(start))
			if slash, ok := inv.Data.(*SlashContext); ok {
				event = event.
					Str("guild", slash.GuildID).
					Str("channel", slash.ChannelID).
					Str("user", slash.UserID).
					Str("username", slash.Username).
					Str("lang", slash.T.Language())
			}
			event.Msg("Command executed")

			return err
		})
	}
}

// WithRecover turns a panic into a *PanicError.
func WithRecover() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &PanicError{Value: r, Stack: debug.Stack()}
				}
			}()
			return c.Run(ctx, inv)
		})
	}
}
