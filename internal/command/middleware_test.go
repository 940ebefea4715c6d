package command

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yt-play/internal/command/commandtest"
	"yt-play/internal/i18n"
	"yt-play/pkg/cmd"
)

type stubCommand struct {
	run   func() error
	calls int
}

func (s *stubCommand) Name() string        { return "play" }
func (s *stubCommand) Description() string { return "stub" }

func (s *stubCommand) Run(context.Context, *cmd.Invocation) error {
	s.calls++
	if s.run != nil {
		return s.run()
	}
	return nil
}

func slash(guildID string) (*SlashContext, *commandtest.Responder) {
	r := &commandtest.Responder{}
	return &SlashContext{Responder: r, GuildID: guildID, UserID: "u1", T: i18n.New("es")}, r
}

func TestWithGuildOnly(t *testing.T) {
	inner := &stubCommand{}
	c := cmd.Apply(inner, WithGuildOnly())

	ctx, r := slash("")
	require.NoError(t, c.Run(context.Background(), &cmd.Invocation{Data: ctx}))
	assert.Zero(t, inner.calls)
	require.Len(t, r.Visible(), 1)
	assert.Equal(t, "❌ Este comando solo funciona dentro de un servidor.", r.Visible()[0].Content)

	ctx, r = slash("g1")
	require.NoError(t, c.Run(context.Background(), &cmd.Invocation{Data: ctx}))
	assert.Equal(t, 1, inner.calls)
	assert.Empty(t, r.Sent())
}

func TestWithRecover(t *testing.T) {
	c := cmd.Apply(&stubCommand{run: func() error { panic("boom") }}, WithRecover())

	ctx, _ := slash("g1")
	var err error
	assert.NotPanics(t, func() { err = c.Run(context.Background(), &cmd.Invocation{Data: ctx}) })

	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "boom", pe.Value)
	assert.NotEmpty(t, pe.Stack)
}

func TestWithCommandLoggerPassesErrorThrough(t *testing.T) {
	want := errors.New("failed")
	c := cmd.Apply(&stubCommand{run: func() error { return want }}, WithCommandLogger(zerolog.New(zerolog.NewTestWriter(t))))

	ctx, _ := slash("g1")
	assert.ErrorIs(t, c.Run(context.Background(), &cmd.Invocation{Data: ctx}), want)
}

func TestWithCommandLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	c := cmd.Apply(&stubCommand{}, WithCommandLogger(zerolog.New(&buf)))

	ctx, _ := slash("g1")
	require.NoError(t, c.Run(context.Background(), &cmd.Invocation{Data: ctx}))

	line := buf.String()
	assert.Contains(t, line, `"command":"play"`)
	assert.Contains(t, line, `"guild":"g1"`)
	assert.Contains(t, line, `"lang":"es"`)
	assert.Contains(t, line, `"message":"Command executed"`)
}

func TestFinalize(t *testing.T) {
	fresh := &commandtest.Responder{}
	require.NoError(t, Finalize(fresh, "hola"))
	assert.Equal(t, []commandtest.Sent{{Kind: "reply", Content: "hola"}}, fresh.Sent())

	deferred := &commandtest.Responder{}
	require.NoError(t, deferred.Defer())
	require.NoError(t, Finalize(deferred, "hola"))
	assert.Equal(t, []commandtest.Sent{{Kind: "defer"}, {Kind: "edit", Content: "hola"}}, deferred.Sent())
}
