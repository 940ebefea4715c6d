// Package cmd provides a transport-agnostic command core: a command has a
// name, a description and Run(ctx, invocation). Registration and dispatch
// live in adapters such as internal/discord.
package cmd

import "context"

// Invocation carries what a runner passes to a command: named options and an
// opaque payload. The Discord adapter sets Data to a *command.SlashContext.
type Invocation struct {
	Options map[string]string
	Data    any
}

// Option returns the named option, or "" when it was not given.
func (inv *Invocation) Option(name string) string {
	if inv == nil || inv.Options == nil {
		return ""
	}
	return inv.Options[name]
}

// Command is identity plus execution.
type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}
