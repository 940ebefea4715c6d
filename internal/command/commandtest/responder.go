// Package commandtest provides a recording Responder for command tests.
package commandtest

import (
	"errors"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Sent is one call made on the Responder.
type Sent struct {
	Kind    string // "defer", "reply", "edit" or "embed"
	Content string
	Embed   *discordgo.MessageEmbed
}

// Responder records everything sent and follows the Discord rules: a second
// initial response fails, and so does editing before anything was sent.
type Responder struct {
	DeferErr error
	EmbedErr error

	mu       sync.Mutex
	sent     []Sent
	deferred bool
	replied  bool
}

func (r *Responder) Defer() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.DeferErr != nil {
		return r.DeferErr
	}
	if r.deferred || r.replied {
		return errors.New("interaction already acknowledged")
	}
	r.deferred = true
	r.sent = append(r.sent, Sent{Kind: "defer"})
	return nil
}

func (r *Responder) Reply(content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deferred || r.replied {
		return errors.New("interaction already acknowledged")
	}
	r.replied = true
	r.sent = append(r.sent, Sent{Kind: "reply", Content: content})
	return nil
}

func (r *Responder) Edit(content string) error {
	return r.edit(Sent{Kind: "edit", Content: content})
}

func (r *Responder) EditEmbed(embed *discordgo.MessageEmbed) error {
	if r.EmbedErr != nil {
		return r.EmbedErr
	}
	return r.edit(Sent{Kind: "embed", Embed: embed})
}

func (r *Responder) edit(s Sent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.deferred && !r.replied {
		return errors.New("unknown interaction response")
	}
	r.replied = true
	r.sent = append(r.sent, s)
	return nil
}

func (r *Responder) Deferred() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deferred
}

func (r *Responder) Replied() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replied
}

// Sent returns every call in order.
func (r *Responder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// Visible returns the calls a user can see, i.e. everything but the defer.
func (r *Responder) Visible() []Sent {
	var out []Sent
	for _, s := range r.Sent() {
		if s.Kind != "defer" {
			out = append(out, s)
		}
	}
	return out
}
