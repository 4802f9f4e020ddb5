package discordtest

import (
	"sync"

	"github.com/foxseedlab/darkbot/internal/discord"
)

type Response struct {
	Kind      string
	Payload   discord.MessagePayload
	Ephemeral bool
	Modal     discord.Modal
}

// Responder records every answer given to an interaction.
type Responder struct {
	mu        sync.Mutex
	acked     bool
	Responses []Response
	Err       error
}

var _ discord.Responder = (*Responder)(nil)

func (r *Responder) record(resp Response, ack bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Responses = append(r.Responses, resp)
	if ack {
		r.acked = true
	}
	return nil
}

func (r *Responder) Reply(msg discord.MessagePayload, ephemeral bool) error {
	return r.record(Response{Kind: "reply", Payload: msg, Ephemeral: ephemeral}, true)
}

func (r *Responder) Defer(ephemeral bool) error {
	return r.record(Response{Kind: "defer", Ephemeral: ephemeral}, true)
}

func (r *Responder) DeferUpdate() error {
	return r.record(Response{Kind: "defer_update"}, true)
}

func (r *Responder) UpdateMessage(msg discord.MessagePayload) error {
	return r.record(Response{Kind: "update", Payload: msg}, true)
}

func (r *Responder) EditReply(msg discord.MessagePayload) error {
	return r.record(Response{Kind: "edit", Payload: msg}, false)
}

func (r *Responder) FollowUp(msg discord.MessagePayload, ephemeral bool) error {
	return r.record(Response{Kind: "followup", Payload: msg, Ephemeral: ephemeral}, false)
}

func (r *Responder) ShowModal(modal discord.Modal) error {
	return r.record(Response{Kind: "modal", Modal: modal}, true)
}

func (r *Responder) DeleteReply() error {
	return r.record(Response{Kind: "delete"}, false)
}

func (r *Responder) Acknowledged() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acked
}

// Last returns the most recent response, or a zero value.
func (r *Responder) Last() Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Responses) == 0 {
		return Response{}
	}
	return r.Responses[len(r.Responses)-1]
}

// LastText returns the content of the most recent response carrying text.
func (r *Responder) LastText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.Responses) - 1; i >= 0; i-- {
		if r.Responses[i].Payload.Content != "" {
			return r.Responses[i].Payload.Content
		}
	}
	return ""
}

func (r *Responder) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, 0, len(r.Responses))
	for _, resp := range r.Responses {
		kinds = append(kinds, resp.Kind)
	}
	return kinds
}
