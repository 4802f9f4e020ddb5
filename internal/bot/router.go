package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/foxseedlab/darkbot/internal/discord"
)

const msgInteractionFailed = "There was an error while executing this interaction!"

type HandlerFunc func(ctx context.Context, in discord.Interaction) error

type prefixRoute struct {
	prefix  string
	handler HandlerFunc
}

// Router maps interactions and gateway events to feature handlers.
// Prefix routes are tried in registration order; the first match wins.
type Router struct {
	mu         sync.RWMutex
	commands   map[string]HandlerFunc
	components []prefixRoute
	modals     []prefixRoute
	messages   []func(context.Context, discord.MessageEvent)
	voice      []func(discord.VoiceStateEvent)
}

func NewRouter() *Router {
	return &Router{commands: make(map[string]HandlerFunc)}
}

func (r *Router) Command(name string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = h
}

func (r *Router) Component(prefix string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components = append(r.components, prefixRoute{prefix: prefix, handler: h})
}

func (r *Router) Modal(prefix string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modals = append(r.modals, prefixRoute{prefix: prefix, handler: h})
}

func (r *Router) OnMessage(h func(context.Context, discord.MessageEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, h)
}

func (r *Router) OnVoiceState(h func(discord.VoiceStateEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.voice = append(r.voice, h)
}

func (r *Router) lookup(in discord.Interaction) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var routes []prefixRoute
	switch in.Kind {
	case discord.InteractionCommand:
		h, ok := r.commands[in.CommandName]
		return h, ok
	case discord.InteractionComponent:
		routes = r.components
	case discord.InteractionModalSubmit:
		routes = r.modals
	}
	for _, route := range routes {
		if strings.HasPrefix(in.CustomID, route.prefix) {
			return route.handler, true
		}
	}
	return nil, false
}

// Dispatch runs the matching handler. Handler errors and panics are logged
// and answered with a generic ephemeral failure message.
func (r *Router) Dispatch(ctx context.Context, in discord.Interaction) {
	h, ok := r.lookup(in)
	if !ok {
		slog.Warn("no handler for interaction", interactionAttrs(in)...)
		return
	}

	if err := invoke(ctx, h, in); err != nil {
		slog.Error("interaction handler failed", append(interactionAttrs(in), "error", err)...)
		notifyFailure(in)
	}
}

func invoke(ctx context.Context, h HandlerFunc, in discord.Interaction) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("interaction handler panicked", "panic", rec, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return h(ctx, in)
}

func notifyFailure(in discord.Interaction) {
	if in.Responder == nil {
		return
	}
	msg := discord.Text(msgInteractionFailed)
	var err error
	if in.Responder.Acknowledged() {
		err = in.Responder.FollowUp(msg, true)
	} else {
		err = in.Responder.Reply(msg, true)
	}
	if err != nil {
		slog.Warn("failed to send interaction failure notice", append(interactionAttrs(in), "error", err)...)
	}
}

func (r *Router) DispatchMessage(ctx context.Context, ev discord.MessageEvent) {
	r.mu.RLock()
	handlers := r.messages
	r.mu.RUnlock()

	for _, h := range handlers {
		safely("message", func() { h(ctx, ev) })
	}
}

func (r *Router) DispatchVoiceState(ev discord.VoiceStateEvent) {
	r.mu.RLock()
	handlers := r.voice
	r.mu.RUnlock()

	for _, h := range handlers {
		safely("voice_state", func() { h(ev) })
	}
}

func safely(event string, f func()) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("event handler panicked", "event", event, "panic", rec, "stack", string(debug.Stack()))
		}
	}()
	f()
}

func interactionAttrs(in discord.Interaction) []any {
	attrs := []any{"kind", in.Kind.String(), "guild_id", in.GuildID, "user_id", in.User.ID}
	if in.Kind == discord.InteractionCommand {
		return append(attrs, "command", in.CommandName)
	}
	return append(attrs, "custom_id", in.CustomID)
}
