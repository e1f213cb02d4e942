package authcore

import (
	"context"

	"github.com/accountforge/authcore/internal/events"
)

// Event is a security or account lifecycle event emitted by the engine.
type Event = events.Event

// EventSink receives engine events. Implementations must be fast or
// buffer internally; the dispatcher already decouples them from the
// request path.
type EventSink = events.Sink

// NoOpSink drops all events.
type NoOpSink = events.NoOpSink

// Event types emitted by the engine.
const (
	EventSignInSuccess     = "signin.success"
	EventSignInFailure     = "signin.failure"
	EventSignUp            = "signup"
	EventWelcome           = "user.welcome"
	EventTokenRefreshed    = "token.refreshed"
	EventTokenTheft        = "token.theft_suspected"
	EventSignOut           = "signout"
	EventPasswordChanged   = "password.changed"
	EventTwoFactorEnabled  = "2fa.enabled"
	EventTwoFactorDisabled = "2fa.disabled"
	EventAPIKeyCreated     = "apikey.created"
)

// ChannelSink buffers events on a channel for test and pipeline
// consumers.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}
