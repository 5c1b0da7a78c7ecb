// Package platform defines the narrow capability interfaces the
// pipeline needs from the messaging platform, plus the error
// classification for transient send/edit failures. The Discord REST
// adapter in the discord subpackage implements them.
package platform

import (
	"context"
	"errors"
	"fmt"
)

// MessageRef is an opaque handle to one outbound message.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// Sink sends and mutates platform messages.
type Sink interface {
	Send(ctx context.Context, channelID, content string) (MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, content string) error
	Delete(ctx context.Context, ref MessageRef) error
}

// Registrar re-registers the bot's platform commands for a guild and
// reports how many were registered. Used by the admin re-sync command.
type Registrar interface {
	RegisterCommands(ctx context.Context, guildID string) (int, error)
}

// TransientError marks a send/edit failure caused by rate limits or
// network conditions. The pipeline responds with its fallback path
// instead of failing the turn.
type TransientError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: transient platform error (status %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: transient platform error: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a transient platform failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
