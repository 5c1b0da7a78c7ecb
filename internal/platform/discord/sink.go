package discord

import (
	"context"

	"github.com/lousybook/lousybot-go/internal/platform"
)

// MessageSink adapts the REST client to platform.Sink.
type MessageSink struct {
	client *Client
}

// NewMessageSink wraps the client as a message sink.
func NewMessageSink(client *Client) *MessageSink {
	return &MessageSink{client: client}
}

func (s *MessageSink) Send(ctx context.Context, channelID, content string) (platform.MessageRef, error) {
	msg, err := s.client.CreateMessage(ctx, channelID, content)
	if err != nil {
		return platform.MessageRef{}, err
	}
	return platform.MessageRef{ChannelID: msg.ChannelID, MessageID: msg.ID}, nil
}

func (s *MessageSink) Edit(ctx context.Context, ref platform.MessageRef, content string) error {
	return s.client.EditMessage(ctx, ref.ChannelID, ref.MessageID, content)
}

func (s *MessageSink) Delete(ctx context.Context, ref platform.MessageRef) error {
	return s.client.DeleteMessage(ctx, ref.ChannelID, ref.MessageID)
}

// CommandRegistrar re-registers the bot's application commands through
// the REST API.
type CommandRegistrar struct {
	client *Client
	appID  string
	cmds   []Command
}

// NewCommandRegistrar builds a registrar for the given application id.
func NewCommandRegistrar(client *Client, appID string) *CommandRegistrar {
	return &CommandRegistrar{
		client: client,
		appID:  appID,
		cmds: []Command{
			{Name: "clearcontext", Description: "Clear all context, cache, and bot memory"},
			{Name: "joke", Description: "Tell a random joke"},
		},
	}
}

func (r *CommandRegistrar) RegisterCommands(ctx context.Context, guildID string) (int, error) {
	return r.client.OverwriteGuildCommands(ctx, r.appID, guildID, r.cmds)
}
