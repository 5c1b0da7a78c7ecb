// Package bot is the ingestion boundary: it polls Discord channels,
// filters and routes inbound messages, and enqueues conversational
// events for the pipeline worker. Polling never blocks on processing.
package bot

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/lousybook/lousybot-go/internal/commands"
	"github.com/lousybook/lousybot-go/internal/config"
	"github.com/lousybook/lousybot-go/internal/logger"
	"github.com/lousybook/lousybot-go/internal/mention"
	"github.com/lousybook/lousybot-go/internal/pipeline"
	"github.com/lousybook/lousybot-go/internal/platform"
	"github.com/lousybook/lousybot-go/internal/platform/discord"
)

const pollBatchLimit = 100

var welcomeFallbacks = []string{
	"🤖 Beep boop! Systems nominal and ready for your commands!",
	"✨ Back in action! What can I help you with today?",
	"🚀 Online and operational! Let's chat!",
	"👋 Hello world! Ready to assist!",
	"💡 Lights on! Ask me anything!",
}

const welcomePrompt = "You are an AI assistant. Generate a friendly, energetic message to announce you are back online and ready to chat. Be creative and welcoming!"

// Bot polls channels and feeds the pipeline queue.
type Bot struct {
	cfg    *config.Config
	client *discord.Client
	sink   platform.Sink
	queue  *pipeline.Queue
	cmds   *commands.Handler

	self     discord.User
	guildIDs []string
	// channel id -> owning guild's roster; nil for channels without one.
	scopes map[string]*discord.Roster
	// channel id -> last processed message id.
	cursor map[string]string
	// channel id -> slowmode delay in seconds; zero when off.
	slowmode map[string]int
	channels []string
}

// New builds an unstarted bot.
func New(cfg *config.Config, client *discord.Client, sink platform.Sink, queue *pipeline.Queue, cmds *commands.Handler) *Bot {
	return &Bot{
		cfg:      cfg,
		client:   client,
		sink:     sink,
		queue:    queue,
		cmds:     cmds,
		scopes:   make(map[string]*discord.Roster),
		cursor:   make(map[string]string),
		slowmode: make(map[string]int),
	}
}

// Start identifies the bot, discovers the channels to watch, loads the
// guild rosters and positions the poll cursors at the current head so
// backlog messages are never replayed.
func (b *Bot) Start(ctx context.Context) error {
	self, err := b.client.Me(ctx)
	if err != nil {
		return fmt.Errorf("identify bot user: %w", err)
	}
	b.self = self
	logger.L.Info("logged in", "user", self.Username, "id", self.ID)

	if err := b.discoverChannels(ctx); err != nil {
		return err
	}
	if len(b.channels) == 0 {
		return fmt.Errorf("no channels to watch; set discord.channels or guild scoping")
	}
	b.cmds.GuildIDs = b.guildIDs

	for _, channelID := range b.channels {
		msgs, err := b.client.ChannelMessages(ctx, channelID, "", 1)
		if err != nil {
			logger.L.Warn("could not read channel head", "channel", channelID, "error", err)
			continue
		}
		if len(msgs) > 0 {
			b.cursor[channelID] = msgs[len(msgs)-1].ID
		}
	}

	if b.cfg.Discord.WelcomeMsg {
		b.sendWelcome(ctx)
	}
	return nil
}

// SelfID returns the bot's own user id, valid after Start.
func (b *Bot) SelfID() string { return b.self.ID }

// discoverChannels resolves the watch list: explicitly configured
// channel ids win, otherwise every text channel of the allowed guilds.
func (b *Bot) discoverChannels(ctx context.Context) error {
	guilds, err := b.client.Guilds(ctx)
	if err != nil {
		return fmt.Errorf("list guilds: %w", err)
	}

	allowed := make([]discord.Guild, 0, len(guilds))
	for _, g := range guilds {
		if b.guildAllowed(g) {
			allowed = append(allowed, g)
			b.guildIDs = append(b.guildIDs, g.ID)
		}
	}

	rosterByGuild := make(map[string]*discord.Roster, len(allowed))
	for _, g := range allowed {
		roster, err := discord.LoadRoster(ctx, b.client, g.ID)
		if err != nil {
			logger.L.Warn("roster load failed", "guild", g.ID, "error", err)
			continue
		}
		rosterByGuild[g.ID] = roster
	}

	if explicit := b.cfg.Discord.Channels; len(explicit) > 0 {
		for _, channelID := range explicit {
			ch, err := b.client.Channel(ctx, channelID)
			if err != nil {
				logger.L.Warn("configured channel unavailable", "channel", channelID, "error", err)
				continue
			}
			b.channels = append(b.channels, ch.ID)
			b.scopes[ch.ID] = rosterByGuild[ch.GuildID]
			b.trackSlowmode(ch)
		}
		return nil
	}

	for _, g := range allowed {
		chs, err := b.client.GuildChannels(ctx, g.ID)
		if err != nil {
			logger.L.Warn("channel discovery failed", "guild", g.ID, "error", err)
			continue
		}
		for _, ch := range chs {
			if ch.Type != discord.ChannelTypeGuildText {
				continue
			}
			b.channels = append(b.channels, ch.ID)
			b.scopes[ch.ID] = rosterByGuild[g.ID]
			b.trackSlowmode(ch)
		}
	}
	return nil
}

// guildAllowed applies the guild scoping config. With no scoping set,
// every guild is watched.
func (b *Bot) guildAllowed(g discord.Guild) bool {
	if b.cfg.Discord.UseGuildID {
		if len(b.cfg.Discord.GuildIDs) == 0 {
			return true
		}
		for _, id := range b.cfg.Discord.GuildIDs {
			if id == g.ID {
				return true
			}
		}
		return false
	}
	if len(b.cfg.Discord.GuildNames) == 0 {
		return true
	}
	for _, name := range b.cfg.Discord.GuildNames {
		if strings.EqualFold(name, g.Name) {
			return true
		}
	}
	return false
}

func (b *Bot) trackSlowmode(ch discord.Channel) {
	b.slowmode[ch.ID] = ch.RateLimitPerUser
	if ch.RateLimitPerUser > 0 {
		logger.L.Warn("channel has slowmode enabled",
			"channel", ch.ID, "delay_seconds", ch.RateLimitPerUser)
	}
}

// sendWelcome announces the bot is back online in the first watched
// channel. The announcement is model-generated; a rotating static line
// covers model failures.
func (b *Bot) sendWelcome(ctx context.Context) {
	content := welcomeFallbacks[rand.Intn(len(welcomeFallbacks))]
	if b.cmds != nil && b.cmds.Completer != nil {
		generated, err := b.cmds.Completer.CompleteSync(ctx, []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: welcomePrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Announce that the AI is back online."},
		})
		if err != nil {
			logger.L.Warn("could not generate online message, using fallback", "error", err)
		} else if strings.TrimSpace(generated) != "" {
			content = generated
		}
	}
	channelID := b.channels[0]
	if _, err := b.sink.Send(ctx, channelID, content); err != nil {
		logger.L.Warn("welcome message failed", "channel", channelID, "error", err)
	}
}

// Run polls every watched channel at the configured interval until the
// context is canceled.
func (b *Bot) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.cfg.Discord.PollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, channelID := range b.channels {
				b.pollChannel(ctx, channelID)
			}
		}
	}
}

func (b *Bot) pollChannel(ctx context.Context, channelID string) {
	msgs, err := b.client.ChannelMessages(ctx, channelID, b.cursor[channelID], pollBatchLimit)
	if err != nil {
		logger.L.Warn("poll failed", "channel", channelID, "error", err)
		return
	}
	for _, msg := range msgs {
		b.cursor[channelID] = msg.ID
		b.handleMessage(ctx, msg)
	}
}

// handleMessage filters one inbound message, serves commands inline and
// enqueues everything else for the pipeline. It never blocks.
func (b *Bot) handleMessage(ctx context.Context, msg discord.Message) {
	if msg.Author.ID == b.self.ID || msg.Author.Bot || msg.WebhookID != "" {
		return
	}
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return
	}
	if delay := b.slowmode[msg.ChannelID]; delay > 0 {
		logger.L.Info("slowmode active, skipping message", "channel", msg.ChannelID, "delay_seconds", delay)
		notice := fmt.Sprintf("⏳ Please wait %d seconds between messages (slowmode active)", delay)
		if _, err := b.sink.Send(ctx, msg.ChannelID, notice); err != nil {
			logger.L.Warn("slowmode notice failed", "channel", msg.ChannelID, "error", err)
		}
		return
	}
	scope := b.scope(msg.ChannelID)

	if reply, handled := b.routeCommand(ctx, msg, content); handled {
		if reply != "" {
			if _, err := b.sink.Send(ctx, msg.ChannelID, reply); err != nil {
				logger.L.Error("command reply failed", "channel", msg.ChannelID, "error", err)
			}
		}
		return
	}

	content = mention.Humanize(content, scope)
	ev := pipeline.NewEvent(msg.ChannelID, msg.Author.Username, msg.Author.Discriminator, msg.Author.ID, content, scope)
	b.queue.Enqueue(ev)
	logger.L.Debug("event enqueued", "id", ev.ID, "channel", msg.ChannelID, "author", msg.Author.Username)
}

func (b *Bot) routeCommand(ctx context.Context, msg discord.Message, content string) (string, bool) {
	word, rest, _ := strings.Cut(content, " ")
	switch strings.ToLower(word) {
	case commands.ResetCommand:
		return b.cmds.Reset(ctx), true
	case commands.SyncCommand:
		author := mention.Member{
			Name:          msg.Author.Username,
			Discriminator: msg.Author.Discriminator,
			ID:            msg.Author.ID,
		}
		return b.cmds.Sync(ctx, author), true
	case commands.JokeCommand:
		return b.cmds.Joke(ctx, strings.TrimSpace(rest)), true
	}
	return "", false
}

// scope returns the mention scope for a channel. The method exists so a
// nil roster pointer converts to a nil interface.
func (b *Bot) scope(channelID string) mention.Scope {
	if roster := b.scopes[channelID]; roster != nil {
		return roster
	}
	return nil
}
