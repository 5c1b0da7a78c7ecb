// Package discord is a minimal Discord REST adapter: message send/edit/
// delete, channel polling, guild roster fetch and command registration.
// It implements the capability interfaces in the platform package.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lousybook/lousybot-go/internal/platform"
)

// DefaultAPIBase is the Discord REST API root.
const DefaultAPIBase = "https://discord.com/api/v10"

// Client is a minimal Discord REST API client.
type Client struct {
	apiBase    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client authenticated with the given bot token.
func NewClient(apiBase, token string, requestTimeout time.Duration) *Client {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Client{
		apiBase: apiBase,
		token:   token,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// User is a Discord user.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Bot           bool   `json:"bot"`
}

// Message is a Discord channel message.
type Message struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
	Author    User   `json:"author"`
	WebhookID string `json:"webhook_id"`
}

// Guild is a Discord guild (server).
type Guild struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Channel is a Discord channel. RateLimitPerUser is the slowmode delay
// in seconds, zero when off.
type Channel struct {
	ID               string `json:"id"`
	GuildID          string `json:"guild_id"`
	Name             string `json:"name"`
	Type             int    `json:"type"`
	RateLimitPerUser int    `json:"rate_limit_per_user"`
}

// ChannelTypeGuildText is the guild text channel type.
const ChannelTypeGuildText = 0

// Member is a guild member.
type Member struct {
	User User   `json:"user"`
	Nick string `json:"nick"`
}

// Role is a guild role.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Command is an application command definition.
type Command struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// do executes one REST call. Rate limits, server errors and network
// failures classify as platform.TransientError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, reader)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &platform.TransientError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &platform.TransientError{Op: method + " " + path, Err: err}
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &platform.TransientError{
			Op:     method + " " + path,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", string(data)),
		}
	default:
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(data))
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%s %s: decode response: %w", method, path, err)
		}
	}
	return nil
}

// Me returns the bot's own user.
func (c *Client) Me(ctx context.Context) (User, error) {
	var u User
	err := c.do(ctx, http.MethodGet, "/users/@me", nil, &u)
	return u, err
}

// Guilds lists the guilds the bot is in.
func (c *Client) Guilds(ctx context.Context) ([]Guild, error) {
	var gs []Guild
	err := c.do(ctx, http.MethodGet, "/users/@me/guilds", nil, &gs)
	return gs, err
}

// GuildChannels lists a guild's channels.
func (c *Client) GuildChannels(ctx context.Context, guildID string) ([]Channel, error) {
	var chs []Channel
	err := c.do(ctx, http.MethodGet, "/guilds/"+guildID+"/channels", nil, &chs)
	return chs, err
}

// Channel fetches one channel.
func (c *Client) Channel(ctx context.Context, channelID string) (Channel, error) {
	var ch Channel
	err := c.do(ctx, http.MethodGet, "/channels/"+channelID, nil, &ch)
	return ch, err
}

// ChannelMessages returns messages after the given id in chronological
// order. An empty afterID returns the most recent messages.
func (c *Client) ChannelMessages(ctx context.Context, channelID, afterID string, limit int) ([]Message, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if afterID != "" {
		params.Set("after", afterID)
	}
	var msgs []Message
	if err := c.do(ctx, http.MethodGet, "/channels/"+channelID+"/messages?"+params.Encode(), nil, &msgs); err != nil {
		return nil, err
	}
	// The API returns newest first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// CreateMessage sends a message to a channel.
func (c *Client) CreateMessage(ctx context.Context, channelID, content string) (Message, error) {
	var msg Message
	err := c.do(ctx, http.MethodPost, "/channels/"+channelID+"/messages", map[string]string{"content": content}, &msg)
	return msg, err
}

// EditMessage replaces a message's content.
func (c *Client) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	return c.do(ctx, http.MethodPatch, "/channels/"+channelID+"/messages/"+messageID, map[string]string{"content": content}, nil)
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return c.do(ctx, http.MethodDelete, "/channels/"+channelID+"/messages/"+messageID, nil, nil)
}

// GuildMembers lists up to limit guild members.
func (c *Client) GuildMembers(ctx context.Context, guildID string, limit int) ([]Member, error) {
	var ms []Member
	err := c.do(ctx, http.MethodGet, "/guilds/"+guildID+"/members?limit="+strconv.Itoa(limit), nil, &ms)
	return ms, err
}

// GuildRoles lists a guild's roles.
func (c *Client) GuildRoles(ctx context.Context, guildID string) ([]Role, error) {
	var rs []Role
	err := c.do(ctx, http.MethodGet, "/guilds/"+guildID+"/roles", nil, &rs)
	return rs, err
}

// OverwriteGuildCommands replaces the guild's application commands and
// returns how many are registered afterwards.
func (c *Client) OverwriteGuildCommands(ctx context.Context, appID, guildID string, cmds []Command) (int, error) {
	var out []Command
	err := c.do(ctx, http.MethodPut, "/applications/"+appID+"/guilds/"+guildID+"/commands", cmds, &out)
	if err != nil {
		return 0, err
	}
	return len(out), nil
}
