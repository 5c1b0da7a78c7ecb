// Package commands implements the operator-facing chat commands: the
// history reset, the admin-gated command re-sync, and the joke.
package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/lousybook/lousybot-go/internal/history"
	"github.com/lousybook/lousybot-go/internal/logger"
	"github.com/lousybook/lousybot-go/internal/mention"
	"github.com/lousybook/lousybot-go/internal/platform"
)

// Command prefixes recognized by the ingestion boundary.
const (
	ResetCommand = "!clearcontext"
	SyncCommand  = "!sync"
	JokeCommand  = "!joke"
)

// Completer is the slice of the completion gateway the joke command
// needs.
type Completer interface {
	CompleteSync(ctx context.Context, msgs []openai.ChatCompletionMessage) (string, error)
}

// Handler executes commands and returns the reply text to send.
type Handler struct {
	Store     *history.Store
	Admins    mention.AdminList
	Registrar platform.Registrar
	GuildIDs  []string
	Completer Completer
}

// Help is the command list block injected into the system prompt.
func Help() string {
	return strings.Join([]string{
		"Available Bot Commands:",
		"• " + ResetCommand + " — Clear all context, cache, and bot memory for privacy or a fresh start.",
		"• " + JokeCommand + " — Tells you a joke!",
		"You can use these commands anytime for special actions.",
	}, "\n")
}

// Reset deletes every persisted conversation log and reports the count.
// Zero files is still a success.
func (h *Handler) Reset(ctx context.Context) string {
	removed, err := h.Store.ClearAll()
	if err != nil {
		logger.L.Error("history reset failed", "error", err)
		return "⚠️ Could not clear all history, see logs."
	}
	return fmt.Sprintf("🧹 All history and cache cleared (%d files removed)!", removed)
}

// Sync re-registers the bot's platform commands. Only allow-listed
// operators may run it; everyone else gets an explicit denial and
// nothing executes.
func (h *Handler) Sync(ctx context.Context, author mention.Member) string {
	if !h.Admins.Allows(author) {
		return ":no_entry_sign: You don't have permission to sync commands!"
	}
	total := 0
	for _, guildID := range h.GuildIDs {
		n, err := h.Registrar.RegisterCommands(ctx, guildID)
		if err != nil {
			logger.L.Error("command sync failed", "guild", guildID, "error", err)
			return fmt.Sprintf(":x: Sync failed: %v", err)
		}
		total += n
	}
	return fmt.Sprintf(":white_check_mark: Synced %d commands to %d guild(s)!", total, len(h.GuildIDs))
}

// Joke asks the model for a short joke, with a fixed fallback when the
// model is unavailable.
func (h *Handler) Joke(ctx context.Context, about string) string {
	const fallback = "😅 I couldn't come up with a joke right now!"
	prompt := "Tell me a joke"
	if about != "" {
		prompt = "Tell me a joke about " + about
	}
	text, err := h.Completer.CompleteSync(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: "You are a funny AI assistant. Tell a short, clean joke."},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	})
	if err != nil {
		logger.L.Warn("joke generation failed", "error", err)
		return fallback
	}
	if strings.TrimSpace(text) == "" {
		return fallback
	}
	return text
}
