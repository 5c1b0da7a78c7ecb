package pipeline

import (
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/lousybook/lousybot-go/internal/commands"
	"github.com/lousybook/lousybot-go/internal/history"
	"github.com/lousybook/lousybot-go/internal/mention"
)

const dynamicInstruction = `--- Dynamic Response Control ---
If you determine that a response is not necessary or appropriate for the current message (e.g., it's casual chat not directed at you, or doesn't require an answer), your *entire* response should consist *only* of the special marker ` + "`///noresponse`" + `. Do NOT include any other text, formatting, or emojis if you use it. If you *do* want to respond, provide your response normally without including the marker at all.`

// buildMessages assembles the ordered prompt: an optional system block
// followed by every history entry mapped to a role-tagged message. User
// turns render as "{name}#{tag} ({id}) says: {content}" so the model
// sees readable identities.
func (w *Worker) buildMessages(entries []history.Entry, scope mention.Scope) []openai.ChatCompletionMessage {
	var msgs []openai.ChatCompletionMessage
	if w.instructions != "" {
		parts := []string{
			w.instructions,
			commands.Help(),
			mention.PingHelp(scope, w.admins),
			mention.UserList(scope, w.selfID),
		}
		if w.dynamic {
			parts = append(parts, dynamicInstruction)
		}
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: strings.Join(parts, "\n\n"),
		})
	}
	for _, e := range entries {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    e.Role,
			Content: promptContent(e),
		})
	}
	return msgs
}

func promptContent(e history.Entry) string {
	if e.Role != history.RoleUser {
		return e.Content
	}
	tag := e.Discriminator
	if tag == "" {
		tag = "????"
	}
	id := e.UserID
	if id == "" {
		id = "unknown"
	}
	return fmt.Sprintf("%s#%s (%s) says: %s", e.Name, tag, id, e.Content)
}
