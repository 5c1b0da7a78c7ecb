package history

// Entry roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Entry is one turn of a conversation. User turns carry the author
// identity; assistant turns carry only content.
type Entry struct {
	Role          string `json:"role"`
	Name          string `json:"name,omitempty"`
	Discriminator string `json:"discriminator,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	Content       string `json:"content"`
}

// UserTurn builds a user entry.
func UserTurn(name, discriminator, userID, content string) Entry {
	return Entry{
		Role:          RoleUser,
		Name:          name,
		Discriminator: discriminator,
		UserID:        userID,
		Content:       content,
	}
}

// AssistantTurn builds an assistant entry.
func AssistantTurn(content string) Entry {
	return Entry{Role: RoleAssistant, Content: content}
}
