package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/lousybook/lousybot-go/internal/history"
	"github.com/lousybook/lousybot-go/internal/mention"
)

type mockRegistrar struct {
	calls []string
	n     int
	err   error
}

func (m *mockRegistrar) RegisterCommands(_ context.Context, guildID string) (int, error) {
	m.calls = append(m.calls, guildID)
	return m.n, m.err
}

type mockCompleter struct {
	text string
	err  error
}

func (m *mockCompleter) CompleteSync(context.Context, []openai.ChatCompletionMessage) (string, error) {
	return m.text, m.err
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	store, err := history.NewStore(t.TempDir())
	require.NoError(t, err)
	return &Handler{
		Store:  store,
		Admins: mention.AdminList{Entries: []string{"Ann#1234"}},
	}
}

func TestResetReportsCount(t *testing.T) {
	h := newTestHandler(t)
	require.NoError(t, h.Store.Save("a", []history.Entry{history.AssistantTurn("x")}))
	require.NoError(t, h.Store.Save("b", []history.Entry{history.AssistantTurn("y")}))

	reply := h.Reset(context.Background())
	require.Equal(t, "🧹 All history and cache cleared (2 files removed)!", reply)
	require.Nil(t, h.Store.Load("a"))
}

func TestResetEmptyStore(t *testing.T) {
	h := newTestHandler(t)
	reply := h.Reset(context.Background())
	require.Equal(t, "🧹 All history and cache cleared (0 files removed)!", reply)
}

func TestSyncDeniedForNonAdmin(t *testing.T) {
	h := newTestHandler(t)
	reg := &mockRegistrar{n: 3}
	h.Registrar = reg
	h.GuildIDs = []string{"g1"}

	reply := h.Sync(context.Background(), mention.Member{Name: "eve", Discriminator: "1", ID: "000000000000000001"})
	require.Equal(t, ":no_entry_sign: You don't have permission to sync commands!", reply)
	require.Empty(t, reg.calls)
}

func TestSyncRunsForAdmin(t *testing.T) {
	h := newTestHandler(t)
	reg := &mockRegistrar{n: 2}
	h.Registrar = reg
	h.GuildIDs = []string{"g1", "g2"}

	reply := h.Sync(context.Background(), mention.Member{Name: "Ann", Discriminator: "1234", ID: "000000000000000002"})
	require.Equal(t, ":white_check_mark: Synced 4 commands to 2 guild(s)!", reply)
	require.Equal(t, []string{"g1", "g2"}, reg.calls)
}

func TestSyncSurfacesFailure(t *testing.T) {
	h := newTestHandler(t)
	h.Registrar = &mockRegistrar{err: errors.New("unauthorized")}
	h.GuildIDs = []string{"g1"}

	reply := h.Sync(context.Background(), mention.Member{Name: "Ann", Discriminator: "1234"})
	require.Contains(t, reply, "Sync failed")
}

func TestJoke(t *testing.T) {
	h := newTestHandler(t)
	h.Completer = &mockCompleter{text: "A pun."}
	require.Equal(t, "A pun.", h.Joke(context.Background(), ""))
}

func TestJokeFallbackOnError(t *testing.T) {
	h := newTestHandler(t)
	h.Completer = &mockCompleter{err: errors.New("down")}
	require.Equal(t, "😅 I couldn't come up with a joke right now!", h.Joke(context.Background(), "cats"))
}

func TestJokeFallbackOnEmpty(t *testing.T) {
	h := newTestHandler(t)
	h.Completer = &mockCompleter{text: "   "}
	require.Equal(t, "😅 I couldn't come up with a joke right now!", h.Joke(context.Background(), ""))
}

func TestHelpListsCommands(t *testing.T) {
	help := Help()
	require.Contains(t, help, ResetCommand)
	require.Contains(t, help, JokeCommand)
}
