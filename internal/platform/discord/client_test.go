package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lousybook/lousybot-go/internal/platform"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-token", 5*time.Second)
}

func TestClientAuthHeader(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(User{ID: "1", Username: "bot"})
	})

	u, err := c.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bot test-token", gotAuth)
	require.Equal(t, "bot", u.Username)
}

func TestChannelMessagesReversesOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "5", r.URL.Query().Get("after"))
		// Discord returns newest first.
		json.NewEncoder(w).Encode([]Message{{ID: "8"}, {ID: "7"}, {ID: "6"}})
	})

	msgs, err := c.ChannelMessages(context.Background(), "chan", "5", 100)
	require.NoError(t, err)
	require.Equal(t, "6", msgs[0].ID)
	require.Equal(t, "8", msgs[2].ID)
}

func TestCreateMessageSendsJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "hello", body["content"])
		json.NewEncoder(w).Encode(Message{ID: "42", ChannelID: "chan"})
	})

	msg, err := c.CreateMessage(context.Background(), "chan", "hello")
	require.NoError(t, err)
	require.Equal(t, "42", msg.ID)
}

func TestRateLimitIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.CreateMessage(context.Background(), "chan", "x")
	require.Error(t, err)
	require.True(t, platform.IsTransient(err))
}

func TestServerErrorIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := c.EditMessage(context.Background(), "chan", "1", "x")
	require.True(t, platform.IsTransient(err))
}

func TestClientErrorIsNotTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	err := c.DeleteMessage(context.Background(), "chan", "1")
	require.Error(t, err)
	require.False(t, platform.IsTransient(err))
}

func TestNetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(srv.URL, "t", time.Second)

	_, err := c.Me(context.Background())
	require.True(t, platform.IsTransient(err))
}

func TestOverwriteGuildCommandsCounts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/applications/app/guilds/g/commands", r.URL.Path)
		json.NewEncoder(w).Encode([]Command{{Name: "joke"}, {Name: "other"}})
	})

	n, err := c.OverwriteGuildCommands(context.Background(), "app", "g", []Command{{Name: "joke"}})
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestCommandRegistrarRegistersCommandSet(t *testing.T) {
	var got []Command
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(got)
	})

	reg := NewCommandRegistrar(c, "app")
	n, err := reg.RegisterCommands(context.Background(), "g")
	require.NoError(t, err)
	require.Equal(t, 2, n)
	names := make([]string, len(got))
	for i, cmd := range got {
		names[i] = cmd.Name
	}
	require.ElementsMatch(t, []string{"clearcontext", "joke"}, names)
}

func TestMessageSink(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			json.NewEncoder(w).Encode(Message{ID: "9", ChannelID: "chan"})
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	sink := NewMessageSink(c)

	ref, err := sink.Send(context.Background(), "chan", "hi")
	require.NoError(t, err)
	require.Equal(t, platform.MessageRef{ChannelID: "chan", MessageID: "9"}, ref)
	require.NoError(t, sink.Edit(context.Background(), ref, "hi!"))
	require.NoError(t, sink.Delete(context.Background(), ref))
}

func TestRosterLookups(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/guilds/g/members":
			json.NewEncoder(w).Encode([]Member{
				{User: User{ID: "555666777888999000", Username: "Ann", Discriminator: "1234"}},
			})
		case "/guilds/g/roles":
			json.NewEncoder(w).Encode([]Role{{ID: "1", Name: "mods"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	roster, err := LoadRoster(context.Background(), c, "g")
	require.NoError(t, err)

	m, ok := roster.MemberByID("555666777888999000")
	require.True(t, ok)
	require.Equal(t, "Ann", m.Name)

	m, ok = roster.MemberByNameTag("Ann", "1234")
	require.True(t, ok)
	require.Equal(t, "555666777888999000", m.ID)

	// Name matching is exact, never case-folded.
	_, ok = roster.MemberByNameTag("ann", "1234")
	require.False(t, ok)

	_, ok = roster.RoleByName("mods")
	require.True(t, ok)
	_, ok = roster.RoleByName("nope")
	require.False(t, ok)

	require.Len(t, roster.Members(), 1)
	require.Len(t, roster.Roles(), 1)
}
