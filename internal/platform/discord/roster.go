package discord

import (
	"context"
	"sync"

	"github.com/lousybook/lousybot-go/internal/mention"
)

const rosterFetchLimit = 1000

// Roster is a snapshot of one guild's members and roles, indexed for
// mention resolution. Safe for concurrent use; Refresh swaps the whole
// snapshot.
type Roster struct {
	client  *Client
	guildID string

	mu         sync.RWMutex
	byID       map[string]mention.Member
	byNameTag  map[string]mention.Member
	roleByName map[string]mention.Role
	members    []mention.Member
	roles      []mention.Role
}

// LoadRoster fetches the guild's members and roles and builds a roster.
func LoadRoster(ctx context.Context, client *Client, guildID string) (*Roster, error) {
	r := &Roster{client: client, guildID: guildID}
	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Refresh re-fetches the guild roster and replaces the snapshot.
func (r *Roster) Refresh(ctx context.Context) error {
	rawMembers, err := r.client.GuildMembers(ctx, r.guildID, rosterFetchLimit)
	if err != nil {
		return err
	}
	rawRoles, err := r.client.GuildRoles(ctx, r.guildID)
	if err != nil {
		return err
	}

	byID := make(map[string]mention.Member, len(rawMembers))
	byNameTag := make(map[string]mention.Member, len(rawMembers))
	members := make([]mention.Member, 0, len(rawMembers))
	for _, m := range rawMembers {
		member := mention.Member{
			Name:          m.User.Username,
			Discriminator: m.User.Discriminator,
			ID:            m.User.ID,
		}
		byID[member.ID] = member
		byNameTag[nameTagKey(member.Name, member.Discriminator)] = member
		members = append(members, member)
	}

	roleByName := make(map[string]mention.Role, len(rawRoles))
	roles := make([]mention.Role, 0, len(rawRoles))
	for _, role := range rawRoles {
		roles = append(roles, mention.Role{Name: role.Name, ID: role.ID})
		roleByName[role.Name] = mention.Role{Name: role.Name, ID: role.ID}
	}

	r.mu.Lock()
	r.byID = byID
	r.byNameTag = byNameTag
	r.roleByName = roleByName
	r.members = members
	r.roles = roles
	r.mu.Unlock()
	return nil
}

func (r *Roster) MemberByNameTag(name, tag string) (mention.Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byNameTag[nameTagKey(name, tag)]
	return m, ok
}

func (r *Roster) MemberByID(id string) (mention.Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	return m, ok
}

func (r *Roster) RoleByName(name string) (mention.Role, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	role, ok := r.roleByName[name]
	return role, ok
}

func (r *Roster) Members() []mention.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mention.Member, len(r.members))
	copy(out, r.members)
	return out
}

func (r *Roster) Roles() []mention.Role {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mention.Role, len(r.roles))
	copy(out, r.roles)
	return out
}

// nameTagKey preserves case: member lookups match the exact name.
func nameTagKey(name, tag string) string {
	return name + "#" + tag
}
