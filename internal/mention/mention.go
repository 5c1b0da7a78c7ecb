// Package mention rewrites placeholder mention syntax (<@payload>) into
// platform-native mention syntax, and back again for model input. All
// lookups go through narrow capability interfaces so the resolver never
// touches the platform SDK directly.
package mention

import (
	"strings"

	"github.com/lousybook/lousybot-go/internal/logger"
)

// Member is one guild member visible to the resolver.
type Member struct {
	Name          string
	Discriminator string
	ID            string
}

// Role is one guild role visible to the resolver.
type Role struct {
	Name string
	ID   string
}

// MemberLookup resolves members by (name, tag) pair or by numeric id.
type MemberLookup interface {
	MemberByNameTag(name, tag string) (Member, bool)
	MemberByID(id string) (Member, bool)
}

// RoleLookup resolves roles by exact name.
type RoleLookup interface {
	RoleByName(name string) (Role, bool)
}

// Scope is the guild context for resolution: lookups plus roster
// enumeration for prompt building. A nil Scope disables lookups.
type Scope interface {
	MemberLookup
	RoleLookup
	Members() []Member
	Roles() []Role
}

// Resolve scans text for <@payload> spans and rewrites each resolvable
// one to its platform-native form. Unresolvable spans pass through
// verbatim; the function never fails and is idempotent on already
// resolved text.
func Resolve(text string, scope Scope) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text))
	rest := text
	for {
		start := strings.Index(rest, "<@")
		if start < 0 {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:start])
		rest = rest[start:]

		end := strings.IndexByte(rest[2:], '>')
		if end < 0 {
			b.WriteString(rest)
			return b.String()
		}
		payload := rest[2 : 2+end]
		// A nested "<@" inside the span means this opener is not a
		// mention; emit up to the inner opener and rescan from there.
		if inner := strings.Index(payload, "<@"); inner >= 0 {
			b.WriteString(rest[:2+inner])
			rest = rest[2+inner:]
			continue
		}
		b.WriteString(classify(payload, rest[:end+3], scope))
		rest = rest[end+3:]
	}
}

// classify applies the resolution precedence to one payload. original is
// the full <@payload> span, returned unchanged on any miss.
func classify(payload, original string, scope Scope) string {
	if payload == "everyone" || payload == "here" {
		return "@" + payload
	}
	if isDigits(payload) && len(payload) >= 15 && len(payload) <= 21 {
		return "<@" + payload + ">"
	}
	if scope == nil {
		return original
	}
	if strings.Count(payload, "#") == 1 {
		name, tag, _ := strings.Cut(payload, "#")
		if isDigits(tag) && len(tag) >= 1 && len(tag) <= 4 {
			if m, ok := scope.MemberByNameTag(name, tag); ok {
				return "<@" + m.ID + ">"
			}
			return original
		}
	}
	if _, ok := scope.RoleByName(payload); ok {
		return "@" + payload
	}
	return original
}

// Humanize is the opposite transform, run before model submission:
// platform-native numeric-id mentions (<@id> and <@!id>) become the
// readable @name#tag form. Unknown ids stay as numeric mentions with a
// diagnostic logged.
func Humanize(text string, scope Scope) string {
	if text == "" || scope == nil {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	rest := text
	for {
		start := strings.Index(rest, "<@")
		if start < 0 {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:start])
		rest = rest[start:]

		inner := rest[2:]
		if strings.HasPrefix(inner, "!") {
			inner = inner[1:]
		}
		end := strings.IndexByte(inner, '>')
		if end < 0 || !isDigits(inner[:end]) || end == 0 {
			b.WriteString("<@")
			rest = rest[2:]
			continue
		}
		id := inner[:end]
		span := rest[:len(rest)-len(inner)+end+1]
		if m, ok := scope.MemberByID(id); ok {
			b.WriteString("@" + m.Name + "#" + m.Discriminator)
		} else {
			logger.L.Debug("member id not found while humanizing mention", "id", id)
			b.WriteString(span)
		}
		rest = rest[len(span):]
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
