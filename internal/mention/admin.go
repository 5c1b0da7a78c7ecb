package mention

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// AdminList is the parsed operator allow-list. Each entry is either a
// bare numeric id (15-21 digits) or a name#tag pair. Invalid lines are
// collected, not fatal; duplicates are reported as invalid and skipped.
type AdminList struct {
	Entries []string
	Invalid []string
	Missing bool
}

// ParseAdminFile reads the newline-delimited admin list. Blank lines and
// '#' comments are ignored. A missing file yields an empty list with
// Missing set, not an error.
func ParseAdminFile(path string) (AdminList, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return AdminList{Missing: true}, nil
		}
		return AdminList{}, fmt.Errorf("open admin list %q: %w", path, err)
	}
	defer f.Close()

	var list AdminList
	seen := map[string]bool{}
	sc := bufio.NewScanner(f)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !validAdminEntry(line) {
			list.Invalid = append(list.Invalid, fmt.Sprintf("line %d: %q", lineno, line))
			continue
		}
		if seen[line] {
			list.Invalid = append(list.Invalid, fmt.Sprintf("line %d: %q (duplicate)", lineno, line))
			continue
		}
		seen[line] = true
		list.Entries = append(list.Entries, line)
	}
	if err := sc.Err(); err != nil {
		return AdminList{}, fmt.Errorf("read admin list %q: %w", path, err)
	}
	return list, nil
}

func validAdminEntry(line string) bool {
	if isDigits(line) {
		return len(line) >= 15 && len(line) <= 21
	}
	name, tag, ok := strings.Cut(line, "#")
	return ok && name != "" && isDigits(tag) && len(tag) <= 4 && strings.Count(line, "#") == 1
}

// Allows reports whether the member matches any allow-list entry, by
// numeric id or by name#tag.
func (l AdminList) Allows(m Member) bool {
	nameTag := m.Name + "#" + m.Discriminator
	for _, e := range l.Entries {
		if e == m.ID || e == nameTag {
			return true
		}
	}
	return false
}

// Block renders the admin list for inclusion in the system instructions,
// including any invalid lines so the operator sees them surfaced.
func (l AdminList) Block() string {
	var b strings.Builder
	b.WriteString("📋 Current admin list for @everyone/@here pings:\n")
	if l.Missing {
		b.WriteString("  • ❗ admin list file not found!\n")
	} else if len(l.Entries) == 0 {
		b.WriteString("  • (none)\n")
	} else {
		for _, e := range l.Entries {
			b.WriteString("  • " + e + "\n")
		}
	}
	if len(l.Invalid) > 0 {
		b.WriteString("❗ Invalid lines in admin list (ignored):\n")
		for _, line := range l.Invalid {
			b.WriteString("  - " + line + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// PingHelp builds the mention-syntax instruction block for the system
// prompt: how to write mentions, who may trigger group pings, and which
// roles exist in scope.
func PingHelp(scope Scope, admins AdminList) string {
	return strings.Join([]string{
		"🔔 A mention (ping) directly notifies a user.",
		"➡️ To mention a specific user, ALWAYS use <@username#discriminator> (e.g. <@LousyBook01#1234>) or <@user_id> (digits only) matching a real user from the server user list.",
		"🚫 NEVER output placeholders like <@user> or guessed names; they will not ping anyone.",
		"👥 Use <@everyone> to ping everyone and <@roleName> to ping a role; only user pings need the #discriminator.",
		"⚠️ Only users on the admin list below may ask for @everyone or @here pings.",
		admins.Block(),
		"📋 Available roles you can mention:",
		rolesBlock(scope),
	}, "\n")
}

func rolesBlock(scope Scope) string {
	if scope == nil {
		return "(No roles.)"
	}
	roles := scope.Roles()
	if len(roles) == 0 {
		return "(No roles.)"
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		if r.Name == "@everyone" {
			continue
		}
		names = append(names, "• "+r.Name)
	}
	if len(names) == 0 {
		return "(No roles.)"
	}
	sort.Strings(names)
	return strings.Join(names, "\n")
}

// UserList builds the member roster block for the system prompt. selfID
// marks the bot's own account so the model can tell itself apart.
func UserList(scope Scope, selfID string) string {
	if scope == nil {
		return "Server User List:\n(No user list available)"
	}
	members := scope.Members()
	if len(members) == 0 {
		return "Server User List:\n(No user list available)"
	}
	lines := make([]string, 0, len(members))
	seen := map[string]bool{}
	for _, m := range members {
		line := fmt.Sprintf("- %s#%s | %s", m.Name, m.Discriminator, m.ID)
		if selfID != "" && m.ID == selfID {
			line += " | (Your Account)"
		}
		if !seen[line] {
			seen[line] = true
			lines = append(lines, line)
		}
	}
	sort.Strings(lines)
	return "Server User List:\n" + strings.Join(lines, "\n")
}
