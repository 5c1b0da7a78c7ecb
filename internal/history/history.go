// Package history persists the bounded per-conversation log: one JSON
// file per conversation id, replaced whole on every save. Read problems
// degrade to an empty history and write problems are logged; neither is
// allowed to fail a turn.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lousybook/lousybot-go/internal/logger"
)

const fileSuffix = ".json"

// Store is a file-backed history store rooted at one directory. The
// single pipeline worker is the only writer, so no locking is needed.
type Store struct {
	dir string
}

// NewStore creates the cache directory if needed and returns a store.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %q: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(conversationID string) string {
	return filepath.Join(s.dir, conversationID+fileSuffix)
}

// Load returns the stored entries for a conversation in order. A missing
// or unreadable file yields an empty history; corruption is logged and
// swallowed, never propagated.
func (s *Store) Load(conversationID string) []Entry {
	data, err := os.ReadFile(s.path(conversationID))
	if err != nil {
		if !os.IsNotExist(err) {
			logger.L.Warn("failed to read history file", "conversation", conversationID, "error", err)
		}
		return nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.L.Warn("corrupt history file, treating as empty", "conversation", conversationID, "error", err)
		return nil
	}
	return entries
}

// Save persists the full entry sequence, overwriting prior content.
// Failures are logged; the returned error exists for callers that want
// to log extra context, never to fail a turn.
func (s *Store) Save(conversationID string, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		logger.L.Error("failed to encode history", "conversation", conversationID, "error", err)
		return err
	}
	if err := os.WriteFile(s.path(conversationID), data, 0o644); err != nil {
		logger.L.Error("failed to write history file", "conversation", conversationID, "error", err)
		return err
	}
	return nil
}

// Clear removes the persisted log for one conversation. Removing a
// conversation that has no log is a no-op.
func (s *Store) Clear(conversationID string) error {
	err := os.Remove(s.path(conversationID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ClearAll removes every persisted conversation log and reports how many
// were deleted. Zero files is a success.
func (s *Store) ClearAll() (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+fileSuffix))
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, path := range matches {
		if err := os.Remove(path); err != nil {
			logger.L.Warn("failed to delete history file", "path", path, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// Append adds an entry and trims to the most recent max entries (FIFO
// eviction). max <= 0 means unlimited.
func Append(entries []Entry, e Entry, max int) []Entry {
	entries = append(entries, e)
	if max > 0 && len(entries) > max {
		entries = entries[len(entries)-max:]
	}
	return entries
}
