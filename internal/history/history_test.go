package history

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	entries := []Entry{
		UserTurn("Ann", "1234", "555666777888999000", "hello"),
		AssistantTurn("hi there"),
	}
	require.NoError(t, s.Save("chan-1", entries))
	require.Equal(t, entries, s.Load("chan-1"))
}

func TestSaveEmptyOverwrites(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("chan-1", []Entry{AssistantTurn("old")}))
	require.NoError(t, s.Save("chan-1", nil))
	require.Empty(t, s.Load("chan-1"))
}

func TestLoadMissing(t *testing.T) {
	s := newTestStore(t)
	require.Nil(t, s.Load("never-seen"))
}

func TestLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644))
	require.Nil(t, s.Load("bad"))
}

func TestSaveReplacesWholeFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("c", []Entry{AssistantTurn("one"), AssistantTurn("two")}))
	require.NoError(t, s.Save("c", []Entry{AssistantTurn("three")}))
	got := s.Load("c")
	require.Len(t, got, 1)
	require.Equal(t, "three", got[0].Content)
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("c", []Entry{AssistantTurn("x")}))
	require.NoError(t, s.Clear("c"))
	require.Nil(t, s.Load("c"))
	// Clearing again is a no-op.
	require.NoError(t, s.Clear("c"))
}

func TestClearAll(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("a", []Entry{AssistantTurn("1")}))
	require.NoError(t, s.Save("b", []Entry{AssistantTurn("2")}))
	removed, err := s.ClearAll()
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	removed, err = s.ClearAll()
	require.NoError(t, err)
	require.Equal(t, 0, removed)
}

func TestAppendTrimsOldest(t *testing.T) {
	var entries []Entry
	entries = Append(entries, AssistantTurn("A"), 2)
	entries = Append(entries, AssistantTurn("B"), 2)
	entries = Append(entries, AssistantTurn("C"), 2)
	require.Len(t, entries, 2)
	require.Equal(t, "B", entries[0].Content)
	require.Equal(t, "C", entries[1].Content)
}

func TestAppendUnlimited(t *testing.T) {
	var entries []Entry
	for i := 0; i < 10; i++ {
		entries = Append(entries, AssistantTurn("x"), 0)
	}
	require.Len(t, entries, 10)
}
