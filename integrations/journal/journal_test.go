package journal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"xmblvault/core/types"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestAppendAssignsSequence(t *testing.T) {
	j := openTestJournal(t)
	first, err := j.Append(&types.Event{Type: "vault.share.issued", Attributes: map[string]string{"shareId": "1"}})
	require.NoError(t, err)
	second, err := j.Append(&types.Event{Type: "vault.yield.claimed", Attributes: map[string]string{"shareId": "1"}})
	require.NoError(t, err)

	require.Equal(t, uint64(1), first.Seq)
	require.Equal(t, uint64(2), second.Seq)
	require.NotEqual(t, first.ID, second.ID)

	last, err := j.LastSeq()
	require.NoError(t, err)
	require.Equal(t, uint64(2), last)
}

func TestReplayFromCursor(t *testing.T) {
	j := openTestJournal(t)
	for i := 0; i < 5; i++ {
		_, err := j.Append(&types.Event{Type: "vault.share.issued"})
		require.NoError(t, err)
	}

	var seqs []uint64
	require.NoError(t, j.ReplayFrom(2, func(entry *Entry) error {
		seqs = append(seqs, entry.Seq)
		return nil
	}))
	require.Equal(t, []uint64{3, 4, 5}, seqs)

	seqs = seqs[:0]
	require.NoError(t, j.ReplayFrom(0, func(entry *Entry) error {
		seqs = append(seqs, entry.Seq)
		return nil
	}))
	require.Len(t, seqs, 5)
}

func TestAppendCopiesAttributes(t *testing.T) {
	j := openTestJournal(t)
	attrs := map[string]string{"shareId": "7"}
	entry, err := j.Append(&types.Event{Type: "vault.share.issued", Attributes: attrs})
	require.NoError(t, err)
	attrs["shareId"] = "mutated"

	var replayed *Entry
	require.NoError(t, j.ReplayFrom(0, func(e *Entry) error {
		replayed = e
		return nil
	}))
	require.Equal(t, "7", replayed.Attributes["shareId"])
	require.Equal(t, entry.ID, replayed.ID)
}
