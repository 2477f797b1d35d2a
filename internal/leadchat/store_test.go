package leadchat

import (
	"testing"
	"time"

	"lead-chat/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(id string, authorID uint, body string) model.Message {
	return model.Message{ID: id, LeadID: 1, AuthorID: authorID, Body: body}
}

func ids(messages []model.Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.ID)
	}
	return out
}

func TestMessageStoreInsertDeduplicates(t *testing.T) {
	store := NewMessageStore()
	store.Replace([]model.Message{msg("a", 1, "one"), msg("b", 1, "two"), msg("a", 1, "dup")})
	assert.Equal(t, []string{"a", "b"}, ids(store.Snapshot()))

	inserts := []string{"c", "a", "c", "d", "b", "d"}
	results := make([]bool, 0, len(inserts))
	for _, id := range inserts {
		results = append(results, store.ApplyInsert(msg(id, 1, id)))
	}

	assert.Equal(t, []bool{true, false, false, true, false, false}, results)
	assert.Equal(t, 4, store.Len())
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(store.Snapshot()))

	first, ok := store.Get("a")
	require.True(t, ok)
	assert.Equal(t, "one", first.Body)
}

func TestMessageStoreApplyUpdate(t *testing.T) {
	store := NewMessageStore()
	author := &model.DirectoryEntry{ID: 1, Name: "alice"}
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	store.Replace([]model.Message{{ID: "a", AuthorID: 1, Body: "old", CreatedAt: created}})

	updatedAt := created.Add(time.Minute)
	ok := store.ApplyUpdate(model.Message{ID: "a", Body: "new", Edited: true, UpdatedAt: updatedAt, Author: author})
	require.True(t, ok)

	got, _ := store.Get("a")
	assert.Equal(t, "new", got.Body)
	assert.True(t, got.Edited)
	assert.Equal(t, updatedAt, got.UpdatedAt)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, author, got.Author)
	assert.Equal(t, uint(1), got.AuthorID)

	assert.False(t, store.ApplyUpdate(model.Message{ID: "missing", Body: "x"}))
	assert.Equal(t, 1, store.Len())
}

func TestMessageStoreDeleteAndRestore(t *testing.T) {
	store := NewMessageStore()
	store.Replace([]model.Message{msg("a", 1, "a"), msg("b", 1, "b"), msg("c", 1, "c")})

	removed, index, ok := store.ApplyDelete("b")
	require.True(t, ok)
	assert.Equal(t, 1, index)
	assert.Equal(t, []string{"a", "c"}, ids(store.Snapshot()))

	_, _, ok = store.ApplyDelete("b")
	assert.False(t, ok, "deleting an unknown id is a no-op")

	assert.True(t, store.Restore(removed, index))
	assert.Equal(t, []string{"a", "b", "c"}, ids(store.Snapshot()))
	assert.False(t, store.Restore(removed, index), "already present")

	store.Clear()
	assert.Equal(t, 0, store.Len())
	assert.True(t, store.Restore(removed, 7))
	assert.Equal(t, []string{"b"}, ids(store.Snapshot()))
}

func TestMessageStoreSnapshotIsCopy(t *testing.T) {
	store := NewMessageStore()
	store.ApplyInsert(msg("a", 1, "a"))

	snap := store.Snapshot()
	snap[0].Body = "mutated"

	got, _ := store.Get("a")
	assert.Equal(t, "a", got.Body)
}
