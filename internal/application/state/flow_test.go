package state

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/younwookim/stagecraft/internal/domain/screen"
	"github.com/younwookim/stagecraft/internal/infrastructure/storage"
)

func ids(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func TestFlow_Advance(t *testing.T) {
	n := ids(3)
	f := NewFlow(n[0], 4)

	assert.Equal(t, n[0], f.Current())
	assert.Equal(t, uuid.Nil, f.Previous())
	assert.Empty(t, f.History())

	f.Advance(n[1], "next")
	f.Advance(n[2], "shop")

	assert.Equal(t, n[2], f.Current())
	assert.Equal(t, n[1], f.Previous())
	assert.Equal(t, "shop", f.LastEvent())
	assert.Equal(t, []Step{
		{From: n[0], To: n[1], Event: "next"},
		{From: n[1], To: n[2], Event: "shop"},
	}, f.History())
}

func TestFlow_HistoryIsBounded(t *testing.T) {
	n := ids(6)
	f := NewFlow(n[0], 3)
	for i := 1; i < len(n); i++ {
		f.Advance(n[i], "next")
	}

	h := f.History()
	require.Len(t, h, 3)
	assert.Equal(t, n[2], h[0].From, "oldest steps are dropped")
	assert.Equal(t, n[5], h[2].To)
}

func TestFlow_ZeroCapacityUsesDefault(t *testing.T) {
	f := NewFlow(uuid.New(), 0)
	assert.Len(t, f.history, DefaultHistory)
}

func TestFlow_Reset(t *testing.T) {
	n := ids(2)
	f := NewFlow(n[0], 4)
	f.Advance(n[1], "next")

	f.Reset(n[0])
	assert.Equal(t, n[0], f.Current())
	assert.Equal(t, uuid.Nil, f.Previous())
	assert.Equal(t, "", f.LastEvent())
	assert.Empty(t, f.History())
}

func TestFlow_PathFollowsModes(t *testing.T) {
	n := ids(5)
	f := NewFlow(n[0], 8)
	assert.Equal(t, []uuid.UUID{n[0]}, f.Path())

	f.AdvanceWith(n[1], "home", screen.TransitionEnter)
	f.AdvanceWith(n[2], "shop", screen.TransitionPush)
	f.AdvanceWith(n[3], "detail", screen.TransitionPush)
	assert.Equal(t, []uuid.UUID{n[1], n[2], n[3]}, f.Path())

	f.AdvanceWith(n[2], "back", screen.TransitionPop)
	assert.Equal(t, []uuid.UUID{n[1], n[2]}, f.Path())

	f.AdvanceWith(n[4], "pause", screen.TransitionPushOverride)
	assert.Equal(t, n[4], f.Override())
	assert.Equal(t, []uuid.UUID{n[1], n[2]}, f.Path(), "an override leaves the stack alone")

	f.AdvanceWith(n[2], "resume", screen.TransitionPopOverride)
	assert.Equal(t, uuid.Nil, f.Override())

	f.Advance(n[0], "title")
	assert.Equal(t, []uuid.UUID{n[0]}, f.Path())

	f.AdvanceWith(n[1], "back", screen.TransitionPop)
	assert.Equal(t, []uuid.UUID{n[1]}, f.Path(), "popping the base replaces it")
}

func TestFlow_RestoreWithoutPathUsesCurrent(t *testing.T) {
	n := ids(1)
	f := NewFlow(uuid.New(), 4)

	require.NoError(t, f.Restore(Snapshot{Current: n[0].String()}))
	assert.Equal(t, []uuid.UUID{n[0]}, f.Path())
	assert.Equal(t, uuid.Nil, f.Override())
}

func TestFlow_RestoreRejectsBadIDs(t *testing.T) {
	f := NewFlow(uuid.New(), 4)
	before := f.Current()

	err := f.Restore(Snapshot{Current: "not-a-uuid"})
	assert.Error(t, err)
	assert.Equal(t, before, f.Current())
}

func TestStore_SaveAndLoad(t *testing.T) {
	n := ids(3)
	f := NewFlow(n[0], 2)
	f.Advance(n[1], "next")
	f.Advance(n[2], "back")

	store := NewStore(storage.NewMemory())
	require.NoError(t, store.Save(f))

	restored := NewFlow(uuid.Nil, 2)
	ok, err := store.Load(restored)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, f.Current(), restored.Current())
	assert.Equal(t, f.Previous(), restored.Previous())
	assert.Equal(t, f.LastEvent(), restored.LastEvent())
	assert.Equal(t, f.History(), restored.History())
	assert.Equal(t, f.Path(), restored.Path())
}

func TestStore_RoundTripsPathAndOverride(t *testing.T) {
	n := ids(4)
	f := NewFlow(n[0], 4)
	f.AdvanceWith(n[1], "shop", screen.TransitionPush)
	f.AdvanceWith(n[2], "pause", screen.TransitionPushOverride)

	store := NewStore(storage.NewMemory())
	require.NoError(t, store.Save(f))

	restored := NewFlow(n[3], 4)
	ok, err := store.Load(restored)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []uuid.UUID{n[0], n[1]}, restored.Path())
	assert.Equal(t, n[2], restored.Override())
}

func TestStore_LoadWithoutSave(t *testing.T) {
	start := uuid.New()
	f := NewFlow(start, 2)

	ok, err := NewStore(storage.NewMemory()).Load(f)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, start, f.Current())
}

func TestStore_NilBackendIsMemoryless(t *testing.T) {
	store := NewStore(nil)
	f := NewFlow(uuid.New(), 2)

	assert.NoError(t, store.Save(f))
	ok, err := store.Load(f)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_CorruptData(t *testing.T) {
	mem := storage.NewMemory()
	require.NoError(t, mem.SaveObjectProp(flowObject, flowProperty, []byte("current: [")))

	_, err := NewStore(mem).Load(NewFlow(uuid.New(), 2))
	assert.Error(t, err)
}
