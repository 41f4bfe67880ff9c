package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multichat-ai/multichat/internal/storage"
	"github.com/multichat-ai/multichat/pkg/types"
)

func TestCreateWorksFromEmptyRegistry(t *testing.T) {
	reg := NewRegistry(&fakeStreamer{}, nil, nil)

	cs := reg.Create(context.Background())
	require.NotNil(t, cs)

	snap := cs.Snapshot()
	assert.Equal(t, DefaultName, snap.Name)
	assert.Equal(t, types.StatusIdle, snap.Status)
	assert.Empty(t, snap.DeploymentID, "no deployment selected at creation")
	assert.Equal(t, types.DefaultSettings(), snap.Settings)

	got, ok := reg.Get(cs.ID())
	require.True(t, ok)
	assert.Same(t, cs, got)
}

func TestCreateAllocatesUniqueIDs(t *testing.T) {
	reg := NewRegistry(&fakeStreamer{}, nil, nil)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := reg.Create(context.Background()).ID()
		require.False(t, seen[id], "duplicate session id %s", id)
		seen[id] = true
	}
}

func TestListIsCopyOnWrite(t *testing.T) {
	reg := NewRegistry(&fakeStreamer{}, nil, nil)
	a := reg.Create(context.Background())

	before := reg.List()
	require.Len(t, before, 1)

	b := reg.Create(context.Background())

	assert.Len(t, before, 1, "published snapshot never mutates")
	after := reg.List()
	require.Len(t, after, 2)
	assert.Same(t, a, after[0], "creation order preserved")
	assert.Same(t, b, after[1])
}

func TestDisableIsSoft(t *testing.T) {
	streamer := &fakeStreamer{}
	h := newFakeHandle()
	streamer.enqueue(h)

	reg := NewRegistry(streamer, nil, nil)
	cs := reg.Create(context.Background())
	cs.SelectDeployment(modelA())

	require.NoError(t, cs.Submit(context.Background(), "hello"))
	h.pushDelta("partial")
	require.Eventually(t, func() bool { return len(cs.Messages()) == 2 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, reg.Disable(context.Background(), cs.ID()))

	assert.True(t, cs.Snapshot().Disabled)
	assert.Equal(t, 1, h.cancels(), "disable leaves no live stream behind")
	assert.Len(t, cs.Messages(), 2, "history preserved")
	_, ok := reg.Get(cs.ID())
	assert.True(t, ok, "disabled sessions stay in the registry")

	assert.Error(t, reg.Disable(context.Background(), "missing"))
}

func TestDeleteRemovesSession(t *testing.T) {
	reg := NewRegistry(&fakeStreamer{}, nil, nil)
	a := reg.Create(context.Background())
	b := reg.Create(context.Background())

	require.NoError(t, reg.Delete(context.Background(), a.ID()))

	_, ok := reg.Get(a.ID())
	assert.False(t, ok)
	list := reg.List()
	require.Len(t, list, 1)
	assert.Same(t, b, list[0])

	assert.Error(t, reg.Delete(context.Background(), a.ID()))
}

func TestDefaultCreatesWhenEmptyAndReusesEnabled(t *testing.T) {
	reg := NewRegistry(&fakeStreamer{}, nil, nil)

	first := reg.Default(context.Background())
	require.NotNil(t, first)
	assert.Same(t, first, reg.Default(context.Background()))

	require.NoError(t, reg.Disable(context.Background(), first.ID()))
	replacement := reg.Default(context.Background())
	assert.NotSame(t, first, replacement, "disabled sessions are skipped")
}

func TestStorageSaverRoundTrip(t *testing.T) {
	store := storage.New(t.TempDir())
	saver := NewStorageSaver(store)
	ctx := context.Background()

	sess := &types.Session{ID: "s1", Name: "test", Status: types.StatusIdle}
	saver.SaveSession(sess)

	var loaded types.Session
	require.NoError(t, store.Get(ctx, []string{"session", "s1"}, &loaded))
	assert.Equal(t, "test", loaded.Name)

	saver.SaveMessage(&types.Message{ID: generateID(), SessionID: "s1", Role: "user", Content: "one"})
	saver.SaveMessage(&types.Message{ID: generateID(), SessionID: "s1", Role: "assistant", Content: "two"})

	msgs, err := saver.LoadMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Content, "history restores in creation order")

	saver.DeleteSession("s1")
	err = store.Get(ctx, []string{"session", "s1"}, &loaded)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	msgs, err = saver.LoadMessages(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
