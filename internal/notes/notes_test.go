package notes

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multichat-ai/multichat/internal/storage"
	"github.com/multichat-ai/multichat/pkg/types"
)

// fakeStore records fetches and can hold them open to simulate an in-flight
// request.
type fakeStore struct {
	mu      sync.Mutex
	fetches []int
	pages   map[int]*types.NotePage
	block   chan struct{}

	created []types.Note
	updated []types.Note
	deleted []string

	createID string
	fail     bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{pages: make(map[int]*types.NotePage)}
}

func (f *fakeStore) FetchPage(ctx context.Context, sessionID string, page, limit int) (*types.NotePage, error) {
	f.mu.Lock()
	f.fetches = append(f.fetches, page)
	block := f.block
	result := f.pages[page]
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if result == nil {
		return &types.NotePage{Page: page}, nil
	}
	return result, nil
}

func (f *fakeStore) Create(ctx context.Context, note types.Note) (*types.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("backend down")
	}
	f.created = append(f.created, note)
	confirmed := note
	if f.createID != "" {
		confirmed.ID = f.createID
	}
	return &confirmed, nil
}

func (f *fakeStore) Update(ctx context.Context, note types.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("backend down")
	}
	f.updated = append(f.updated, note)
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, sessionID, noteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("backend down")
	}
	f.deleted = append(f.deleted, noteID)
	return nil
}

func (f *fakeStore) fetchCount(page int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.fetches {
		if p == page {
			n++
		}
	}
	return n
}

func makeNotes(sessionID string, n int) []types.Note {
	notes := make([]types.Note, n)
	for i := range notes {
		notes[i] = types.Note{ID: uuidLike(i), SessionID: sessionID, Text: "note"}
	}
	return notes
}

func uuidLike(i int) string {
	return string(rune('a'+i%26)) + "-note"
}

func TestFetchPageUpdatesCursor(t *testing.T) {
	store := newFakeStore()
	store.pages[1] = &types.NotePage{
		Notes:      makeNotes("s1", 20),
		Page:       1,
		TotalPages: 3,
		TotalNotes: 45,
	}

	p := NewPaginator(store, "s1")
	require.NoError(t, p.FetchPage(context.Background(), 1))

	assert.Len(t, p.Notes(), 20)
	cursor := p.Cursor()
	assert.Equal(t, 1, cursor.CurrentPage)
	assert.Equal(t, 3, cursor.TotalPages)
	assert.Equal(t, 45, cursor.TotalNotes)
}

func TestFetchPageRejectsBeyondTotal(t *testing.T) {
	store := newFakeStore()
	store.pages[1] = &types.NotePage{Notes: makeNotes("s1", 20), Page: 1, TotalPages: 3, TotalNotes: 45}

	p := NewPaginator(store, "s1")
	require.NoError(t, p.FetchPage(context.Background(), 1))

	assert.Error(t, p.FetchPage(context.Background(), 4))
	assert.Error(t, p.FetchPage(context.Background(), 0))
	assert.Equal(t, 0, store.fetchCount(4), "out-of-range page never hits the store")
}

func TestFetchPageDeduplicatesInflight(t *testing.T) {
	store := newFakeStore()
	store.block = make(chan struct{})
	store.pages[2] = &types.NotePage{Notes: makeNotes("s1", 20), Page: 2, TotalPages: 3, TotalNotes: 45}

	p := NewPaginator(store, "s1")

	first := make(chan error, 1)
	go func() { first <- p.FetchPage(context.Background(), 2) }()

	// Wait until the first request is in flight.
	require.Eventually(t, func() bool { return store.fetchCount(2) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, p.FetchPage(context.Background(), 2), "duplicate request is a silent no-op")
	assert.Equal(t, 1, store.fetchCount(2))

	close(store.block)
	require.NoError(t, <-first)
}

func TestHandleScrollFetchesNextPageOnce(t *testing.T) {
	store := newFakeStore()
	store.pages[1] = &types.NotePage{Notes: makeNotes("s1", 20), Page: 1, TotalPages: 3, TotalNotes: 45}
	store.pages[2] = &types.NotePage{Notes: makeNotes("s1", 20), Page: 2, TotalPages: 3, TotalNotes: 45}

	p := NewPaginator(store, "s1")
	require.NoError(t, p.FetchPage(context.Background(), 1))

	// 20 loaded rows at the default row height; scroll past them.
	past := float64(20)*DefaultRowHeightEstimate + 1

	assert.True(t, p.HandleScroll(context.Background(), past))
	assert.Equal(t, 1, store.fetchCount(2))
	assert.Equal(t, 2, p.Cursor().CurrentPage)

	// Not past the newly loaded rows, no further fetch.
	assert.False(t, p.HandleScroll(context.Background(), past))
	assert.Equal(t, 0, store.fetchCount(3))
}

func TestHandleScrollIgnoresRepeatWhileInflight(t *testing.T) {
	store := newFakeStore()
	store.pages[1] = &types.NotePage{Notes: makeNotes("s1", 20), Page: 1, TotalPages: 3, TotalNotes: 45}

	p := NewPaginator(store, "s1")
	require.NoError(t, p.FetchPage(context.Background(), 1))

	store.mu.Lock()
	store.block = make(chan struct{})
	store.pages[2] = &types.NotePage{Notes: makeNotes("s1", 20), Page: 2, TotalPages: 3, TotalNotes: 45}
	store.mu.Unlock()

	past := float64(20)*DefaultRowHeightEstimate + 1

	done := make(chan bool, 1)
	go func() { done <- p.HandleScroll(context.Background(), past) }()

	require.Eventually(t, func() bool { return store.fetchCount(2) == 1 }, time.Second, 5*time.Millisecond)

	// A second scroll event while page 2 is still in flight issues nothing.
	assert.False(t, p.HandleScroll(context.Background(), past))
	assert.Equal(t, 1, store.fetchCount(2))

	close(store.block)
	assert.True(t, <-done)
}

func TestHandleScrollStopsAtLastPage(t *testing.T) {
	store := newFakeStore()
	store.pages[1] = &types.NotePage{Notes: makeNotes("s1", 5), Page: 1, TotalPages: 1, TotalNotes: 5}

	p := NewPaginator(store, "s1")
	require.NoError(t, p.FetchPage(context.Background(), 1))

	assert.False(t, p.HandleScroll(context.Background(), 10000))
	assert.Equal(t, 0, store.fetchCount(2))
}

func TestCreateNoteAssignsIDImmediately(t *testing.T) {
	store := newFakeStore()
	p := NewPaginator(store, "s1")

	note := p.CreateNote(context.Background(), "remember this")

	require.NotEmpty(t, note.ID)
	assert.Equal(t, "s1", note.SessionID)
	assert.Len(t, p.Notes(), 1)
	assert.Equal(t, 1, p.Cursor().TotalNotes)

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.created) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCreateNoteReconcilesServerID(t *testing.T) {
	store := newFakeStore()
	store.createID = "server-assigned"
	p := NewPaginator(store, "s1")

	note := p.CreateNote(context.Background(), "remember this")
	provisional := note.ID

	require.Eventually(t, func() bool {
		notes := p.Notes()
		return len(notes) == 1 && notes[0].ID == "server-assigned"
	}, 2*time.Second, 10*time.Millisecond)

	assert.NotEqual(t, provisional, "server-assigned")
}

func TestCreateNoteSurvivesBackendFailure(t *testing.T) {
	store := newFakeStore()
	store.fail = true
	p := NewPaginator(store, "s1")

	note := p.CreateNote(context.Background(), "kept locally")

	require.NotNil(t, note)
	assert.Len(t, p.Notes(), 1, "local note stands even when persistence fails")
}

func TestUpdateNoteEmptyTextDeletes(t *testing.T) {
	store := newFakeStore()
	p := NewPaginator(store, "s1")

	note := p.CreateNote(context.Background(), "draft")
	require.NoError(t, p.UpdateNote(context.Background(), note.ID, ""))

	assert.Empty(t, p.Notes())
	assert.Equal(t, 0, p.Cursor().TotalNotes)

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.deleted) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUpdateNoteEditsText(t *testing.T) {
	store := newFakeStore()
	p := NewPaginator(store, "s1")

	note := p.CreateNote(context.Background(), "draft")
	require.NoError(t, p.UpdateNote(context.Background(), note.ID, "final"))

	notes := p.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, "final", notes[0].Text)

	assert.Error(t, p.UpdateNote(context.Background(), "missing", "text"))
}

func TestLocalMirrorRoundTrip(t *testing.T) {
	dir := t.TempDir()
	mirror := NewLocalMirror(storage.New(dir))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := mirror.Create(ctx, types.Note{ID: uuidLike(i), SessionID: "s1", Text: "note"})
		require.NoError(t, err)
	}

	page, err := mirror.FetchPage(ctx, "s1", 1, 2)
	require.NoError(t, err)
	assert.Len(t, page.Notes, 2)
	assert.Equal(t, 3, page.TotalNotes)
	assert.Equal(t, 2, page.TotalPages)

	page, err = mirror.FetchPage(ctx, "s1", 2, 2)
	require.NoError(t, err)
	assert.Len(t, page.Notes, 1)

	require.NoError(t, mirror.Update(ctx, types.Note{ID: uuidLike(0), SessionID: "s1", Text: "edited"}))
	page, err = mirror.FetchPage(ctx, "s1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "edited", page.Notes[0].Text)

	require.NoError(t, mirror.Delete(ctx, "s1", uuidLike(1)))
	page, err = mirror.FetchPage(ctx, "s1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalNotes)
}

func TestLocalMirrorConcurrentCreatesKeepEveryNote(t *testing.T) {
	mirror := NewLocalMirror(storage.New(t.TempDir()))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := mirror.Create(ctx, types.Note{ID: fmt.Sprintf("n%d", i), SessionID: "s1", Text: "note"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	page, err := mirror.FetchPage(ctx, "s1", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 10, page.TotalNotes, "no create may overwrite another's write")
	assert.Len(t, page.Notes, 10)
}

func TestCreateNotePersistsEveryNote(t *testing.T) {
	mirror := NewLocalMirror(storage.New(t.TempDir()))
	p := NewPaginator(mirror, "s1")
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		p.CreateNote(ctx, fmt.Sprintf("note %d", i))
	}

	require.Eventually(t, func() bool {
		page, err := mirror.FetchPage(ctx, "s1", 1, 20)
		return err == nil && page.TotalNotes == 10
	}, 5*time.Second, 20*time.Millisecond, "every created note reaches the cache")
}

func TestLocalMirrorSessionScoping(t *testing.T) {
	mirror := NewLocalMirror(storage.New(t.TempDir()))
	ctx := context.Background()

	_, err := mirror.Create(ctx, types.Note{ID: "n1", SessionID: "s1", Text: "one"})
	require.NoError(t, err)
	_, err = mirror.Create(ctx, types.Note{ID: "n2", SessionID: "s2", Text: "two"})
	require.NoError(t, err)

	page, err := mirror.FetchPage(ctx, "s1", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Notes, 1)
	assert.Equal(t, "n1", page.Notes[0].ID)
}

func TestLocalMirrorCorruptCacheFailsOpen(t *testing.T) {
	dir := t.TempDir()
	mirror := NewLocalMirror(storage.New(dir))
	ctx := context.Background()

	path := filepath.Join(dir, "notes", "chat-s1-notes.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	page, err := mirror.FetchPage(ctx, "s1", 1, 10)
	require.NoError(t, err, "corruption is not fatal")
	assert.Empty(t, page.Notes)

	// Writes start a fresh collection over the corrupt file.
	_, err = mirror.Create(ctx, types.Note{ID: "n1", SessionID: "s1", Text: "fresh"})
	require.NoError(t, err)

	page, err = mirror.FetchPage(ctx, "s1", 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Notes, 1)

	require.NoError(t, mirror.Delete(ctx, "s1", "missing"), "deleting an absent note is a no-op")
}
