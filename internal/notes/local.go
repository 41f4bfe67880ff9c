package notes

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/multichat-ai/multichat/internal/logging"
	"github.com/multichat-ai/multichat/internal/storage"
	"github.com/multichat-ai/multichat/pkg/types"
)

// LocalMirror stores each session's entire note collection under a
// session-scoped cache key in local storage. A corrupted or unparsable
// cache is treated as an empty collection, never as a fatal error.
//
// Mutations load, modify and rewrite the whole collection, so they
// serialize per session; concurrent background persists never overwrite
// each other's notes.
type LocalMirror struct {
	store *storage.Storage

	mu       sync.Mutex
	sessions map[string]*sync.Mutex
}

// NewLocalMirror creates a local notes store on top of storage.
func NewLocalMirror(store *storage.Storage) *LocalMirror {
	return &LocalMirror{
		store:    store,
		sessions: make(map[string]*sync.Mutex),
	}
}

// sessionLock returns the mutex guarding one session's collection.
func (l *LocalMirror) sessionLock(sessionID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.sessions[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		l.sessions[sessionID] = lock
	}
	return lock
}

// cacheKey is the session-scoped key the collection lives under.
func cacheKey(sessionID string) []string {
	return []string{"notes", fmt.Sprintf("chat-%s-notes", sessionID)}
}

// load reads the collection, failing open on corruption.
func (l *LocalMirror) load(ctx context.Context, sessionID string) []types.Note {
	var collection []types.Note
	err := l.store.Get(ctx, cacheKey(sessionID), &collection)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logging.Warn().
				Err(err).
				Str("sessionID", sessionID).
				Msg("corrupted notes cache, starting empty")
		}
		return nil
	}
	return collection
}

func (l *LocalMirror) save(ctx context.Context, sessionID string, collection []types.Note) error {
	return l.store.Put(ctx, cacheKey(sessionID), collection)
}

func (l *LocalMirror) FetchPage(ctx context.Context, sessionID string, page, limit int) (*types.NotePage, error) {
	collection := l.load(ctx, sessionID)

	total := len(collection)
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}

	start := (page - 1) * limit
	end := start + limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return &types.NotePage{
		Notes:      append([]types.Note(nil), collection[start:end]...),
		Page:       page,
		TotalPages: totalPages,
		TotalNotes: total,
	}, nil
}

func (l *LocalMirror) Create(ctx context.Context, note types.Note) (*types.Note, error) {
	lock := l.sessionLock(note.SessionID)
	lock.Lock()
	defer lock.Unlock()

	collection := append(l.load(ctx, note.SessionID), note)
	if err := l.save(ctx, note.SessionID, collection); err != nil {
		return nil, err
	}
	return &note, nil
}

func (l *LocalMirror) Update(ctx context.Context, note types.Note) error {
	lock := l.sessionLock(note.SessionID)
	lock.Lock()
	defer lock.Unlock()

	collection := l.load(ctx, note.SessionID)
	for i := range collection {
		if collection[i].ID == note.ID {
			collection[i] = note
			return l.save(ctx, note.SessionID, collection)
		}
	}
	return fmt.Errorf("note %s: %w", note.ID, storage.ErrNotFound)
}

func (l *LocalMirror) Delete(ctx context.Context, sessionID, noteID string) error {
	lock := l.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	collection := l.load(ctx, sessionID)
	for i := range collection {
		if collection[i].ID == noteID {
			collection = append(collection[:i], collection[i+1:]...)
			return l.save(ctx, sessionID, collection)
		}
	}
	return nil
}
