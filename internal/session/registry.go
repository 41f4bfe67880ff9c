package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/multichat-ai/multichat/internal/event"
	"github.com/multichat-ai/multichat/internal/logging"
	"github.com/multichat-ai/multichat/internal/storage"
	"github.com/multichat-ai/multichat/pkg/types"
)

// DefaultName is the name a newly created session starts with.
const DefaultName = "New Chat"

// Saver persists session and message snapshots. Persistence is best-effort
// and never blocks or fails a session operation.
type Saver interface {
	SaveSession(sess *types.Session)
	SaveMessage(msg *types.Message)
	DeleteSession(sessionID string)
}

// Registry owns the ordered session collection. The list is copy-on-write:
// readers get a stable snapshot, structural changes swap in a new slice.
type Registry struct {
	mu   sync.Mutex
	byID map[string]*ChatSession
	list []*ChatSession

	streamer Streamer
	recorder UsageRecorder
	saver    Saver
}

// NewRegistry creates an empty registry. recorder and saver may be nil.
func NewRegistry(streamer Streamer, recorder UsageRecorder, saver Saver) *Registry {
	return &Registry{
		byID:     make(map[string]*ChatSession),
		streamer: streamer,
		recorder: recorder,
		saver:    saver,
	}
}

// Create allocates a new idle session with default settings and no selected
// deployment. It works from an empty registry; this is how the first
// session comes to exist.
func (r *Registry) Create(ctx context.Context) *ChatSession {
	sess := &types.Session{
		ID:       generateID(),
		Name:     DefaultName,
		Settings: types.DefaultSettings(),
		Status:   types.StatusIdle,
		Time:     types.SessionTime{Created: time.Now().UnixMilli()},
	}

	cs := newChatSession(sess, r.streamer, r.recorder, r.saver)

	r.mu.Lock()
	r.byID[sess.ID] = cs
	next := make([]*ChatSession, len(r.list)+1)
	copy(next, r.list)
	next[len(r.list)] = cs
	r.list = next
	r.mu.Unlock()

	snap := cs.Snapshot()
	event.Publish(event.Event{Type: event.SessionCreated, Data: event.SessionCreatedData{Session: &snap}})
	if r.saver != nil {
		go r.saver.SaveSession(&snap)
	}

	return cs
}

// Default returns the first enabled session, creating one when the registry
// is empty or holds only disabled sessions.
func (r *Registry) Default(ctx context.Context) *ChatSession {
	r.mu.Lock()
	for _, cs := range r.list {
		if !cs.Snapshot().Disabled {
			r.mu.Unlock()
			return cs
		}
	}
	r.mu.Unlock()

	return r.Create(ctx)
}

// Get looks a session up by id in O(1).
func (r *Registry) Get(id string) (*ChatSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.byID[id]
	return cs, ok
}

// List returns the ordered session snapshot. The returned slice is never
// mutated after publication; callers may iterate it freely while the
// registry changes underneath.
func (r *Registry) List() []*ChatSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list
}

// Disable marks a session inactive without removing its history. Any
// in-flight stream is stopped so no reader goroutine outlives the session.
func (r *Registry) Disable(ctx context.Context, id string) error {
	r.mu.Lock()
	cs, ok := r.byID[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %s: %w", id, storage.ErrNotFound)
	}

	cs.Stop()

	cs.mu.Lock()
	cs.session.Disabled = true
	cs.touchLocked()
	snap := *cs.session
	cs.mu.Unlock()

	event.Publish(event.Event{Type: event.SessionDisabled, Data: event.SessionDisabledData{SessionID: id}})
	if r.saver != nil {
		go r.saver.SaveSession(&snap)
	}

	return nil
}

// Delete removes a session and its persisted history. Only explicit user
// deletion goes through here; superseding a session uses Disable.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	cs, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("session %s: %w", id, storage.ErrNotFound)
	}
	delete(r.byID, id)

	next := make([]*ChatSession, 0, len(r.list)-1)
	for _, entry := range r.list {
		if entry != cs {
			next = append(next, entry)
		}
	}
	r.list = next
	r.mu.Unlock()

	cs.Stop()

	if r.saver != nil {
		go r.saver.DeleteSession(id)
	}

	return nil
}

// StorageSaver persists snapshots through file storage, retrying briefly
// and logging the failure. It never surfaces an error to the caller.
type StorageSaver struct {
	store *storage.Storage
}

// NewStorageSaver creates a saver over file storage.
func NewStorageSaver(store *storage.Storage) *StorageSaver {
	return &StorageSaver{store: store}
}

func (s *StorageSaver) SaveSession(sess *types.Session) {
	err := retryBriefly(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.store.Put(ctx, []string{"session", sess.ID}, sess)
	})
	if err != nil {
		logging.Warn().Err(err).Str("sessionID", sess.ID).Msg("session snapshot failed")
	}
}

func (s *StorageSaver) SaveMessage(msg *types.Message) {
	err := retryBriefly(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.store.Put(ctx, []string{"message", msg.SessionID, msg.ID}, msg)
	})
	if err != nil {
		logging.Warn().Err(err).Str("messageID", msg.ID).Msg("message snapshot failed")
	}
}

func (s *StorageSaver) DeleteSession(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.store.Delete(ctx, []string{"session", sessionID}); err != nil {
		logging.Warn().Err(err).Str("sessionID", sessionID).Msg("session delete failed")
	}

	keys, err := s.store.List(ctx, []string{"message", sessionID})
	if err != nil {
		return
	}
	for _, key := range keys {
		_ = s.store.Delete(ctx, []string{"message", sessionID, key})
	}
}

// LoadMessages restores a session's persisted history in creation order.
func (s *StorageSaver) LoadMessages(ctx context.Context, sessionID string) ([]*types.Message, error) {
	var messages []*types.Message
	err := s.store.Scan(ctx, []string{"message", sessionID}, func(key string, data json.RawMessage) error {
		var msg types.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			return err
		}
		messages = append(messages, &msg)
		return nil
	})
	return messages, err
}

// retryBriefly runs op a few times with exponential backoff.
func retryBriefly(op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 10 * time.Second
	return backoff.Retry(op, backoff.WithMaxRetries(b, 3))
}
