package notes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/multichat-ai/multichat/internal/event"
	"github.com/multichat-ai/multichat/internal/logging"
	"github.com/multichat-ai/multichat/pkg/types"
)

// DefaultPageLimit is the page size requested from the store.
const DefaultPageLimit = 20

// DefaultRowHeightEstimate is the assumed rendered height of one note row,
// used by the scroll-triggered pagination rule.
const DefaultRowHeightEstimate = 32.0

// Paginator manages one session's note collection: cursor-based fetching,
// scroll-triggered pagination, and optimistic create/update/delete with
// fire-and-forget persistence.
type Paginator struct {
	store     Store
	sessionID string
	limit     int
	rowHeight float64

	mu       sync.Mutex
	notes    []types.Note
	cursor   types.NoteCursor
	inflight map[int]bool
}

// NewPaginator creates a paginator for one session.
func NewPaginator(store Store, sessionID string) *Paginator {
	return &Paginator{
		store:     store,
		sessionID: sessionID,
		limit:     DefaultPageLimit,
		rowHeight: DefaultRowHeightEstimate,
		inflight:  make(map[int]bool),
	}
}

// FetchPage loads one page and appends its notes to the local collection.
// Requesting a page beyond the known total is an error; a fetch already in
// flight for the same page is a no-op.
func (p *Paginator) FetchPage(ctx context.Context, page int) error {
	p.mu.Lock()
	if page < 1 {
		p.mu.Unlock()
		return fmt.Errorf("invalid page %d", page)
	}
	if p.cursor.TotalPages > 0 && page > p.cursor.TotalPages {
		p.mu.Unlock()
		return fmt.Errorf("page %d beyond total %d", page, p.cursor.TotalPages)
	}
	if p.inflight[page] {
		p.mu.Unlock()
		return nil
	}
	p.inflight[page] = true
	p.mu.Unlock()

	return p.fetch(ctx, page)
}

// fetch performs the store call for a page already marked in flight.
func (p *Paginator) fetch(ctx context.Context, page int) error {
	result, err := p.store.FetchPage(ctx, p.sessionID, page, p.limit)

	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, page)

	if err != nil {
		return err
	}

	p.notes = append(p.notes, result.Notes...)
	if page > p.cursor.CurrentPage {
		p.cursor.CurrentPage = page
	}
	p.cursor.TotalPages = result.TotalPages
	p.cursor.TotalNotes = result.TotalNotes

	return nil
}

// HandleScroll applies the scroll-triggered pagination rule: when the
// viewport has scrolled past the loaded rows and more notes exist, request
// the next page exactly once. Returns true when a fetch was issued.
func (p *Paginator) HandleScroll(ctx context.Context, scrollTop float64) bool {
	p.mu.Lock()
	loaded := len(p.notes)
	next := p.cursor.CurrentPage + 1

	shouldFetch := scrollTop > float64(loaded)*p.rowHeight &&
		loaded < p.cursor.TotalNotes &&
		p.cursor.CurrentPage < p.cursor.TotalPages

	if !shouldFetch || p.inflight[next] {
		p.mu.Unlock()
		return false
	}
	p.inflight[next] = true
	p.mu.Unlock()

	if err := p.fetch(ctx, next); err != nil {
		logging.Warn().
			Err(err).
			Str("sessionID", p.sessionID).
			Int("page", next).
			Msg("notes page fetch failed")
		return false
	}
	return true
}

// CreateNote assigns an ID immediately and adds the note to the collection.
// In remote mode the ID is provisional until the store confirms; the
// backend write happens off the hot path.
func (p *Paginator) CreateNote(ctx context.Context, text string) *types.Note {
	note := types.Note{
		ID:        uuid.NewString(),
		SessionID: p.sessionID,
		Text:      text,
		CreatedAt: time.Now().UnixMilli(),
	}

	p.mu.Lock()
	p.notes = append(p.notes, note)
	p.cursor.TotalNotes++
	p.mu.Unlock()

	event.Publish(event.Event{Type: event.NoteCreated, Data: event.NoteCreatedData{Note: &note}})

	go p.confirmCreate(note)

	return &note
}

// confirmCreate persists the note and reconciles a server-assigned ID.
func (p *Paginator) confirmCreate(note types.Note) {
	var confirmed *types.Note
	err := p.persist("create note", func(ctx context.Context) error {
		var err error
		confirmed, err = p.store.Create(ctx, note)
		return err
	})
	if err != nil || confirmed == nil || confirmed.ID == note.ID {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.notes {
		if p.notes[i].ID == note.ID {
			p.notes[i].ID = confirmed.ID
			p.notes[i].Page = confirmed.Page
			break
		}
	}
}

// UpdateNote commits an edited note. Editing a note to empty text deletes
// it instead of saving a zero-length note.
func (p *Paginator) UpdateNote(ctx context.Context, noteID, text string) error {
	if text == "" {
		return p.deleteNote(noteID)
	}

	p.mu.Lock()
	var updated *types.Note
	for i := range p.notes {
		if p.notes[i].ID == noteID {
			p.notes[i].Text = text
			copied := p.notes[i]
			updated = &copied
			break
		}
	}
	p.mu.Unlock()

	if updated == nil {
		return fmt.Errorf("note %s not found", noteID)
	}

	event.Publish(event.Event{Type: event.NoteUpdated, Data: event.NoteUpdatedData{Note: updated}})

	note := *updated
	go func() {
		_ = p.persist("update note", func(ctx context.Context) error {
			return p.store.Update(ctx, note)
		})
	}()

	return nil
}

func (p *Paginator) deleteNote(noteID string) error {
	p.mu.Lock()
	found := false
	for i := range p.notes {
		if p.notes[i].ID == noteID {
			p.notes = append(p.notes[:i], p.notes[i+1:]...)
			p.cursor.TotalNotes--
			found = true
			break
		}
	}
	p.mu.Unlock()

	if !found {
		return fmt.Errorf("note %s not found", noteID)
	}

	event.Publish(event.Event{Type: event.NoteDeleted, Data: event.NoteDeletedData{SessionID: p.sessionID, NoteID: noteID}})

	go func() {
		_ = p.persist("delete note", func(ctx context.Context) error {
			return p.store.Delete(ctx, p.sessionID, noteID)
		})
	}()

	return nil
}

// persist retries a backend write briefly and swallows the failure after
// logging. Note persistence never blocks or breaks the visible chat flow.
func (p *Paginator) persist(what string, op func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 10 * time.Second

	err := backoff.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return op(ctx)
	}, backoff.WithMaxRetries(b, 3))

	if err != nil {
		logging.Warn().
			Err(err).
			Str("sessionID", p.sessionID).
			Msg(what + " persistence failed")
	}
	return err
}

// Notes returns a copy of the loaded collection.
func (p *Paginator) Notes() []types.Note {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]types.Note(nil), p.notes...)
}

// Cursor returns the current pagination cursor.
func (p *Paginator) Cursor() types.NoteCursor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}
