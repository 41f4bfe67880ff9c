// Package notes implements per-session annotation storage and pagination.
// Two store backends exist: RemotePaged (the notes collaborator endpoint)
// and LocalMirror (a session-scoped cache in local storage). They are
// alternative pluggable backends selected by configuration, never combined.
package notes

import (
	"context"

	"github.com/multichat-ai/multichat/pkg/types"
)

// Store is the persistence boundary for notes. All operations are keyed by
// session ID.
type Store interface {
	// FetchPage returns one page of the session's notes along with the
	// current totals.
	FetchPage(ctx context.Context, sessionID string, page, limit int) (*types.NotePage, error)

	// Create persists a new note and returns the confirmed note. The store
	// may reassign the provisional client-generated ID.
	Create(ctx context.Context, note types.Note) (*types.Note, error)

	// Update persists an edited note.
	Update(ctx context.Context, note types.Note) error

	// Delete removes a note.
	Delete(ctx context.Context, sessionID, noteID string) error
}
