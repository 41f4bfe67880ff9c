package notes

import (
	"context"

	"github.com/multichat-ai/multichat/internal/api"
	"github.com/multichat-ai/multichat/pkg/types"
)

// RemotePaged stores notes through the notes collaborator endpoint.
type RemotePaged struct {
	client *api.NotesClient
}

// NewRemotePaged creates a remote notes store.
func NewRemotePaged(client *api.NotesClient) *RemotePaged {
	return &RemotePaged{client: client}
}

func (r *RemotePaged) FetchPage(ctx context.Context, sessionID string, page, limit int) (*types.NotePage, error) {
	return r.client.List(ctx, sessionID, page, limit)
}

func (r *RemotePaged) Create(ctx context.Context, note types.Note) (*types.Note, error) {
	return r.client.Create(ctx, note)
}

func (r *RemotePaged) Update(ctx context.Context, note types.Note) error {
	return r.client.Update(ctx, note)
}

func (r *RemotePaged) Delete(ctx context.Context, sessionID, noteID string) error {
	return r.client.Delete(ctx, sessionID, noteID)
}
