package api

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/multichat-ai/multichat/pkg/types"
)

// NotesClient talks to the remote notes collaborator. All operations are
// keyed by session ID; listing is paginated via {page, limit}.
type NotesClient struct {
	http *resty.Client
	url  string
	auth Auth
}

// NewNotesClient creates a remote notes client.
func NewNotesClient(url string, auth Auth) *NotesClient {
	return &NotesClient{
		http: newHTTP(15 * time.Second),
		url:  url,
		auth: auth,
	}
}

type notesListRequest struct {
	SessionID string `json:"sessionID"`
	Page      int    `json:"page"`
	Limit     int    `json:"limit"`
}

// List fetches one page of notes for a session.
func (c *NotesClient) List(ctx context.Context, sessionID string, page, limit int) (*types.NotePage, error) {
	var result types.NotePage

	resp, err := c.auth.apply(c.http.R()).
		SetContext(ctx).
		SetBody(notesListRequest{SessionID: sessionID, Page: page, Limit: limit}).
		SetResult(&result).
		Post(c.url + "/list")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, statusError("list notes", resp.StatusCode(), resp.Body())
	}

	return &result, nil
}

// Create persists a new note. The server may reassign the ID; the confirmed
// note is returned.
func (c *NotesClient) Create(ctx context.Context, note types.Note) (*types.Note, error) {
	var result types.Note

	resp, err := c.auth.apply(c.http.R()).
		SetContext(ctx).
		SetBody(note).
		SetResult(&result).
		Post(c.url + "/create")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, statusError("create note", resp.StatusCode(), resp.Body())
	}

	return &result, nil
}

// Update persists an edited note.
func (c *NotesClient) Update(ctx context.Context, note types.Note) error {
	resp, err := c.auth.apply(c.http.R()).
		SetContext(ctx).
		SetBody(note).
		Post(c.url + "/update")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return statusError("update note", resp.StatusCode(), resp.Body())
	}

	return nil
}

type noteDeleteRequest struct {
	SessionID string `json:"sessionID"`
	NoteID    string `json:"noteID"`
}

// Delete removes a note.
func (c *NotesClient) Delete(ctx context.Context, sessionID, noteID string) error {
	resp, err := c.auth.apply(c.http.R()).
		SetContext(ctx).
		SetBody(noteDeleteRequest{SessionID: sessionID, NoteID: noteID}).
		Post(c.url + "/delete")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return statusError("delete note", resp.StatusCode(), resp.Body())
	}

	return nil
}
