package types

// Note is a free-text annotation attached to a session. Page membership is
// assigned by the server when notes are paginated remotely.
type Note struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionID"`
	Text      string `json:"text"`
	Page      int    `json:"page,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// NoteCursor tracks pagination state for one session's notes. It belongs to
// the session's paginator, not to individual notes.
type NoteCursor struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalNotes  int `json:"totalNotes"`
}

// NotePage is one page of notes returned by a store.
type NotePage struct {
	Notes      []Note `json:"notes"`
	Page       int    `json:"page"`
	TotalPages int    `json:"totalPages"`
	TotalNotes int    `json:"totalNotes"`
}
