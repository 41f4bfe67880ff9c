package event

import "github.com/multichat-ai/multichat/pkg/types"

// SessionCreatedData is published when the registry allocates a session.
type SessionCreatedData struct {
	Session *types.Session `json:"session"`
}

// SessionUpdatedData is published when a session's status or settings change.
type SessionUpdatedData struct {
	Session *types.Session `json:"session"`
}

// SessionDisabledData is published when a session is superseded.
type SessionDisabledData struct {
	SessionID string `json:"sessionID"`
}

// MessageCreatedData is published when a message is appended to a session.
type MessageCreatedData struct {
	Message *types.Message `json:"message"`
}

// StreamDeltaData carries one incremental chunk of assistant output.
type StreamDeltaData struct {
	SessionID string `json:"sessionID"`
	MessageID string `json:"messageID"`
	Delta     string `json:"delta"`
}

// StreamFinishedData is published once per completed stream.
type StreamFinishedData struct {
	SessionID  string           `json:"sessionID"`
	MessageID  string           `json:"messageID"`
	Completion types.Completion `json:"completion"`
}

// StreamErrorData is published when a stream fails.
type StreamErrorData struct {
	SessionID string `json:"sessionID"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// NoteCreatedData is published when a note is added to a session.
type NoteCreatedData struct {
	Note *types.Note `json:"note"`
}

// NoteUpdatedData is published when a note's text changes.
type NoteUpdatedData struct {
	Note *types.Note `json:"note"`
}

// NoteDeletedData is published when a note is removed, including the
// edited-to-empty path.
type NoteDeletedData struct {
	SessionID string `json:"sessionID"`
	NoteID    string `json:"noteID"`
}
