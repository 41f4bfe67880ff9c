package types

// Message represents either a user or assistant message in a conversation.
// Messages are immutable once appended, except for in-place growth of the
// in-flight assistant message while a stream is being received.
type Message struct {
	ID        string      `json:"id"`
	SessionID string      `json:"sessionID"`
	Role      string      `json:"role"` // "user" | "assistant"
	Content   string      `json:"content"`
	Time      MessageTime `json:"time"`

	// Assistant-specific fields
	DeploymentID string        `json:"deploymentID,omitempty"`
	Finish       *string       `json:"finish,omitempty"`
	Usage        *Usage        `json:"usage,omitempty"`
	Error        *MessageError `json:"error,omitempty"`
}

// MessageTime contains timestamps for a message.
type MessageTime struct {
	Created int64  `json:"created"`
	Updated *int64 `json:"updated,omitempty"`
}

// MessageError records why an assistant turn failed. Kind follows the
// stream error taxonomy so the UI can decide whether to offer a retry.
type MessageError struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}
