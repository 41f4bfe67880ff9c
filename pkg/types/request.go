package types

// RequestMessage is one conversation turn in the inference request body.
type RequestMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// InferenceRequest is the wire body POSTed to the inference endpoint.
// MaxTokens is a pointer so it can be omitted entirely when the response
// length is unbounded.
type InferenceRequest struct {
	Model            string           `json:"model,omitempty"`
	MaxTokens        *int             `json:"max_tokens,omitempty"`
	Temperature      float64          `json:"temperature"`
	TopK             int              `json:"top_k"`
	TopP             float64          `json:"top_p"`
	FrequencyPenalty float64          `json:"frequency_penalty"`
	PresencePenalty  float64          `json:"presence_penalty"`
	Stop             []string         `json:"stop,omitempty"`
	Context          string           `json:"context,omitempty"`
	Messages         []RequestMessage `json:"messages"`
}
