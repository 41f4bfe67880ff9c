package types

// Usage contains post-completion metrics for one exchange, as delivered by
// the inference endpoint's closing event.
type Usage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	E2ELatency   float64 `json:"e2e_latency"` // seconds
	TTFT         float64 `json:"ttft"`        // time to first token, seconds
	TPOT         float64 `json:"tpot"`        // time per output token, seconds
	TokenPerSec  float64 `json:"token_per_sec"`
}

// Completion is the result value of a finished stream. Callers branch on it
// instead of chaining completion callbacks.
type Completion struct {
	Usage        Usage  `json:"usage"`
	FinishReason string `json:"finishReason"`
}

// UsageRecord is the payload accepted by the telemetry collaborator.
// Delivery is fire-and-forget; no response contract is relied upon.
type UsageRecord struct {
	ChatSessionID string  `json:"chat_session_id"`
	DeploymentID  string  `json:"deployment_id"`
	E2ELatency    float64 `json:"e2e_latency"`
	InputTokens   int     `json:"input_tokens"`
	IsCache       bool    `json:"is_cache"`
	OutputTokens  int     `json:"output_tokens"`
	Prompt        string  `json:"prompt"`
	Response      string  `json:"response"`
	TokenPerSec   float64 `json:"token_per_sec"`
	TotalTokens   int     `json:"total_tokens"`
	TPOT          float64 `json:"tpot"`
	TTFT          float64 `json:"ttft"`
}
