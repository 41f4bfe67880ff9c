// Package types provides the core data types for the multichat orchestrator.
package types

// SessionStatus is the lifecycle state of a chat session.
type SessionStatus string

const (
	StatusIdle      SessionStatus = "idle"
	StatusSubmitted SessionStatus = "submitted"
	StatusStreaming SessionStatus = "streaming"
	StatusDone      SessionStatus = "done"
	StatusError     SessionStatus = "error"
)

// Session represents one independent conversation bound to a model deployment.
type Session struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	DeploymentID string        `json:"deploymentID,omitempty"`
	Settings     Settings      `json:"settings"`
	Status       SessionStatus `json:"status"`
	Disabled     bool          `json:"disabled,omitempty"`
	TotalTokens  int           `json:"totalTokens"`
	Time         SessionTime   `json:"time"`
}

// SessionTime contains timestamps for a session.
type SessionTime struct {
	Created int64  `json:"created"`
	Updated *int64 `json:"updated,omitempty"`
}

// ContextOverflowPolicy controls what happens when the conversation
// exceeds the deployment's context length.
type ContextOverflowPolicy string

const (
	OverflowTruncateMiddle ContextOverflowPolicy = "truncateMiddle"
	OverflowRollingWindow  ContextOverflowPolicy = "rollingWindow"
	OverflowStopAtLimit    ContextOverflowPolicy = "stopAtLimit"
)

// Settings holds per-session generation parameters. Each session owns its
// own copy; a Settings value is never shared by reference across sessions.
type Settings struct {
	Temperature         float64               `json:"temperature"`
	LimitResponseLength bool                  `json:"limitResponseLength"`
	SequenceLength      int                   `json:"sequenceLength"`
	TopKSampling        int                   `json:"topKSampling"`
	TopPSampling        float64               `json:"topPSampling"`
	RepeatPenalty       float64               `json:"repeatPenalty"`
	MinPSampling        float64               `json:"minPSampling"`
	StopStrings         []string              `json:"stopStrings,omitempty"`
	ContextOverflow     ContextOverflowPolicy `json:"contextOverflow"`
}

// DefaultSettings returns the settings a newly created session starts with.
func DefaultSettings() Settings {
	return Settings{
		Temperature:         0.7,
		LimitResponseLength: false,
		SequenceLength:      2048,
		TopKSampling:        40,
		TopPSampling:        0.95,
		RepeatPenalty:       1.1,
		MinPSampling:        0.05,
		ContextOverflow:     OverflowTruncateMiddle,
	}
}

// Clone returns a deep copy of the settings. StopStrings is copied so the
// clone never aliases the original's slice.
func (s Settings) Clone() Settings {
	out := s
	if s.StopStrings != nil {
		out.StopStrings = make([]string, len(s.StopStrings))
		copy(out.StopStrings, s.StopStrings)
	}
	return out
}
