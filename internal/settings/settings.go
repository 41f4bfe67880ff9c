// Package settings validates and commits per-session generation settings.
// Updates take effect locally and synchronously; backend persistence is
// fire-and-forget and never blocks the caller.
package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/multichat-ai/multichat/internal/logging"
	"github.com/multichat-ai/multichat/pkg/types"
)

// Field identifies one settings field.
type Field string

const (
	FieldTemperature         Field = "temperature"
	FieldLimitResponseLength Field = "limit_response_length"
	FieldSequenceLength      Field = "sequence_length"
	FieldTopKSampling        Field = "top_k_sampling"
	FieldTopPSampling        Field = "top_p_sampling"
	FieldRepeatPenalty       Field = "repeat_penalty"
	FieldMinPSampling        Field = "min_p_sampling"
	FieldStopStrings         Field = "stop_strings"
	FieldContextOverflow     Field = "context_overflow_policy"
)

// Range contracts per field.
const (
	MinTemperature   = 0.1
	MaxTemperature   = 1.0
	MinSamplingP     = 0.01
	MaxSamplingP     = 1.0
	MinRepeatPenalty = 1.0
	MaxRepeatPenalty = 2.0
)

// ValidationError is a locally rejected settings value. It never reaches
// the network.
type ValidationError struct {
	Field   Field
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field Field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Apply validates value against the field's contract and commits it into s.
// The caller passes the session's own Settings; nothing here can reach
// another session's copy.
func Apply(s *types.Settings, field Field, value any) error {
	switch field {
	case FieldTemperature:
		v, ok := toFloat(value)
		if !ok || v < MinTemperature || v > MaxTemperature {
			return invalid(field, "must be a number in [%.1f, %.1f]", MinTemperature, MaxTemperature)
		}
		s.Temperature = v

	case FieldLimitResponseLength:
		v, ok := value.(bool)
		if !ok {
			return invalid(field, "must be a boolean")
		}
		s.LimitResponseLength = v

	case FieldSequenceLength:
		v, ok := toInt(value)
		if !ok || v < 1 {
			return invalid(field, "must be a positive integer")
		}
		s.SequenceLength = v

	case FieldTopKSampling:
		v, ok := toInt(value)
		if !ok || v < 1 {
			return invalid(field, "must be a positive integer")
		}
		s.TopKSampling = v

	case FieldTopPSampling:
		v, ok := toFloat(value)
		if !ok || v < MinSamplingP || v > MaxSamplingP {
			return invalid(field, "must be a number in [%.2f, %.2f]", MinSamplingP, MaxSamplingP)
		}
		s.TopPSampling = v

	case FieldMinPSampling:
		v, ok := toFloat(value)
		if !ok || v < MinSamplingP || v > MaxSamplingP {
			return invalid(field, "must be a number in [%.2f, %.2f]", MinSamplingP, MaxSamplingP)
		}
		s.MinPSampling = v

	case FieldRepeatPenalty:
		v, ok := toFloat(value)
		if !ok || v < MinRepeatPenalty || v > MaxRepeatPenalty {
			return invalid(field, "must be a number in [%.1f, %.1f]", MinRepeatPenalty, MaxRepeatPenalty)
		}
		s.RepeatPenalty = v

	case FieldStopStrings:
		v, ok := value.([]string)
		if !ok {
			return invalid(field, "must be a list of strings")
		}
		s.StopStrings = dedupe(v)

	case FieldContextOverflow:
		v, ok := value.(types.ContextOverflowPolicy)
		if !ok {
			if str, isStr := value.(string); isStr {
				v = types.ContextOverflowPolicy(str)
				ok = true
			}
		}
		if !ok {
			return invalid(field, "must be an overflow policy")
		}
		switch v {
		case types.OverflowTruncateMiddle, types.OverflowRollingWindow, types.OverflowStopAtLimit:
			s.ContextOverflow = v
		default:
			return invalid(field, "unknown policy %q", v)
		}

	default:
		return invalid(field, "unknown field")
	}

	return nil
}

// dedupe preserves first-occurrence order while enforcing set semantics.
func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Persister saves a session's settings to a backend.
type Persister interface {
	SaveSettings(ctx context.Context, sessionID string, s types.Settings) error
}

// Synchronizer commits settings changes into a session's own Settings
// sub-object and mirrors them to an optional backend off the hot path.
type Synchronizer struct {
	persister Persister
}

// NewSynchronizer creates a synchronizer. persister may be nil for
// local-only operation.
func NewSynchronizer(persister Persister) *Synchronizer {
	return &Synchronizer{persister: persister}
}

// UpdateField validates and commits one field change into the session's
// settings. The local update is synchronous; persistence happens in the
// background and its failure is swallowed after logging.
func (y *Synchronizer) UpdateField(ctx context.Context, session *types.Session, field Field, value any) error {
	if err := Apply(&session.Settings, field, value); err != nil {
		return err
	}

	if y.persister != nil {
		go y.persist(session.ID, session.Settings.Clone())
	}

	return nil
}

// persist retries briefly, then drops the write. Settings persistence is
// best-effort and must never surface as a UI-blocking error.
func (y *Synchronizer) persist(sessionID string, snapshot types.Settings) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 10 * time.Second

	op := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return y.persister.SaveSettings(ctx, sessionID, snapshot)
	}

	if err := backoff.Retry(op, backoff.WithMaxRetries(b, 3)); err != nil {
		logging.Warn().
			Err(err).
			Str("sessionID", sessionID).
			Msg("settings persistence failed, keeping local value")
	}
}
