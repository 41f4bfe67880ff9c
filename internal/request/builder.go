// Package request derives the inference request body from a session's
// settings and its selected deployment.
package request

import (
	"sort"

	"github.com/multichat-ai/multichat/pkg/types"
)

// Build derives the provider request body. It is a pure function: identical
// (deployment, settings, messages) inputs always yield a structurally
// identical request, so callers can recompute it on any settings change
// without diff noise.
//
// When deployment is nil the model field stays empty; callers must gate
// submission on a selected deployment. max_tokens is present only when the
// response length is limited.
func Build(deployment *types.Deployment, settings types.Settings, messages []types.RequestMessage) types.InferenceRequest {
	req := types.InferenceRequest{
		Temperature:      settings.Temperature,
		TopK:             settings.TopKSampling,
		TopP:             settings.TopPSampling,
		FrequencyPenalty: settings.RepeatPenalty,
		PresencePenalty:  settings.MinPSampling,
		Context:          string(settings.ContextOverflow),
		Messages:         messages,
	}

	if deployment != nil {
		req.Model = deployment.Name
	}

	if settings.LimitResponseLength {
		limit := settings.SequenceLength
		req.MaxTokens = &limit
	}

	if len(settings.StopStrings) > 0 {
		// Stop strings are a set; sort so equal sets build equal requests.
		stop := make([]string, len(settings.StopStrings))
		copy(stop, settings.StopStrings)
		sort.Strings(stop)
		req.Stop = stop
	}

	return req
}

// Messages converts a session's message history into request turns,
// preserving append order.
func Messages(history []*types.Message) []types.RequestMessage {
	out := make([]types.RequestMessage, 0, len(history))
	for _, msg := range history {
		out = append(out, types.RequestMessage{Role: msg.Role, Content: msg.Content})
	}
	return out
}
