package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multichat-ai/multichat/pkg/types"
)

func TestBuildMapsSettingsFields(t *testing.T) {
	dep := &types.Deployment{ID: "d1", Name: "model-a"}
	settings := types.Settings{
		Temperature:     0.7,
		TopKSampling:    40,
		TopPSampling:    0.95,
		RepeatPenalty:   1.1,
		MinPSampling:    0.05,
		StopStrings:     []string{"END"},
		ContextOverflow: types.OverflowRollingWindow,
	}

	req := Build(dep, settings, []types.RequestMessage{{Role: "user", Content: "hi"}})

	assert.Equal(t, "model-a", req.Model)
	assert.Equal(t, 0.7, req.Temperature)
	assert.Equal(t, 40, req.TopK)
	assert.Equal(t, 0.95, req.TopP)
	assert.Equal(t, 1.1, req.FrequencyPenalty)
	assert.Equal(t, 0.05, req.PresencePenalty)
	assert.Equal(t, []string{"END"}, req.Stop)
	assert.Equal(t, "rollingWindow", req.Context)
	require.Len(t, req.Messages, 1)
}

func TestBuildMaxTokensOnlyWhenLimited(t *testing.T) {
	settings := types.DefaultSettings()
	settings.SequenceLength = 512

	req := Build(nil, settings, nil)
	assert.Nil(t, req.MaxTokens, "unbounded response omits max_tokens")

	settings.LimitResponseLength = true
	req = Build(nil, settings, nil)
	require.NotNil(t, req.MaxTokens)
	assert.Equal(t, 512, *req.MaxTokens)
}

func TestBuildWithoutDeploymentLeavesModelEmpty(t *testing.T) {
	req := Build(nil, types.DefaultSettings(), nil)
	assert.Empty(t, req.Model)
}

func TestBuildIsDeterministic(t *testing.T) {
	dep := &types.Deployment{Name: "model-a"}
	settings := types.DefaultSettings()
	settings.StopStrings = []string{"zzz", "aaa"}

	a := Build(dep, settings, nil)
	b := Build(dep, settings, nil)
	assert.Equal(t, a, b)
	assert.Equal(t, []string{"aaa", "zzz"}, a.Stop, "stop set is ordered canonically")
}

func TestBuildDoesNotAliasSettings(t *testing.T) {
	settings := types.DefaultSettings()
	settings.StopStrings = []string{"END"}

	req := Build(nil, settings, nil)
	req.Stop[0] = "mutated"
	assert.Equal(t, "END", settings.StopStrings[0])
}

func TestMessagesPreservesOrder(t *testing.T) {
	history := []*types.Message{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
		{Role: "user", Content: "three"},
	}

	msgs := Messages(history)
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.Equal(t, "three", msgs[2].Content)
}
