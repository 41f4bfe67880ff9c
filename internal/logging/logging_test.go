package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"DEBUG":   DebugLevel,
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"warn":    WarnLevel,
		"WARNING": WarnLevel,
		"error":   ErrorLevel,
		"FATAL":   FatalLevel,
		"bogus":   InfoLevel,
		"":        InfoLevel,
		" info ":  InfoLevel,
	}

	for input, want := range cases {
		assert.Equal(t, want, ParseLevel(input), "input %q", input)
	}
}

func TestInitWritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: DebugLevel, Output: &buf})
	defer Init(DefaultConfig())

	Info().Str("sessionID", "s1").Msg("stream finished")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "stream finished", entry["message"])
	assert.Equal(t, "s1", entry["sessionID"])
	assert.Equal(t, "info", entry["level"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: ErrorLevel, Output: &buf})
	defer Init(DefaultConfig())

	Debug().Msg("hidden")
	Warn().Msg("hidden too")
	assert.Zero(t, buf.Len())

	Error().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}
