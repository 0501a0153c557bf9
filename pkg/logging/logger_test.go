package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	logger := Setup(Config{Level: "warn", Output: &buf})
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	logger.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	logger.Warn().Str("k", "v").Msg("shown")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "v", entry["k"])
	assert.Contains(t, entry, "time")
}

func TestSetup_InvalidLevelFallsBackToInfo(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	Setup(Config{Level: "loud", Output: &bytes.Buffer{}})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestConfigFor(t *testing.T) {
	assert.False(t, ConfigFor("debug", "json").Pretty)
	assert.True(t, ConfigFor("debug", "pretty").Pretty)
	assert.Equal(t, "debug", ConfigFor("debug", "JSON").Level)
}

func TestFromContext(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	Setup(Config{Level: "info", Output: &buf})

	ctx := WithInstrument(WithRequestID(context.Background(), "req-1"), "BTC-USD")
	logger := FromContext(ctx)
	logger.Info().Msg("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-1", entry[FieldRequestID])
	assert.Equal(t, "BTC-USD", entry[FieldInstrument])
}
