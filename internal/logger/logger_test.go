package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_IncludesStackAndServiceOnError(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "test-service", "info", false)
	log.Error().Stack().Err(errors.New("boom")).Msg("something failed")

	var payload map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload), buf.String())
	assert.Equal(t, "test-service", payload["service"])
	assert.Equal(t, "boom", payload["error"])
	assert.NotEmpty(t, payload["stack"])
}

func TestLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "svc", "warn", false)
	log.Info().Msg("dropped")
	assert.Zero(t, buf.Len())
	log.Warn().Msg("kept")
	assert.Contains(t, buf.String(), "kept")

	buf.Reset()
	fallback := New(&buf, "svc", "nonsense", false)
	fallback.Info().Msg("defaults to info")
	assert.Contains(t, buf.String(), "defaults to info")
}
