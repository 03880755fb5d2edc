package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(&buf, "warn", FormatJSON)
	require.NoError(t, err)

	log.Info().Msg("dropped")
	clog := Component(log, "orchestrator")
	clog.Warn().Str("factor", "obv").Msg("degraded")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "orchestrator", entry["component"])
	assert.Equal(t, "obv", entry["factor"])
	assert.Equal(t, "degraded", entry["message"])
}

func TestNewLogger_InvalidInput(t *testing.T) {
	_, err := NewLogger(nil, "loud", FormatJSON)
	assert.Error(t, err)

	_, err = NewLogger(nil, "info", "xml")
	assert.Error(t, err)
}

func TestComponent_NopParent(t *testing.T) {
	log := Component(zerolog.Nop(), "x")
	assert.Equal(t, zerolog.Disabled, log.GetLevel())
}
