package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, DebugLevel, l)

	l, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, InfoLevel, l)

	_, err = ParseLevel("trace")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	t.Run("Should write JSON records with context fields", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(Config{Level: InfoLevel, Output: &buf, JSON: true}).With("run", "r1")
		log.Info("converted", "documents", 2)

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "converted", rec["msg"])
		assert.Equal(t, "r1", rec["run"])
		assert.EqualValues(t, 2, rec["documents"])
	})

	t.Run("Should filter below the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		log := New(Config{Level: WarnLevel, Output: &buf})
		log.Info("hidden")
		assert.Zero(t, buf.Len())
		log.Warn("shown")
		assert.Contains(t, buf.String(), "shown")
	})
}
