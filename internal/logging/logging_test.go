package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNonTerminalWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false)

	logger.WithField("readings", 3).Info("submitted")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "submitted", entry["msg"])
	assert.Equal(t, float64(3), entry["readings"])
	assert.Equal(t, "info", entry["level"])
}

func TestNewDebugLevel(t *testing.T) {
	var buf bytes.Buffer

	assert.Equal(t, logrus.InfoLevel, New(&buf, false).GetLevel())
	assert.Equal(t, logrus.DebugLevel, New(&buf, true).GetLevel())

	New(&buf, false).Debug("hidden")
	assert.Empty(t, buf.String())
}
