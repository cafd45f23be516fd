package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_LevelFallback(t *testing.T) {
	defer Configure("info", "json")

	Configure("debug", "json")
	assert.Equal(t, logrus.DebugLevel, Logger.GetLevel())

	Configure("chatty", "json")
	assert.Equal(t, logrus.InfoLevel, Logger.GetLevel())
}

func TestWithFields_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&bytes.Buffer{})
	Configure("info", "json")

	WithFields(logrus.Fields{"session_id": "abc", "kind": "text"}).Info("verification completed")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "verification completed", line["msg"])
	assert.Equal(t, "abc", line["session_id"])
	assert.Equal(t, "text", line["kind"])
}
