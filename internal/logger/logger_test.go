package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTo(t *testing.T) {
	defer InitTo(&bytes.Buffer{})

	var buf bytes.Buffer
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	InitTo(&buf)
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())

	Log.WithField("session", "abc").Debug("hello")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "abc", entry["session"])

	t.Setenv("LOG_LEVEL", "loud")
	t.Setenv("LOG_FORMAT", "")
	InitTo(&buf)
	assert.Equal(t, logrus.InfoLevel, Log.GetLevel(), "bad level falls back to info")
}
