package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"viola-chatbot/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelpersAreSafeBeforeInit(t *testing.T) {
	prev := Logger
	Logger = nil
	defer func() { Logger = prev }()

	assert.NotPanics(t, func() {
		Info("info")
		Warn("warn")
		Error("error")
		Debug("debug")
	})
}

func TestInitLogger_ReleaseModeSkipsDebug(t *testing.T) {
	prev := Logger
	defer func() { Logger = prev }()

	var buf bytes.Buffer
	initWithWriter(&config.Config{GinMode: "release", ServiceName: "viola-test"}, &buf)

	Debug("hidden")
	Info("chunk dropped", "index", 3)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "chunk dropped", entry["msg"])
	assert.Equal(t, "viola-test", entry["service"])
	assert.EqualValues(t, 3, entry["index"])
}
