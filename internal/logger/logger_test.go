package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)

	mu.Lock()
	original := output
	output = buf
	mu.Unlock()
	reconfigure()

	t.Cleanup(func() {
		mu.Lock()
		output = original
		mu.Unlock()
		reconfigure()
	})
	return buf
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("WARN")
	SetFormat("text")

	Debug("should not appear")
	Info("should not appear either")
	Warn("this should appear", "key", "value")

	out := buf.String()
	require.NotContains(t, out, "should not appear")
	require.Contains(t, out, "this should appear")
}

func TestJSONFormat(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("DEBUG")
	SetFormat("json")

	Info("hello", "n", 42)

	line := strings.TrimSpace(buf.String())
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &decoded))
	require.Equal(t, "hello", decoded["msg"])
	require.Equal(t, float64(42), decoded["n"])
}

func TestSetLevelIgnoresInvalid(t *testing.T) {
	SetLevel("INFO")
	before := currentLevel.Load()
	SetLevel("NOT-A-LEVEL")
	require.Equal(t, before, currentLevel.Load())
}
