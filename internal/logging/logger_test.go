package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		wantErr  bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestLevelThreshold(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(LevelWarn, &buf)

	l.Debug("hidden %d", 1)
	l.Info("hidden %d", 2)
	l.Warn("sheet %q flagged", "Claims")
	l.Error("boom")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `[WARN] sheet "Claims" flagged`)
	assert.Contains(t, out, "[ERROR] boom")
}

func TestLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "claimloader.log")

	l, err := New(LevelInfo, path)
	require.NoError(t, err)
	l.out, l.errOut = &bytes.Buffer{}, &bytes.Buffer{}

	l.Info("to file")
	require.NoError(t, l.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "[INFO] to file")
}
