package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewConsoleLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "info"}, &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("computed", zap.Int("evaluated", 3))
	require.NoError(t, log.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "computed")
	assert.Contains(t, out, `"evaluated": 3`)
}

func TestNewDefaultsToWarn(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{}, &buf)
	require.NoError(t, err)
	log.Info("quiet")
	log.Warn("loud")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}

func TestNewJSONAndFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "bnote.log")
	log, err := New(Options{Level: "debug", JSON: true, File: path}, &buf)
	require.NoError(t, err)
	log.Debug("skipped entry")
	require.NoError(t, log.Sync())

	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &line))
	assert.Equal(t, "DEBUG", line["level"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "skipped entry")
}

func TestNewBadLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)
}
