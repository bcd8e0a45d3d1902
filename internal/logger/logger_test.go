package logger

import (
	"bytes"
	"strings"
	"testing"

	"log/slog"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(nil)
		SetLevel("info")
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel(" WARNING "))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestSetLevelFiltersDebug(t *testing.T) {
	buf := capture(t)

	SetLevel("info")
	Debugf("hidden %d", 1)
	Infof("shown %d", 2)
	assert.NotContains(t, buf.String(), "hidden 1")
	assert.Contains(t, buf.String(), "shown 2")

	buf.Reset()
	SetLevel("debug")
	Debugf("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestInfoBlock(t *testing.T) {
	buf := capture(t)

	InfoBlock("\nsymbols=3\neligible=1\n")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "symbols=3")
	assert.Contains(t, lines[1], "eligible=1")

	buf.Reset()
	InfoBlock("   ")
	assert.Empty(t, buf.String())
}
