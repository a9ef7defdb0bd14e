package logging

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRFC3339Millis(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 123_456_789, time.FixedZone("CET", 3600))
	assert.Equal(t, "2024-03-09T13:05:07.123Z", formatRFC3339Millis(ts))
}

func TestNewWithWriter_DropsEmptyStrings(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, false, true)

	logger.Info("ran query", "user", "", "attempts", 2)

	out := buf.String()
	assert.Contains(t, out, "ran query")
	assert.Contains(t, out, "attempts=2")
	assert.NotContains(t, out, "user=")
}

func TestNewWithWriter_Level(t *testing.T) {
	var quiet, verbose bytes.Buffer
	NewWithWriter(&quiet, false, true).Debug("hidden")
	NewWithWriter(&verbose, true, true).Debug("shown")

	assert.Empty(t, quiet.String())
	assert.Contains(t, verbose.String(), "shown")
}
