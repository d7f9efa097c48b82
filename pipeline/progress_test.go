package pipeline

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_Basic(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10)

	tracker.Start(100)
	assert.True(t, tracker.started, "should be started")

	tracker.Increment(25)
	tracker.Increment(25)
	tracker.Increment(50)

	elapsed := tracker.Elapsed()
	assert.Greater(t, elapsed, time.Duration(0), "elapsed time should be positive")

	output := buf.String()
	assert.Contains(t, output, "100/100", "should show completion")
	assert.Contains(t, output, "100.0%", "should show 100%")
}

func TestProgressTracker_FinishKeepsCount(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10)

	tracker.Start(100)
	tracker.Increment(5)
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "5/100", "a partial run must not report completion")
	assert.True(t, strings.HasSuffix(output, "\n"), "finish should print newline")
	assert.False(t, tracker.started)
}

func TestProgressTracker_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10)

	tracker.Start(0)
	tracker.Finish()

	assert.Contains(t, buf.String(), "0/0", "should handle zero total")
}

func TestProgressTracker_IncrementBeyondTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10)

	tracker.Start(100)
	tracker.Increment(150) // More than total

	assert.Contains(t, buf.String(), "100/100", "should not exceed total")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10)

	// Should not panic when not started
	tracker.Increment(10)
	tracker.Finish()

	assert.Equal(t, "", buf.String(), "should have no output when not started")
	assert.Zero(t, tracker.Elapsed())
}

func TestProgressTracker_ReportInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100) // Report every 100 chunks

	tracker.Start(1000)

	tracker.Increment(50)
	assert.Equal(t, "", buf.String(), "should not print under interval")

	tracker.Increment(50)
	assert.Contains(t, buf.String(), "100/1000", "should print at interval")
	assert.Contains(t, buf.String(), "chunks/s", "should show rate")
}

func TestProgressTracker_MinimumInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 0)

	tracker.Start(3)
	tracker.Increment(1)
	assert.Contains(t, buf.String(), "1/3")
}
