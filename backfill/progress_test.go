package backfill

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_ReportsAtIntervals(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressTracker(&buf, 10, 5)

	p.Start()
	p.Increment(3)
	assert.Empty(t, buf.String(), "below the interval, nothing reports")

	p.Increment(2)
	assert.Contains(t, buf.String(), "5/10")

	p.Finish()
	assert.Contains(t, buf.String(), "10/10")
	assert.Contains(t, buf.String(), "100.0%")
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestProgressTracker_IgnoresUpdatesBeforeStart(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressTracker(&buf, 10, 1)

	p.Increment(5)
	p.Finish()
	assert.Empty(t, buf.String())
	assert.Zero(t, p.Elapsed())
}

func TestProgressTracker_CapsAtTotal(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressTracker(&buf, 4, 1)

	p.Start()
	p.Increment(10)
	assert.Contains(t, buf.String(), "4/4")
}
