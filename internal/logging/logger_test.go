package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerReportsElapsed(t *testing.T) {
	timer := StartTimer(CategoryAPI, "round-trip")
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, timer.Stop(), 5*time.Millisecond)
}

func TestTimerThresholdStillReturnsElapsed(t *testing.T) {
	timer := StartTimer(CategoryAPI, "round-trip")
	elapsed := timer.StopWithThreshold(time.Hour)
	assert.Less(t, elapsed, time.Hour)
}
