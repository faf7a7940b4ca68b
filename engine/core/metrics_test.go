package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameMetricsRecomputesOncePerSecond(t *testing.T) {
	m := &FrameMetrics{}

	// Half a second of 10ms frames: no average yet.
	for i := 0; i < 50; i++ {
		m.Accumulate(0.010)
	}
	assert.Equal(t, 0.0, m.AverageFrameTime())

	// Crossing the one second mark recomputes.
	for i := 0; i < 50; i++ {
		m.Accumulate(0.010)
	}
	assert.InDelta(t, 10.0, m.AverageFrameTime(), 0.001)
}

func TestFrameMetricsAverageStableBetweenRecomputes(t *testing.T) {
	m := &FrameMetrics{}
	for i := 0; i < 100; i++ {
		m.Accumulate(0.010)
	}
	got := m.AverageFrameTime()

	// A slow frame mid-window must not change the reported average.
	m.Accumulate(0.200)
	assert.Equal(t, got, m.AverageFrameTime())
}
