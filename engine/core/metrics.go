package core

// FrameMetrics accumulates per-frame CPU times and recomputes a rolling
// average once per second of accumulated time. The average is what callers
// see between recomputations, so a single slow frame does not make the
// reported figure jitter.
type FrameMetrics struct {
	accumulated float64 // seconds since the average was last recomputed
	frames      int32
	averageMS   float64
}

// Accumulate records one frame's duration in seconds.
func (m *FrameMetrics) Accumulate(frameTime float64) {
	m.accumulated += frameTime
	m.frames++
	if m.accumulated >= 1.0 {
		m.averageMS = (m.accumulated / float64(m.frames)) * 1000.0
		m.accumulated = 0
		m.frames = 0
	}
}

// AverageFrameTime returns the most recently computed average frame time in
// milliseconds. Zero until a full second of frames has been accumulated.
func (m *FrameMetrics) AverageFrameTime() float64 {
	return m.averageMS
}
