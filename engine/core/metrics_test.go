package core

import (
	"testing"
)

func TestMetricsAverage(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(0.016)
	}
	if got := m.FrameTime(); got < 15.99 || got > 16.01 {
		t.Fatalf("FrameTime() = %f, want 16", got)
	}
}

func TestMetricsFPS(t *testing.T) {
	m := NewMetrics()
	// 101 frames of 10ms crosses the one second boundary once.
	for i := 0; i < 101; i++ {
		m.Update(0.010)
	}
	if got := m.FPS(); got != 100 {
		t.Fatalf("FPS() = %f, want 100", got)
	}
}
