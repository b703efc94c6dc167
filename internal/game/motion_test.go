package game

import (
	"math"
	"testing"
)

// TestMotionIntensity verifies intensity is the magnitude's deviation
// from the gravity baseline.
func TestMotionIntensity(t *testing.T) {
	tests := []struct {
		name   string
		sample MotionSample
		want   float64
	}{
		{"phone at rest", MotionSample{Z: 9.81}, 0},
		{"shaken", MotionSample{Z: 14.81}, 5.0},
		{"free fall", MotionSample{}, 9.81},
		{"flipped phone", MotionSample{Z: -9.81}, 0},
		{"multi axis", MotionSample{X: 3, Y: 4}, 4.81},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.sample.Intensity(9.81)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Expected %g, got %g", tt.want, got)
			}
		})
	}
}

// TestMotionRingWrap verifies the ring keeps the newest samples once
// full.
func TestMotionRingWrap(t *testing.T) {
	r := newMotionRing(3)
	if r.latest() != 0 {
		t.Error("Empty ring should read 0")
	}

	r.push(1)
	r.push(2)
	r.push(3)
	r.push(4) // evicts 1

	if r.latest() != 4 {
		t.Errorf("Expected latest 4, got %g", r.latest())
	}
	if got := r.mean(3); math.Abs(got-3.0) > 1e-9 {
		t.Errorf("Expected mean 3 over the surviving samples, got %g", got)
	}
}

// TestMotionRingMeanWindow verifies the window clamps to what is stored.
func TestMotionRingMeanWindow(t *testing.T) {
	r := newMotionRing(5)
	r.push(10)
	r.push(20)

	if got := r.mean(5); math.Abs(got-15) > 1e-9 {
		t.Errorf("Oversized window should average what exists, got %g", got)
	}
	if got := r.mean(1); math.Abs(got-20) > 1e-9 {
		t.Errorf("Window 1 should read the latest sample, got %g", got)
	}
	if got := r.mean(0); math.Abs(got-15) > 1e-9 {
		t.Errorf("Non-positive window should average everything, got %g", got)
	}
}

// TestMotionRingReset verifies reset empties the ring.
func TestMotionRingReset(t *testing.T) {
	r := newMotionRing(4)
	r.push(7)
	r.push(9)
	r.reset()

	if r.latest() != 0 || r.mean(4) != 0 {
		t.Error("Reset ring should read 0")
	}
}
