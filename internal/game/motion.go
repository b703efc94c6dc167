package game

import "math"

// MotionSample is one accelerometer reading from a player's device,
// in m/s^2 per axis including gravity.
type MotionSample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Intensity converts a raw sample into scalar motion intensity: the
// absolute deviation of the acceleration magnitude from the resting
// gravity baseline. A phone lying still reads ~0.
func (s MotionSample) Intensity(gravity float64) float64 {
	mag := math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
	return math.Abs(mag - gravity)
}

// MovementConfig holds the thresholds that turn motion into damage.
// The engine owns the global instance; players may carry a private
// override that shadows it.
type MovementConfig struct {
	DangerThreshold  float64 `json:"dangerThreshold"`
	DamageMultiplier float64 `json:"damageMultiplier"`
	OneshotMode      bool    `json:"oneshotMode"`
}

// motionRing is a fixed-capacity ring of the most recent intensities.
// Zero value is unusable; construct with newMotionRing.
type motionRing struct {
	values []float64
	head   int
	count  int
}

func newMotionRing(size int) *motionRing {
	if size < 1 {
		size = 1
	}
	return &motionRing{values: make([]float64, size)}
}

func (r *motionRing) push(v float64) {
	r.values[r.head] = v
	r.head = (r.head + 1) % len(r.values)
	if r.count < len(r.values) {
		r.count++
	}
}

// latest returns the most recent intensity, or 0 when empty.
func (r *motionRing) latest() float64 {
	if r.count == 0 {
		return 0
	}
	idx := (r.head - 1 + len(r.values)) % len(r.values)
	return r.values[idx]
}

// mean averages the last window intensities (all stored values when
// window exceeds the stored count). Returns 0 when empty.
func (r *motionRing) mean(window int) float64 {
	if r.count == 0 {
		return 0
	}
	if window < 1 || window > r.count {
		window = r.count
	}
	sum := 0.0
	idx := (r.head - 1 + len(r.values)) % len(r.values)
	for i := 0; i < window; i++ {
		sum += r.values[idx]
		idx = (idx - 1 + len(r.values)) % len(r.values)
	}
	return sum / float64(window)
}

func (r *motionRing) reset() {
	r.head = 0
	r.count = 0
}
