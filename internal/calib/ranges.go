package calib

// adaptiveRange is a self-widening acceptance interval. Whenever a cycle
// produces candidate measurements that are all rejected, a discard is
// counted; after enough consecutive discards without an acceptance in
// between, both bounds move outward by a fixed step. This tolerates initial
// calibration error that skews where a feature is expected to appear.
type adaptiveRange struct {
	min      float64
	max      float64
	discards int
}

func newAdaptiveRange(center, halfWidth float64) *adaptiveRange {
	return &adaptiveRange{min: center - halfWidth, max: center + halfWidth}
}

// contains reports whether v lies inside the current interval.
func (r *adaptiveRange) contains(v float64) bool {
	return v >= r.min && v <= r.max
}

// update processes the outcome of one cycle. It widens the range and
// reports true once the discard threshold is reached; an acceptance resets
// the counter without widening.
func (r *adaptiveRange) update(discarded, accepted bool, discardsUntilWiden int, step float64) bool {
	if discarded && !accepted {
		r.discards++
	}
	if accepted {
		r.discards = 0
	}
	if r.discards >= discardsUntilWiden {
		r.discards = 0
		r.min -= step
		r.max += step
		return true
	}
	return false
}

// resetDiscards clears the discard counter without touching the bounds.
func (r *adaptiveRange) resetDiscards() {
	r.discards = 0
}
