package calib

import "math"

// numAngles is the number of angle buckets covering 0-180 degrees in the
// line accumulator.
const numAngles = 128

// angleTables holds precomputed sine/cosine values, one per angle bucket.
type angleTables struct {
	sin [numAngles]float64
	cos [numAngles]float64
}

func newAngleTables() *angleTables {
	t := &angleTables{}
	for i := 0; i < numAngles; i++ {
		a := float64(i) * math.Pi / numAngles
		t.sin[i] = math.Sin(a)
		t.cos[i] = math.Cos(a)
	}
	return t
}
