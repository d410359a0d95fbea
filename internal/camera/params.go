package camera

import "math"

// NumParameters is the size of the calibration parameter vector.
const NumParameters = 6

// Parameter indices within the packed vector. The order is fixed; the
// optimizer and the sample table both rely on it.
const (
	LowerRollIndex = iota
	LowerTiltIndex
	UpperRollIndex
	UpperTiltIndex
	BodyRollIndex
	BodyTiltIndex
)

// Parameters holds the six correction angles estimated by the calibrator,
// in radians: a roll and tilt offset per camera and a roll and tilt offset
// for the body mounting.
type Parameters struct {
	LowerRoll float64 `json:"lower_roll"`
	LowerTilt float64 `json:"lower_tilt"`
	UpperRoll float64 `json:"upper_roll"`
	UpperTilt float64 `json:"upper_tilt"`
	BodyRoll  float64 `json:"body_roll"`
	BodyTilt  float64 `json:"body_tilt"`
}

// Vector packs the parameters into a vector in index order.
func (p Parameters) Vector() [NumParameters]float64 {
	return [NumParameters]float64{p.LowerRoll, p.LowerTilt, p.UpperRoll, p.UpperTilt, p.BodyRoll, p.BodyTilt}
}

// FromVector unpacks a vector into parameters, normalizing every angle
// modulo a full turn.
func FromVector(v [NumParameters]float64) Parameters {
	return Parameters{
		LowerRoll: math.Mod(v[LowerRollIndex], 2*math.Pi),
		LowerTilt: math.Mod(v[LowerTiltIndex], 2*math.Pi),
		UpperRoll: math.Mod(v[UpperRollIndex], 2*math.Pi),
		UpperTilt: math.Mod(v[UpperTiltIndex], 2*math.Pi),
		BodyRoll:  math.Mod(v[BodyRollIndex], 2*math.Pi),
		BodyTilt:  math.Mod(v[BodyTiltIndex], 2*math.Pi),
	}
}

// Roll returns the roll correction for the given camera.
func (p Parameters) Roll(id ID) float64 {
	if id == Upper {
		return p.UpperRoll
	}
	return p.LowerRoll
}

// Tilt returns the tilt correction for the given camera.
func (p Parameters) Tilt(id ID) float64 {
	if id == Upper {
		return p.UpperTilt
	}
	return p.LowerTilt
}
