package calib

import "math"

func degrees(d float64) float64 {
	return d * math.Pi / 180
}

// Options configures the calibrator. Distances are in millimeters, angles
// in radians.
type Options struct {
	// Line fitting.
	SobelThresholdFraction float64 // Fraction of the strongest gradient that still votes
	MinEdgeSeparation      float64 // Minimum pixel distance between the two paint edges

	// Sample collection.
	ConnectMaxDistance float64 // How close the connecting line's ends must be to the long lines
	MinCornerAngle     float64 // Lower bound on the connecting line's angle to the long lines
	MaxParallelAngle   float64 // Upper bound on the angle between the two long lines
	DiscardsUntilWiden int     // Consecutive discards before an acceptance range widens
	RangeWidenStep     float64 // Amount both range bounds move outward

	// Error model.
	InvalidError            float64 // Sentinel error for failed projections
	AngleErrorDivisor       float64 // Scales angle errors into optimizer units
	DistanceErrorDivisor    float64 // Scales distance errors into optimizer units
	PixelInaccuracyPerMeter float64 // Expected measurement slack per meter of range

	// Optimization.
	Regularization            float64 // Damping added to the normal equations
	JacobianDelta             float64 // Step for numeric differentiation
	TerminationBase           float64 // Base step-size threshold for convergence
	MinSuccessiveConvergences int     // Qualifying steps needed before accepting
	Perturbation              float64 // Restart perturbation amplitude per parameter
}

// DefaultOptions returns the default calibrator configuration.
func DefaultOptions() Options {
	return Options{
		SobelThresholdFraction: 0.3,
		MinEdgeSeparation:      2,

		ConnectMaxDistance: 100,
		MinCornerAngle:     degrees(20),
		MaxParallelAngle:   degrees(40),
		DiscardsUntilWiden: 10,
		RangeWidenStep:     25,

		InvalidError:            1e6,
		AngleErrorDivisor:       degrees(2),
		DistanceErrorDivisor:    100,
		PixelInaccuracyPerMeter: 20,

		Regularization:            1e-4,
		JacobianDelta:             1e-4,
		TerminationBase:           1e-4,
		MinSuccessiveConvergences: 10,
		Perturbation:              degrees(0.5),
	}
}
