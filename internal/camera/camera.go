// Package camera provides the camera identities, intrinsics and the
// kinematic chain that maps between image pixels and points on the ground
// plane for a two-camera robot head.
package camera

import "camera-calibrator/pkg/geometry"

// ID identifies one of the two head cameras.
type ID int

const (
	Lower ID = iota
	Upper
)

func (id ID) String() string {
	switch id {
	case Lower:
		return "lower"
	case Upper:
		return "upper"
	default:
		return "unknown"
	}
}

// Info holds the intrinsics of a camera image.
type Info struct {
	Width         int              `json:"width"`
	Height        int              `json:"height"`
	FocalLength   float64          `json:"focal_length"` // In pixels
	OpticalCenter geometry.Point2D `json:"optical_center"`
}

// DefaultInfo returns intrinsics for the default VGA camera mode.
func DefaultInfo() Info {
	return Info{
		Width:         640,
		Height:        480,
		FocalLength:   554.26,
		OpticalCenter: geometry.Point2D{X: 320, Y: 240},
	}
}
