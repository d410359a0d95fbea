package calib

import (
	"camera-calibrator/internal/camera"
	"camera-calibrator/pkg/geometry"
)

// Projection maps between image pixels and ground-plane points for one
// frozen camera pose. Both directions report false when the mapping is
// undefined (point behind the camera, view ray missing the ground).
type Projection interface {
	ImageToGround(px geometry.Point2D) (geometry.Point2D, bool)
	GroundToImage(pt geometry.Point2D) (geometry.Point2D, bool)
}

// Kinematics builds ground-plane projections for a frozen capture context
// under an arbitrary candidate calibration. Implementations must not mutate
// shared state: the optimizer evaluates many hypothetical parameter vectors
// per run.
type Kinematics interface {
	Projection(cap camera.Capture, params camera.Parameters) Projection
}

type chainKinematics struct {
	chain *camera.Chain
}

// ChainKinematics adapts the concrete kinematic chain to the capability
// interface the calibrator consumes.
func ChainKinematics(c *camera.Chain) Kinematics {
	return chainKinematics{chain: c}
}

func (k chainKinematics) Projection(cap camera.Capture, params camera.Parameters) Projection {
	return k.chain.Projection(cap, params)
}
