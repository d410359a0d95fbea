package camera

import (
	"camera-calibrator/pkg/geometry"
)

// Capture freezes everything about the robot's posture at the moment an
// image was taken that is needed to rebuild the camera pose later: which
// camera took it, its intrinsics, the torso attitude and height measured by
// the IMU, and the head joint angles. Angles are in radians, the height in
// millimeters.
type Capture struct {
	Camera      ID
	Info        Info
	TorsoRoll   float64
	TorsoPitch  float64
	TorsoHeight float64
	HeadPan     float64
	HeadTilt    float64
}

// Mount describes where a camera sits relative to the head joint and how it
// is tilted.
type Mount struct {
	Offset Vec3    `json:"offset"`
	Tilt   float64 `json:"tilt"`
}

// HeadGeometry describes the fixed kinematics from the torso to the two
// cameras. Offsets are in millimeters.
type HeadGeometry struct {
	NeckOffset Vec3  `json:"neck_offset"`
	LowerCam   Mount `json:"lower_cam"`
	UpperCam   Mount `json:"upper_cam"`
}

// DefaultHeadGeometry returns the head geometry of the standard robot.
func DefaultHeadGeometry() HeadGeometry {
	return HeadGeometry{
		NeckOffset: Vec3{X: 0, Y: 0, Z: 211.5},
		LowerCam:   Mount{Offset: Vec3{X: 50.71, Y: 0, Z: 17.74}, Tilt: 0.6929},
		UpperCam:   Mount{Offset: Vec3{X: 58.71, Y: 0, Z: 63.64}, Tilt: 0.0209},
	}
}

// Mount returns the mount of the given camera.
func (h HeadGeometry) Mount(id ID) Mount {
	if id == Upper {
		return h.UpperCam
	}
	return h.LowerCam
}

// Chain is the kinematic chain from the ground frame to a camera. It builds
// ground-plane projections for arbitrary candidate calibration parameters
// without mutating any shared state, so the optimizer can evaluate
// hypothetical corrections.
type Chain struct {
	Head HeadGeometry
}

// NewChain returns a chain over the given head geometry.
func NewChain(head HeadGeometry) *Chain {
	return &Chain{Head: head}
}

// cameraPose assembles the pose of the camera in the ground frame:
// torso attitude, body mounting correction, neck offset, head joints,
// camera mount and the per-camera rotation corrections.
func (c *Chain) cameraPose(cap Capture, params Parameters) Pose {
	mount := c.Head.Mount(cap.Camera)
	p := IdentityPose().
		Translated(Vec3{Z: cap.TorsoHeight}).
		Rotated(RotX(cap.TorsoRoll)).
		Rotated(RotY(cap.TorsoPitch)).
		Rotated(RotX(params.BodyRoll)).
		Rotated(RotY(params.BodyTilt)).
		Translated(c.Head.NeckOffset).
		Rotated(RotZ(cap.HeadPan)).
		Rotated(RotY(cap.HeadTilt)).
		Translated(mount.Offset).
		Rotated(RotY(mount.Tilt + params.Tilt(cap.Camera))).
		Rotated(RotX(params.Roll(cap.Camera)))
	return p
}

// Projection returns the image/ground mapping for a frozen capture under a
// candidate calibration.
func (c *Chain) Projection(cap Capture, params Parameters) *Projection {
	pose := c.cameraPose(cap, params)
	return &Projection{info: cap.Info, pose: pose, inv: pose.Inverse()}
}

// Projection maps between image pixels and ground-plane points for one
// camera pose. The camera frame has x along the optical axis, y left and z
// up; a pixel (px, py) corresponds to the camera-frame ray
// (f, cx-px, cy-py).
type Projection struct {
	info Info
	pose Pose
	inv  Pose
}

// GroundToImage projects a ground-plane point (z = 0) into image pixels.
// It reports false if the point is not in front of the camera.
func (p *Projection) GroundToImage(pt geometry.Point2D) (geometry.Point2D, bool) {
	inCam := p.inv.Apply(Vec3{X: pt.X, Y: pt.Y, Z: 0})
	if inCam.X <= 1e-9 {
		return geometry.Point2D{}, false
	}
	f := p.info.FocalLength
	return geometry.Point2D{
		X: p.info.OpticalCenter.X - f*inCam.Y/inCam.X,
		Y: p.info.OpticalCenter.Y - f*inCam.Z/inCam.X,
	}, true
}

// ImageToGround intersects the view ray of a pixel with the ground plane.
// It reports false if the ray does not hit the ground in front of the
// camera.
func (p *Projection) ImageToGround(px geometry.Point2D) (geometry.Point2D, bool) {
	dir := p.pose.R.Apply(Vec3{
		X: p.info.FocalLength,
		Y: p.info.OpticalCenter.X - px.X,
		Z: p.info.OpticalCenter.Y - px.Y,
	})
	if dir.Z >= -1e-9 {
		return geometry.Point2D{}, false
	}
	t := -p.pose.T.Z / dir.Z
	if t <= 0 {
		return geometry.Point2D{}, false
	}
	hit := p.pose.T.Add(dir.Scale(t))
	return geometry.Point2D{X: hit.X, Y: hit.Y}, true
}
