package camera

import "math"

// Vec3 represents a 3D vector. The ground frame has x pointing forward from
// the robot, y left and z up, with the origin on the ground below the torso.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns the sum of two vectors.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Scale returns the vector scaled by a factor.
func (v Vec3) Scale(factor float64) Vec3 {
	return Vec3{X: v.X * factor, Y: v.Y * factor, Z: v.Z * factor}
}

// Rot3 represents a 3x3 rotation matrix in row-major order.
type Rot3 [3][3]float64

// IdentityRot returns the identity rotation.
func IdentityRot() Rot3 {
	return Rot3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// RotX returns a rotation around the x axis.
func RotX(angle float64) Rot3 {
	c, s := math.Cos(angle), math.Sin(angle)
	return Rot3{{1, 0, 0}, {0, c, -s}, {0, s, c}}
}

// RotY returns a rotation around the y axis.
func RotY(angle float64) Rot3 {
	c, s := math.Cos(angle), math.Sin(angle)
	return Rot3{{c, 0, s}, {0, 1, 0}, {-s, 0, c}}
}

// RotZ returns a rotation around the z axis.
func RotZ(angle float64) Rot3 {
	c, s := math.Cos(angle), math.Sin(angle)
	return Rot3{{c, -s, 0}, {s, c, 0}, {0, 0, 1}}
}

// Mul returns the product r * other.
func (r Rot3) Mul(other Rot3) Rot3 {
	var out Rot3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = r[i][0]*other[0][j] + r[i][1]*other[1][j] + r[i][2]*other[2][j]
		}
	}
	return out
}

// Apply rotates a vector.
func (r Rot3) Apply(v Vec3) Vec3 {
	return Vec3{
		X: r[0][0]*v.X + r[0][1]*v.Y + r[0][2]*v.Z,
		Y: r[1][0]*v.X + r[1][1]*v.Y + r[1][2]*v.Z,
		Z: r[2][0]*v.X + r[2][1]*v.Y + r[2][2]*v.Z,
	}
}

// Transposed returns the transposed (inverse) rotation.
func (r Rot3) Transposed() Rot3 {
	var out Rot3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = r[j][i]
		}
	}
	return out
}

// Pose represents a rigid transform: rotation followed by translation.
type Pose struct {
	R Rot3
	T Vec3
}

// IdentityPose returns the identity pose.
func IdentityPose() Pose {
	return Pose{R: IdentityRot()}
}

// Translated returns the pose composed with a translation in the local frame.
func (p Pose) Translated(t Vec3) Pose {
	return Pose{R: p.R, T: p.T.Add(p.R.Apply(t))}
}

// Rotated returns the pose composed with a rotation in the local frame.
func (p Pose) Rotated(r Rot3) Pose {
	return Pose{R: p.R.Mul(r), T: p.T}
}

// Apply transforms a point from the local frame into the parent frame.
func (p Pose) Apply(v Vec3) Vec3 {
	return p.R.Apply(v).Add(p.T)
}

// Inverse returns the inverse pose.
func (p Pose) Inverse() Pose {
	rt := p.R.Transposed()
	return Pose{R: rt, T: rt.Apply(p.T.Scale(-1))}
}
