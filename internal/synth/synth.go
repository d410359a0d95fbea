// Package synth renders synthetic views of field markings through the
// kinematic chain. It backs the simulation harness and the end-to-end
// tests: a scene of painted stripes on the ground plane is rasterized into
// a grayscale camera image, and matching line percepts are derived from the
// same projection.
package synth

import (
	"gocv.io/x/gocv"

	"camera-calibrator/internal/calib"
	"camera-calibrator/internal/camera"
	"camera-calibrator/pkg/geometry"
)

// Stripe is a painted line on the ground plane: a centerline segment plus
// the paint width.
type Stripe struct {
	A     geometry.Point2D
	B     geometry.Point2D
	Width float64
}

// covers reports whether the ground point lies on the paint.
func (s Stripe) covers(p geometry.Point2D) bool {
	return geometry.DistanceToSegment(s.A, s.B, p) <= s.Width/2
}

// Render rasterizes the stripes into a grayscale image as seen by the
// camera described by cap under the given calibration. Paint is white on a
// black background. The caller owns the returned Mat.
func Render(chain *camera.Chain, cap camera.Capture, params camera.Parameters, stripes []Stripe) gocv.Mat {
	proj := chain.Projection(cap, params)
	img := gocv.NewMatWithSize(cap.Info.Height, cap.Info.Width, gocv.MatTypeCV8U)
	for y := 0; y < cap.Info.Height; y++ {
		for x := 0; x < cap.Info.Width; x++ {
			ground, ok := proj.ImageToGround(geometry.Point2D{X: float64(x), Y: float64(y)})
			if !ok {
				continue
			}
			for _, s := range stripes {
				if s.covers(ground) {
					img.SetUCharAt(y, x, 255)
					break
				}
			}
		}
	}
	return img
}

// Perceive builds the line percept a perfect perception stage would emit
// for a stripe's centerline: the projected image endpoints, shifted by
// jitter pixels along the image y axis to mimic detection noise, and their
// ground positions under the same calibration. It reports false if either
// endpoint does not project into the view.
func Perceive(chain *camera.Chain, cap camera.Capture, params camera.Parameters, s Stripe, jitter float64) (calib.PerceivedLine, bool) {
	proj := chain.Projection(cap, params)
	aImg, okA := proj.GroundToImage(s.A)
	bImg, okB := proj.GroundToImage(s.B)
	if !okA || !okB {
		return calib.PerceivedLine{}, false
	}
	aImg.Y += jitter
	bImg.Y -= jitter
	aField, okA := proj.ImageToGround(aImg)
	bField, okB := proj.ImageToGround(bImg)
	if !okA || !okB {
		return calib.PerceivedLine{}, false
	}
	return calib.PerceivedLine{AImage: aImg, BImage: bImg, AField: aField, BField: bField}, true
}

// PerceiveMark builds the mark percept for a ground position.
func PerceiveMark(chain *camera.Chain, cap camera.Capture, params camera.Parameters, at geometry.Point2D) (calib.PerceivedMark, bool) {
	proj := chain.Projection(cap, params)
	inImage, ok := proj.GroundToImage(at)
	if !ok {
		return calib.PerceivedMark{}, false
	}
	return calib.PerceivedMark{InImage: inImage, OnField: at}, true
}
