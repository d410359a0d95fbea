package calib

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"camera-calibrator/pkg/geometry"
)

// flatProjection maps image coordinates one-to-one onto the ground, so the
// fitter's image-space behavior can be checked in isolation.
type flatProjection struct{}

func (flatProjection) ImageToGround(px geometry.Point2D) (geometry.Point2D, bool) { return px, true }
func (flatProjection) GroundToImage(pt geometry.Point2D) (geometry.Point2D, bool) { return pt, true }

// failingProjection never unprojects.
type failingProjection struct{}

func (failingProjection) ImageToGround(geometry.Point2D) (geometry.Point2D, bool) {
	return geometry.Point2D{}, false
}

func (failingProjection) GroundToImage(geometry.Point2D) (geometry.Point2D, bool) {
	return geometry.Point2D{}, false
}

// horizontalStripeImage draws a white horizontal band over a black
// background, covering the rows [top, bottom].
func horizontalStripeImage(width, height, top, bottom int) gocv.Mat {
	img := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8U)
	for y := top; y <= bottom; y++ {
		for x := 0; x < width; x++ {
			img.SetUCharAt(y, x, 255)
		}
	}
	return img
}

func TestFitRefinesToStripeEdge(t *testing.T) {
	img := horizontalStripeImage(200, 200, 90, 110)
	defer img.Close()

	fitter := NewLineFitter(DefaultOptions(), 50)

	// The rough segment runs along the stripe center, slightly tilted
	// and offset the way an upstream detector would report it.
	cl := CorrectedLine{
		AImage: geometry.Point2D{X: 40, Y: 101},
		BImage: geometry.Point2D{X: 160, Y: 98},
	}
	require.True(t, fitter.Fit(img, flatProjection{}, &cl))

	// The refined endpoints keep their x positions and snap onto one of
	// the two paint edges, about ten pixels off the stripe center.
	assert.InDelta(t, 40, cl.AImage.X, 1.5)
	assert.InDelta(t, 160, cl.BImage.X, 1.5)
	edgeDist := math.Abs(cl.AImage.Y - 100)
	assert.InDelta(t, 10, edgeDist, 3)
	assert.InDelta(t, cl.AImage.Y, cl.BImage.Y, 2)

	// The offset is half the painted width, signed toward the stripe
	// body: positive when the fitted edge is the upper one.
	require.NotZero(t, cl.Offset)
	assert.InDelta(t, 25, math.Abs(cl.Offset), 1e-9)

	// The flat projection copies the refined image points to the ground.
	assert.Equal(t, cl.AImage, cl.AField)
	assert.Equal(t, cl.BImage, cl.BField)
}

func TestFitEndpointOrderIrrelevant(t *testing.T) {
	img := horizontalStripeImage(200, 200, 90, 110)
	defer img.Close()

	fitter := NewLineFitter(DefaultOptions(), 50)

	forward := CorrectedLine{
		AImage: geometry.Point2D{X: 40, Y: 101},
		BImage: geometry.Point2D{X: 160, Y: 98},
	}
	backward := CorrectedLine{
		AImage: geometry.Point2D{X: 160, Y: 98},
		BImage: geometry.Point2D{X: 40, Y: 101},
	}
	require.True(t, fitter.Fit(img, flatProjection{}, &forward))
	require.True(t, fitter.Fit(img, flatProjection{}, &backward))

	assert.InDelta(t, forward.AImage.Y, backward.AImage.Y, 1e-9)
	assert.Equal(t, forward.Offset, backward.Offset)
}

func TestFitVerticalStripe(t *testing.T) {
	img := gocv.NewMatWithSize(200, 200, gocv.MatTypeCV8U)
	defer img.Close()
	for y := 0; y < 200; y++ {
		for x := 90; x <= 110; x++ {
			img.SetUCharAt(y, x, 255)
		}
	}

	fitter := NewLineFitter(DefaultOptions(), 50)
	cl := CorrectedLine{
		AImage: geometry.Point2D{X: 99, Y: 40},
		BImage: geometry.Point2D{X: 102, Y: 160},
	}
	require.True(t, fitter.Fit(img, flatProjection{}, &cl))

	assert.InDelta(t, 10, math.Abs(cl.AImage.X-100), 3)
	assert.InDelta(t, cl.AImage.X, cl.BImage.X, 2)
	assert.InDelta(t, 25, math.Abs(cl.Offset), 1e-9)
}

func TestFitFailsWithoutSecondEdge(t *testing.T) {
	// A single brightness step has only one edge, so no width offset can
	// be derived.
	img := gocv.NewMatWithSize(200, 200, gocv.MatTypeCV8U)
	defer img.Close()
	for y := 100; y < 200; y++ {
		for x := 0; x < 200; x++ {
			img.SetUCharAt(y, x, 255)
		}
	}

	fitter := NewLineFitter(DefaultOptions(), 50)
	cl := CorrectedLine{
		AImage: geometry.Point2D{X: 40, Y: 100},
		BImage: geometry.Point2D{X: 160, Y: 100},
	}
	assert.False(t, fitter.Fit(img, flatProjection{}, &cl))
}

func TestFitFailsOnUnprojectableResult(t *testing.T) {
	img := horizontalStripeImage(200, 200, 90, 110)
	defer img.Close()

	fitter := NewLineFitter(DefaultOptions(), 50)
	cl := CorrectedLine{
		AImage: geometry.Point2D{X: 40, Y: 101},
		BImage: geometry.Point2D{X: 160, Y: 98},
	}
	assert.False(t, fitter.Fit(img, failingProjection{}, &cl))
}

func TestExtractPatchZeroFillsOutside(t *testing.T) {
	img := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8U)
	defer img.Close()
	img.SetUCharAt(0, 0, 200)

	patch := extractPatch(img, -2, -2, 5, 5)
	defer patch.Close()

	assert.Equal(t, uint8(0), patch.GetUCharAt(0, 0))
	assert.Equal(t, uint8(200), patch.GetUCharAt(2, 2))
}

func TestNormalizeAngle(t *testing.T) {
	assert.InDelta(t, 0, normalizeAngle(2*math.Pi), 1e-12)
	assert.InDelta(t, -math.Pi/2, normalizeAngle(3*math.Pi/2), 1e-12)
	assert.InDelta(t, math.Pi, normalizeAngle(-math.Pi), 1e-12)
}

func TestFitObliqueStripe(t *testing.T) {
	// Stripe direction aligned with an exact accumulator bucket, so the
	// expected angle maximum is unambiguous.
	stripeAngle := degrees(11.25)
	slope := math.Tan(stripeAngle)
	norm := math.Hypot(slope, 1)
	centerY := func(x float64) float64 { return 100 + slope*(x-100) }

	img := gocv.NewMatWithSize(200, 200, gocv.MatTypeCV8U)
	defer img.Close()
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			if math.Abs(float64(y)-centerY(float64(x)))/norm <= 10 {
				img.SetUCharAt(y, x, 255)
			}
		}
	}

	fitter := NewLineFitter(DefaultOptions(), 50)
	cl := CorrectedLine{
		AImage: geometry.Point2D{X: 40, Y: 89},
		BImage: geometry.Point2D{X: 160, Y: 111},
	}
	require.True(t, fitter.Fit(img, flatProjection{}, &cl))

	// The refined angle matches the stripe within one angle bucket.
	dir := cl.BImage.Sub(cl.AImage)
	fitAngle := math.Atan2(dir.Y, dir.X)
	assert.InDelta(t, stripeAngle, fitAngle, math.Pi/numAngles+1e-9)

	// Both refined endpoints sit on one of the two paint edges, ten
	// pixels perpendicular from the stripe center.
	for _, p := range []geometry.Point2D{cl.AImage, cl.BImage} {
		perpDist := math.Abs(centerY(p.X)-p.Y) / norm
		assert.InDelta(t, 10, perpDist, 2.5)
	}

	assert.InDelta(t, 25, math.Abs(cl.Offset), 1e-9)
}
