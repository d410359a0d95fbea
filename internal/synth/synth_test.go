package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"camera-calibrator/internal/camera"
	"camera-calibrator/pkg/geometry"
)

func testScene() (*camera.Chain, camera.Capture) {
	chain := camera.NewChain(camera.DefaultHeadGeometry())
	cap := camera.Capture{
		Camera:      camera.Upper,
		Info:        camera.DefaultInfo(),
		TorsoHeight: 450,
		HeadTilt:    0.35,
	}
	return chain, cap
}

func TestStripeCovers(t *testing.T) {
	s := Stripe{A: geometry.Point2D{X: 1000, Y: -500}, B: geometry.Point2D{X: 1000, Y: 500}, Width: 50}
	assert.True(t, s.covers(geometry.Point2D{X: 1000, Y: 0}))
	assert.True(t, s.covers(geometry.Point2D{X: 1024, Y: 100}))
	assert.False(t, s.covers(geometry.Point2D{X: 1026, Y: 100}))
	assert.False(t, s.covers(geometry.Point2D{X: 1000, Y: 530}))
}

func TestRenderPaintsStripe(t *testing.T) {
	chain, cap := testScene()
	s := Stripe{A: geometry.Point2D{X: 1800, Y: -400}, B: geometry.Point2D{X: 1800, Y: 400}, Width: 100}

	img := Render(chain, cap, camera.Parameters{}, []Stripe{s})
	defer img.Close()

	assert.Equal(t, cap.Info.Height, img.Rows())
	assert.Equal(t, cap.Info.Width, img.Cols())

	proj := chain.Projection(cap, camera.Parameters{})
	on, ok := proj.GroundToImage(geometry.Point2D{X: 1800, Y: 0})
	require.True(t, ok)
	assert.Equal(t, uint8(255), img.GetUCharAt(int(on.Y), int(on.X)))

	off, ok := proj.GroundToImage(geometry.Point2D{X: 1400, Y: 0})
	require.True(t, ok)
	assert.Equal(t, uint8(0), img.GetUCharAt(int(off.Y), int(off.X)))
}

func TestPerceiveMatchesProjection(t *testing.T) {
	chain, cap := testScene()
	s := Stripe{A: geometry.Point2D{X: 1500, Y: -300}, B: geometry.Point2D{X: 2200, Y: 300}, Width: 50}

	line, ok := Perceive(chain, cap, camera.Parameters{}, s, 0)
	require.True(t, ok)

	// Without jitter the percept's ground endpoints are the stripe's.
	assert.InDelta(t, s.A.X, line.AField.X, 1e-6)
	assert.InDelta(t, s.A.Y, line.AField.Y, 1e-6)
	assert.InDelta(t, s.B.X, line.BField.X, 1e-6)
	assert.InDelta(t, s.B.Y, line.BField.Y, 1e-6)
}

func TestPerceiveJitterShiftsGroundPoints(t *testing.T) {
	chain, cap := testScene()
	s := Stripe{A: geometry.Point2D{X: 1500, Y: -300}, B: geometry.Point2D{X: 2200, Y: 300}, Width: 50}

	exact, ok := Perceive(chain, cap, camera.Parameters{}, s, 0)
	require.True(t, ok)
	jittered, ok := Perceive(chain, cap, camera.Parameters{}, s, 2)
	require.True(t, ok)

	assert.InDelta(t, exact.AImage.Y+2, jittered.AImage.Y, 1e-9)
	assert.NotEqual(t, exact.AField, jittered.AField)
}

func TestPerceiveFailsBehindCamera(t *testing.T) {
	chain, cap := testScene()
	s := Stripe{A: geometry.Point2D{X: -2000, Y: 0}, B: geometry.Point2D{X: -1500, Y: 0}, Width: 50}

	_, ok := Perceive(chain, cap, camera.Parameters{}, s, 0)
	assert.False(t, ok)
}

func TestPerceiveMark(t *testing.T) {
	chain, cap := testScene()
	at := geometry.Point2D{X: 1600, Y: 100}

	mark, ok := PerceiveMark(chain, cap, camera.Parameters{}, at)
	require.True(t, ok)
	assert.Equal(t, at, mark.OnField)

	proj := chain.Projection(cap, camera.Parameters{})
	back, ok := proj.ImageToGround(mark.InImage)
	require.True(t, ok)
	assert.InDelta(t, at.X, back.X, 1e-6)
	assert.InDelta(t, at.Y, back.Y, 1e-6)
}
