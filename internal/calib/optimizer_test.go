package calib

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"camera-calibrator/internal/camera"
)

// quadSample has a smooth error with its minimum at a known parameter
// value, so the optimizer's fixed point is known exactly.
type quadSample struct {
	index  int
	target float64
}

func (s quadSample) Kind() SampleKind { return CornerAngle }

func (s quadSample) Error(p camera.Parameters) float64 {
	d := p.Vector()[s.index] - s.target
	return d * d
}

func testOptimizer(t *testing.T) *Optimizer {
	t.Helper()
	return NewOptimizer(DefaultOptions(), rand.New(rand.NewSource(1)), zap.NewNop().Sugar())
}

func TestOptimizerConvergesToKnownMinimum(t *testing.T) {
	target := [camera.NumParameters]float64{0.02, -0.015, 0.01, -0.02, 0.005, -0.01}
	samples := make([]Sample, camera.NumParameters)
	for i := range samples {
		samples[i] = quadSample{index: i, target: target[i]}
	}

	o := testOptimizer(t)
	var result camera.Parameters
	accepted := false
	for i := 0; i < 1000 && !accepted; i++ {
		result, accepted = o.Step(camera.Parameters{}, samples)
	}
	require.True(t, accepted, "optimizer did not converge")

	v := result.Vector()
	for i := range v {
		assert.InDelta(t, target[i], v[i], 5e-3, "parameter %d", i)
	}
}

func TestOptimizerFirstStepSeeds(t *testing.T) {
	o := testOptimizer(t)
	seed := camera.Parameters{LowerTilt: 0.1}
	samples := []Sample{quadSample{index: camera.LowerTiltIndex, target: 0}}

	out, accepted := o.Step(seed, samples)
	assert.False(t, accepted)
	assert.Equal(t, seed, out)
}

func TestOptimizerEmptySamples(t *testing.T) {
	o := testOptimizer(t)
	seed := camera.Parameters{UpperRoll: 0.05}
	out, accepted := o.Step(seed, nil)
	assert.False(t, accepted)
	assert.Equal(t, seed, out)
}

func TestOptimizerRestartsOnInvalidSamples(t *testing.T) {
	opts := DefaultOptions()
	o := NewOptimizer(opts, rand.New(rand.NewSource(7)), zap.NewNop().Sugar())
	seed := camera.Parameters{
		LowerRoll: 0.1, LowerTilt: 0.1, UpperRoll: 0.1,
		UpperTilt: 0.1, BodyRoll: 0.1, BodyTilt: 0.1,
	}
	samples := []Sample{stubSample{kind: CornerAngle, err: opts.InvalidError}}

	_, accepted := o.Step(seed, samples)
	require.False(t, accepted)
	out, accepted := o.Step(seed, samples)
	require.False(t, accepted)

	// The restart perturbs each parameter by at most the configured
	// amplitude around the last good vector.
	for i, v := range out.Vector() {
		assert.LessOrEqual(t, math.Abs(v-0.1), opts.Perturbation+1e-12, "parameter %d", i)
	}

	// After a restart the optimizer reseeds from scratch.
	out, accepted = o.Step(seed, samples)
	assert.False(t, accepted)
	assert.Equal(t, seed, out)
}

func TestOptimizerRestartsOnNonFiniteError(t *testing.T) {
	o := testOptimizer(t)
	seed := camera.Parameters{BodyTilt: 0.05}
	samples := []Sample{stubSample{kind: CornerAngle, err: math.NaN()}}

	_, accepted := o.Step(seed, samples)
	require.False(t, accepted)
	out, accepted := o.Step(seed, samples)
	require.False(t, accepted)
	for i, v := range out.Vector() {
		assert.False(t, math.IsNaN(v), "parameter %d", i)
	}
}

func TestOptimizerResetDiscardsProgress(t *testing.T) {
	o := testOptimizer(t)
	samples := []Sample{quadSample{index: 0, target: 0.01}}
	o.Step(camera.Parameters{}, samples)
	o.Step(camera.Parameters{}, samples)

	o.Reset()
	seed := camera.Parameters{UpperTilt: 0.2}
	out, accepted := o.Step(seed, samples)
	assert.False(t, accepted)
	assert.Equal(t, seed, out)
}

func TestMeanError(t *testing.T) {
	samples := []Sample{
		stubSample{err: 1},
		stubSample{err: 3},
	}
	assert.InDelta(t, 2, meanError(samples, camera.Parameters{}), 1e-12)
	assert.Zero(t, meanError(nil, camera.Parameters{}))
}
