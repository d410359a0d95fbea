package calib

import (
	"math"
	"math/rand"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"camera-calibrator/internal/camera"
)

// gaussNewton performs damped Gauss-Newton steps over the errors of a fixed
// sample set, with a numeric central-difference Jacobian.
type gaussNewton struct {
	samples []Sample
	lambda  float64
	delta   float64
}

// iterate performs one step, updating params in place, and returns the step
// norm. The norm is NaN or Inf if the normal equations could not be solved.
func (o *gaussNewton) iterate(params *[camera.NumParameters]float64) float64 {
	m := len(o.samples)
	n := camera.NumParameters

	residuals := mat.NewVecDense(m, nil)
	current := camera.FromVector(*params)
	for i, s := range o.samples {
		residuals.SetVec(i, s.Error(current))
	}

	jacobian := mat.NewDense(m, n, nil)
	for j := 0; j < n; j++ {
		plus, minus := *params, *params
		plus[j] += o.delta
		minus[j] -= o.delta
		pPlus, pMinus := camera.FromVector(plus), camera.FromVector(minus)
		for i, s := range o.samples {
			jacobian.Set(i, j, (s.Error(pPlus)-s.Error(pMinus))/(2*o.delta))
		}
	}

	// Solve (J'J + lambda I) step = J' r.
	var normal mat.Dense
	normal.Mul(jacobian.T(), jacobian)
	for i := 0; i < n; i++ {
		normal.Set(i, i, normal.At(i, i)+o.lambda)
	}
	var rhs mat.VecDense
	rhs.MulVec(jacobian.T(), residuals)

	var step mat.VecDense
	if err := step.SolveVec(&normal, &rhs); err != nil {
		return math.NaN()
	}

	normSq := 0.0
	for i := 0; i < n; i++ {
		s := step.AtVec(i)
		params[i] -= s
		normSq += s * s
	}
	return math.Sqrt(normSq)
}

// Optimizer iterates the six calibration parameters against the recorded
// samples, one Gauss-Newton step per processing cycle. Divergent steps
// restart the optimization from a randomized perturbation of the last good
// parameters; qualifying steps accumulate toward the acceptance criterion
// while the best parameter vector by mean error is tracked.
type Optimizer struct {
	opts Options
	log  *zap.SugaredLogger
	rand *rand.Rand

	gn                *gaussNewton
	params            [camera.NumParameters]float64
	steps             int
	successive        int
	lowestError       float64
	lowestErrorParams [camera.NumParameters]float64
}

// NewOptimizer returns an optimizer using the given random source for
// restart perturbations.
func NewOptimizer(opts Options, rng *rand.Rand, log *zap.SugaredLogger) *Optimizer {
	return &Optimizer{opts: opts, log: log, rand: rng}
}

// Reset discards all optimizer state.
func (o *Optimizer) Reset() {
	o.gn = nil
	o.steps = 0
	o.successive = 0
	o.lowestError = 0
	o.lowestErrorParams = [camera.NumParameters]float64{}
}

// Step runs one optimization cycle. On the first call after a reset it
// seeds the parameter vector from the given calibration and does not step
// yet. The returned parameters are what the caller should publish this
// cycle; accepted reports that the convergence criterion was met and the
// returned vector is the final result.
func (o *Optimizer) Step(seed camera.Parameters, samples []Sample) (out camera.Parameters, accepted bool) {
	if len(samples) == 0 {
		return seed, false
	}
	if o.gn == nil {
		o.gn = &gaussNewton{samples: samples, lambda: o.opts.Regularization, delta: o.opts.JacobianDelta}
		o.params = seed.Vector()
		o.successive = 0
		return camera.FromVector(o.params), false
	}
	o.gn.samples = samples

	lastGood := o.params
	delta := o.gn.iterate(&o.params)
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return o.restart(lastGood), false
	}
	next := camera.FromVector(o.params)
	for _, s := range samples {
		if s.Error(next) >= o.opts.InvalidError {
			return o.restart(lastGood), false
		}
	}

	// The convergence bar relaxes in plateaus the longer the optimization
	// runs, tolerating slow asymptotic approach.
	o.steps++
	threshold := o.opts.TerminationBase * float64(max(1, o.steps/500*50))
	if math.Abs(delta) < threshold {
		o.successive++
	} else {
		o.successive = 0
	}
	o.log.Debugw("optimizer step", "delta", delta, "successive", o.successive)

	if o.successive > 0 {
		err := meanError(samples, next)
		if o.successive == 1 || err < o.lowestError {
			o.lowestError = err
			o.lowestErrorParams = o.params
		}
	}

	if o.successive >= o.opts.MinSuccessiveConvergences {
		result := camera.FromVector(o.lowestErrorParams)
		o.log.Infow("optimization converged", "meanError", o.lowestError, "steps", o.steps)
		o.Reset()
		return result, true
	}
	return next, false
}

// restart reverts to the last good parameters perturbed by uniform noise,
// discarding all tracked progress.
func (o *Optimizer) restart(lastGood [camera.NumParameters]float64) camera.Parameters {
	o.log.Infow("optimization diverged, restarting with perturbation")
	for i := range lastGood {
		lastGood[i] += (o.rand.Float64()*2 - 1) * o.opts.Perturbation
	}
	o.Reset()
	return camera.FromVector(lastGood)
}

// meanError returns the mean sample error under the given parameters.
func meanError(samples []Sample, params camera.Parameters) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += s.Error(params)
	}
	return sum / float64(len(samples))
}
