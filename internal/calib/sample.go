package calib

import (
	"math"

	"camera-calibrator/internal/camera"
	"camera-calibrator/internal/field"
	"camera-calibrator/pkg/geometry"
)

// Sample is one immutable recorded geometric measurement. It holds all
// inputs needed to recompute its calibration error for any candidate
// parameter vector: the capture context frozen at recording time plus one
// or two corrected lines and/or a mark position.
type Sample interface {
	Kind() SampleKind

	// Error returns the non-negative scalar calibration error of the
	// sample under the candidate parameters, or the configured invalid
	// sentinel if a required projection fails.
	Error(params camera.Parameters) float64
}

// sampleContext carries the shared immutable inputs of every sample.
type sampleContext struct {
	kin  Kinematics
	dims field.Dimensions
	opts Options
	cap  camera.Capture
}

// reproject recomputes the ground-plane endpoints of a corrected line from
// its image endpoints under a candidate projection.
func (c sampleContext) reproject(cl CorrectedLine, proj Projection) (CorrectedLine, bool) {
	ok := cl.project(proj)
	return cl, ok
}

type cornerAngleSample struct {
	sampleContext
	line1 CorrectedLine // The short connecting line
	line2 CorrectedLine // The longer orthogonal line
}

func (s *cornerAngleSample) Kind() SampleKind { return CornerAngle }

func (s *cornerAngleSample) Error(params camera.Parameters) float64 {
	proj := s.kin.Projection(s.cap, params)
	l1, ok1 := s.reproject(s.line1, proj)
	l2, ok2 := s.reproject(s.line2, proj)
	if !ok1 || !ok2 {
		return s.opts.InvalidError
	}
	angle := geometry.SegmentAngle(l1.AField, l1.BField, l2.AField, l2.BField)
	return math.Abs(math.Pi/2-angle) / s.opts.AngleErrorDivisor
}

type parallelAngleSample struct {
	sampleContext
	line1 CorrectedLine
	line2 CorrectedLine
}

func (s *parallelAngleSample) Kind() SampleKind { return ParallelAngle }

func (s *parallelAngleSample) Error(params camera.Parameters) float64 {
	proj := s.kin.Projection(s.cap, params)
	l1, ok1 := s.reproject(s.line1, proj)
	l2, ok2 := s.reproject(s.line2, proj)
	if !ok1 || !ok2 {
		return s.opts.InvalidError
	}
	angle := geometry.SegmentAngle(l1.AField, l1.BField, l2.AField, l2.BField)
	return math.Min(angle, math.Pi-angle) / s.opts.AngleErrorDivisor
}

type parallelLinesDistanceSample struct {
	sampleContext
	line1 CorrectedLine
	line2 CorrectedLine
}

func (s *parallelLinesDistanceSample) Kind() SampleKind { return ParallelLinesDistance }

func (s *parallelLinesDistanceSample) Error(params camera.Parameters) float64 {
	proj := s.kin.Projection(s.cap, params)
	l1, ok1 := s.reproject(s.line1, proj)
	l2, ok2 := s.reproject(s.line2, proj)
	if !ok1 || !ok2 {
		return s.opts.InvalidError
	}

	sup1 := geometry.LineThrough(l1.AField, l1.BField)
	sup2 := geometry.LineThrough(l2.AField, l2.BField)
	distances := [4]float64{
		sup1.SignedDistanceTo(l2.AField),
		sup1.SignedDistanceTo(l2.BField),
		sup2.SignedDistanceTo(l1.AField),
		sup2.SignedDistanceTo(l1.BField),
	}
	// Each endpoint's tolerance grows with its distance from the robot,
	// since a pixel covers more ground at range.
	tolerances := [4]float64{
		l2.AField.Norm() / 1000 * s.opts.PixelInaccuracyPerMeter,
		l2.BField.Norm() / 1000 * s.opts.PixelInaccuracyPerMeter,
		l1.AField.Norm() / 1000 * s.opts.PixelInaccuracyPerMeter,
		l1.BField.Norm() / 1000 * s.opts.PixelInaccuracyPerMeter,
	}

	combinedOffset := l2.Offset - l1.Offset
	if distances[0] > 0 {
		combinedOffset = l1.Offset - l2.Offset
	}
	expected := s.dims.GoalAreaWidth() + combinedOffset

	worst := 0.0
	for i, d := range distances {
		deviation := math.Abs(math.Abs(d)-expected) - tolerances[i]
		worst = math.Max(worst, deviation)
	}
	return worst / s.opts.DistanceErrorDivisor
}

// markDistanceSample measures the perpendicular distance from the detected
// mark to a corrected line's supporting line against a known field
// constant. It backs both the goal-area and the ground-line variant.
type markDistanceSample struct {
	sampleContext
	kind        SampleKind
	markInImage geometry.Point2D
	line        CorrectedLine
}

func (s *markDistanceSample) Kind() SampleKind { return s.kind }

func (s *markDistanceSample) Error(params camera.Parameters) float64 {
	proj := s.kin.Projection(s.cap, params)
	l, ok := s.reproject(s.line, proj)
	if !ok {
		return s.opts.InvalidError
	}
	mark, ok := proj.ImageToGround(s.markInImage)
	if !ok {
		return s.opts.InvalidError
	}

	expected := s.dims.GoalAreaToMark()
	if s.kind == GroundLineDistance {
		expected = s.dims.GroundLineToMark()
	}
	distance := geometry.LineThrough(l.AField, l.BField).DistanceTo(mark)
	return math.Abs(distance-(expected+l.Offset)) / s.opts.DistanceErrorDivisor
}
