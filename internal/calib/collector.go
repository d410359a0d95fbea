package calib

import (
	"math"

	"go.uber.org/zap"

	"camera-calibrator/internal/field"
	"camera-calibrator/pkg/geometry"
)

// Line-count gates for the two searches. With more detected segments the
// candidate sets degenerate into noise.
const (
	minLinesForTriple = 3
	minLinesForPair   = 2
	maxLinesForSearch = 8
)

// Collector searches each frame's percepts for geometric configurations
// matching the active sample configuration and records typed samples. It
// owns the adaptive acceptance ranges for the distance measurements, one
// per measurement kind and camera.
type Collector struct {
	opts   Options
	dims   field.Dimensions
	kin    Kinematics
	fitter *LineFitter
	log    *zap.SugaredLogger

	parallelRange   [2]*adaptiveRange
	goalAreaRange   [2]*adaptiveRange
	groundLineRange [2]*adaptiveRange
}

// NewCollector returns a collector with fresh adaptive ranges seeded from
// the field dimensions, each a line width wide to either side.
func NewCollector(opts Options, dims field.Dimensions, kin Kinematics, log *zap.SugaredLogger) *Collector {
	c := &Collector{
		opts:   opts,
		dims:   dims,
		kin:    kin,
		fitter: NewLineFitter(opts, dims.LineWidth),
		log:    log,
	}
	c.Reset()
	return c
}

// Reset re-seeds all acceptance ranges from the field dimensions. A new
// calibration run must not inherit widening from an earlier one.
func (c *Collector) Reset() {
	for cam := 0; cam < 2; cam++ {
		c.parallelRange[cam] = newAdaptiveRange(c.dims.GoalAreaWidth(), c.dims.LineWidth)
		c.goalAreaRange[cam] = newAdaptiveRange(c.dims.GoalAreaToMark(), c.dims.LineWidth)
		c.groundLineRange[cam] = newAdaptiveRange(c.dims.GroundLineToMark(), c.dims.LineWidth)
	}
}

// Collect runs one per-frame pass for the active configuration, recording
// samples into the table when recording is requested. It reports whether
// the features required by the configuration are currently visible.
func (c *Collector) Collect(frame *Frame, cfg *SampleConfig, table *SampleTable) bool {
	if frame.Capture.Camera != cfg.Camera {
		return false
	}

	visible := false
	record := frame.Request.Config != nil && frame.Request.Config.Record
	ctx := sampleContext{kin: c.kin, dims: c.dims, opts: c.opts, cap: frame.Capture}
	proj := c.kin.Projection(frame.Capture, frame.Current)

	needAngleGroup := cfg.NeedToRecord(table, CornerAngle) ||
		cfg.NeedToRecord(table, ParallelAngle) ||
		cfg.NeedToRecord(table, ParallelLinesDistance)
	needMarkGroup := cfg.NeedToRecord(table, GoalAreaDistance) ||
		cfg.NeedToRecord(table, GroundLineDistance)

	if len(frame.Lines) >= minLinesForTriple && len(frame.Lines) <= maxLinesForSearch &&
		needAngleGroup && !needMarkGroup {
		visible = c.searchTriples(frame, cfg, table, ctx, proj, record) || visible
	}

	if frame.Mark != nil && len(frame.Lines) >= minLinesForPair && len(frame.Lines) <= maxLinesForSearch &&
		needMarkGroup {
		visible = c.searchMarkPairs(frame, cfg, table, ctx, proj, record) || visible
	}

	// Nothing outstanding: report visibility unconditionally so head
	// motion stays synchronized, and drop residual discard state.
	if !needAngleGroup && !needMarkGroup {
		c.resetDiscards()
		visible = true
	}
	return visible
}

// searchTriples looks for a short connecting line i whose ends touch two
// near-parallel long lines j and k (the goal area corner configuration)
// and records corner-angle, parallel-angle and parallel-distance samples.
func (c *Collector) searchTriples(frame *Frame, cfg *SampleConfig, table *SampleTable, ctx sampleContext, proj Projection, record bool) bool {
	visible := false
	discarded, found := false, false
	rng := c.parallelRange[cfg.Camera]
	lines := frame.Lines

	for i := range lines {
		for j := range lines {
			if i == j {
				continue
			}
			for k := j + 1; k < len(lines); k++ {
				if i == k {
					continue
				}
				// One end of line i must lie on line j, the other on
				// line k.
				if c.connectDistance(lines[j], lines[i]) > c.opts.ConnectMaxDistance ||
					c.connectDistance(lines[k], lines[i]) > c.opts.ConnectMaxDistance {
					continue
				}

				// The connecting line must be the closest as seen from
				// the robot.
				distI := lines[i].AField.Mid(lines[i].BField).SquaredNorm()
				if lines[j].AField.Mid(lines[j].BField).SquaredNorm() < distI ||
					lines[k].AField.Mid(lines[k].BField).SquaredNorm() < distI {
					continue
				}

				// Rough angle plausibility in image coordinates.
				angleIJ := imageAngle(lines[i], lines[j])
				angleIK := imageAngle(lines[i], lines[k])
				angleJK := imageAngle(lines[j], lines[k])
				if angleIJ < c.opts.MinCornerAngle || angleIJ > math.Pi-c.opts.MinCornerAngle ||
					angleIK < c.opts.MinCornerAngle || angleIK > math.Pi-c.opts.MinCornerAngle ||
					angleJK > c.opts.MaxParallelAngle {
					continue
				}

				visible = true
				if !record {
					continue
				}

				cl1, ok1 := c.fitPercept(frame, lines[i], proj)
				cl2, ok2 := c.fitPercept(frame, lines[j], proj)
				cl3, ok3 := c.fitPercept(frame, lines[k], proj)
				if !ok1 || !ok2 || !ok3 {
					continue
				}

				sup2 := geometry.LineThrough(cl2.AField, cl2.BField)
				distance := sup2.SignedDistanceTo(cl3.AField.Mid(cl3.BField))
				combinedOffset := cl3.Offset - cl2.Offset
				if distance > 0 {
					combinedOffset = cl2.Offset - cl3.Offset
				}

				if !rng.contains(math.Abs(distance) - combinedOffset) {
					discarded = true
					continue
				}
				found = true
				c.log.Infow("recording corner configuration",
					"parallelDistance", math.Abs(distance), "combinedOffset", combinedOffset)

				// The longer of the two long lines serves as the
				// orthogonal reference for the corner angle.
				longer := cl3
				if cl2.BField.Sub(cl2.AField).SquaredNorm() > cl3.BField.Sub(cl3.AField).SquaredNorm() {
					longer = cl2
				}
				if cfg.NeedToRecord(table, CornerAngle) {
					cfg.Record(table, CornerAngle, &cornerAngleSample{sampleContext: ctx, line1: cl1, line2: longer})
				}
				if cfg.NeedToRecord(table, ParallelAngle) {
					cfg.Record(table, ParallelAngle, &parallelAngleSample{sampleContext: ctx, line1: cl2, line2: cl3})
				}
				if cfg.NeedToRecord(table, ParallelLinesDistance) {
					cfg.Record(table, ParallelLinesDistance, &parallelLinesDistanceSample{sampleContext: ctx, line1: cl2, line2: cl3})
				}
			}
		}
	}

	if record && rng.update(discarded, found, c.opts.DiscardsUntilWiden, c.opts.RangeWidenStep) {
		c.log.Infow("widened acceptance range", "range", "parallelLines", "min", rng.min, "max", rng.max)
	}
	return visible
}

// searchMarkPairs looks for the two long lines beyond the detected mark
// (front goal area line and ground line) and records the mark-distance
// samples plus the parallel samples the pair also supports.
func (c *Collector) searchMarkPairs(frame *Frame, cfg *SampleConfig, table *SampleTable, ctx sampleContext, proj Projection, record bool) bool {
	visible := false
	discardedGA, foundGA := false, false
	discardedGL, foundGL := false, false
	gaRange := c.goalAreaRange[cfg.Camera]
	glRange := c.groundLineRange[cfg.Camera]
	lines := frame.Lines
	mark := frame.Mark

	for i := range lines {
		for j := i + 1; j < len(lines); j++ {
			// Both lines should span at least half the image width.
			halfWidth := float64(frame.Capture.Info.Width) / 2
			if math.Abs(lines[i].AImage.X-lines[i].BImage.X) < halfWidth ||
				math.Abs(lines[j].AImage.X-lines[j].BImage.X) < halfWidth {
				continue
			}
			// The lines must not cross between their endpoints.
			if geometry.IsPointLeftOf(lines[i].AField, lines[i].BField, lines[j].AField) !=
				geometry.IsPointLeftOf(lines[i].AField, lines[i].BField, lines[j].BField) {
				continue
			}
			// Both lines should be behind the mark. This filters the
			// front goal area line's counterpart nearer to the robot.
			distI := lines[i].AField.Mid(lines[i].BField).SquaredNorm()
			distJ := lines[j].AField.Mid(lines[j].BField).SquaredNorm()
			if math.Min(distI, distJ) < mark.OnField.SquaredNorm() {
				continue
			}

			visible = true
			if !record {
				continue
			}

			nearLine, farLine := lines[i], lines[j]
			if distI > distJ {
				nearLine, farLine = lines[j], lines[i]
			}
			clGoalArea, okGA := c.fitPercept(frame, nearLine, proj)
			clGroundLine, okGL := c.fitPercept(frame, farLine, proj)
			if !okGA || !okGL {
				continue
			}

			gaDistance := geometry.LineThrough(clGoalArea.AField, clGoalArea.BField).DistanceTo(mark.OnField)
			glDistance := geometry.LineThrough(clGroundLine.AField, clGroundLine.BField).DistanceTo(mark.OnField)

			gaValid := gaRange.contains(gaDistance - clGoalArea.Offset)
			glValid := glRange.contains(glDistance - clGroundLine.Offset)
			if gaValid {
				foundGA = true
			} else {
				discardedGA = true
			}
			if glValid {
				foundGL = true
			} else {
				discardedGL = true
			}
			if !gaValid || !glValid {
				continue
			}

			c.log.Infow("recording mark configuration",
				"goalAreaDistance", gaDistance, "groundLineDistance", glDistance)

			if cfg.NeedToRecord(table, GoalAreaDistance) {
				cfg.Record(table, GoalAreaDistance, &markDistanceSample{
					sampleContext: ctx, kind: GoalAreaDistance, markInImage: mark.InImage, line: clGoalArea,
				})
			}
			if cfg.NeedToRecord(table, GroundLineDistance) {
				cfg.Record(table, GroundLineDistance, &markDistanceSample{
					sampleContext: ctx, kind: GroundLineDistance, markInImage: mark.InImage, line: clGroundLine,
				})
			}
			if cfg.NeedToRecord(table, ParallelAngle) {
				cfg.Record(table, ParallelAngle, &parallelAngleSample{sampleContext: ctx, line1: clGoalArea, line2: clGroundLine})
			}
			if cfg.NeedToRecord(table, ParallelLinesDistance) {
				cfg.Record(table, ParallelLinesDistance, &parallelLinesDistanceSample{sampleContext: ctx, line1: clGoalArea, line2: clGroundLine})
			}
		}
	}

	if record {
		if gaRange.update(discardedGA, foundGA, c.opts.DiscardsUntilWiden, c.opts.RangeWidenStep) {
			c.log.Infow("widened acceptance range", "range", "goalArea", "min", gaRange.min, "max", gaRange.max)
		}
		if glRange.update(discardedGL, foundGL, c.opts.DiscardsUntilWiden, c.opts.RangeWidenStep) {
			c.log.Infow("widened acceptance range", "range", "groundLine", "min", glRange.min, "max", glRange.max)
		}
	}
	return visible
}

// fitPercept refines a perceived line through the line fitter for the
// current frame.
func (c *Collector) fitPercept(frame *Frame, line PerceivedLine, proj Projection) (CorrectedLine, bool) {
	cl := CorrectedLine{AImage: line.AImage, BImage: line.BImage}
	if frame.Image == nil {
		return cl, false
	}
	ok := c.fitter.Fit(*frame.Image, proj, &cl)
	return cl, ok
}

// connectDistance returns the smaller ground-plane distance from the
// connecting line's endpoints to the long line's segment.
func (c *Collector) connectDistance(long, connecting PerceivedLine) float64 {
	return math.Min(
		geometry.DistanceToSegment(long.AField, long.BField, connecting.AField),
		geometry.DistanceToSegment(long.AField, long.BField, connecting.BField),
	)
}

// imageAngle returns the angle between two perceived lines in image
// coordinates.
func imageAngle(a, b PerceivedLine) float64 {
	return geometry.SegmentAngle(a.AImage, a.BImage, b.AImage, b.BImage)
}

// resetDiscards clears the discard counters of all acceptance ranges.
func (c *Collector) resetDiscards() {
	for cam := 0; cam < 2; cam++ {
		c.parallelRange[cam].resetDiscards()
		c.goalAreaRange[cam].resetDiscards()
		c.groundLineRange[cam].resetDiscards()
	}
}
