package calib

import (
	"math"

	"gocv.io/x/gocv"

	"camera-calibrator/pkg/geometry"
)

// CorrectedLine is a line segment refined to sub-pixel accuracy. AField and
// BField are the ground-plane points of the image endpoints, filled in by a
// successful unprojection. Offset is half the painted line width, signed by
// which paint edge the refined line follows.
type CorrectedLine struct {
	AImage geometry.Point2D
	BImage geometry.Point2D
	AField geometry.Point2D
	BField geometry.Point2D
	Offset float64
}

// project fills in the ground-plane endpoints of the line under the given
// projection. It reports false if either endpoint cannot be unprojected.
func (cl *CorrectedLine) project(proj Projection) bool {
	a, okA := proj.ImageToGround(cl.AImage)
	if !okA {
		return false
	}
	b, okB := proj.ImageToGround(cl.BImage)
	if !okB {
		return false
	}
	cl.AField, cl.BField = a, b
	return true
}

// LineFitter turns an approximate image-space line segment into an accurate
// one by accumulating edge strength in angle/distance space over a window
// around the segment.
type LineFitter struct {
	opts          Options
	tables        *angleTables
	halfLineWidth float64
}

// NewLineFitter returns a line fitter for painted lines of the given
// physical width.
func NewLineFitter(opts Options, lineWidth float64) *LineFitter {
	return &LineFitter{opts: opts, tables: newAngleTables(), halfLineWidth: lineWidth / 2}
}

// Fit refines the segment in cl.AImage/cl.BImage against the grayscale
// image and unprojects the refined endpoints through proj. On success the
// corrected line is complete, including its width offset. On failure cl is
// left in an unspecified state and must not be used.
func (f *LineFitter) Fit(img gocv.Mat, proj Projection, cl *CorrectedLine) bool {
	start, end := cl.AImage, cl.BImage
	if end.X < start.X {
		start, end = end, start
	}

	// Size of the image section to be processed. The width is rounded up
	// to a multiple of 16.
	mid := start.Mid(end)
	sizeX := ((max(32, int(end.X-start.X)) + 15) / 16) * 16
	sizeY := max(32, absInt(int(end.Y-start.Y)))
	startX := int(mid.X) - sizeX/2
	startY := int(mid.Y) - sizeY/2

	gray := extractPatch(img, startX, startY, sizeX, sizeY)
	defer gray.Close()

	gradX := gocv.NewMat()
	defer gradX.Close()
	gradY := gocv.NewMat()
	defer gradY.Close()
	gocv.Sobel(gray, &gradX, gocv.MatTypeCV16S, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(gray, &gradY, gocv.MatTypeCV16S, 0, 1, 3, 1, 0, gocv.BorderDefault)

	// The approximate line angle is known, so only a +-10 degree sector
	// around its perpendicular is considered.
	perp := end.Sub(start).Normalized().RotatedLeft()
	angle := math.Mod(math.Atan2(perp.Y, perp.X)+math.Pi, math.Pi)
	minAngle := math.Mod(normalizeAngle(angle-degrees(10))+math.Pi, math.Pi)
	maxAngle := math.Mod(normalizeAngle(angle+degrees(10))+math.Pi, math.Pi)
	minIndex := int(minAngle*numAngles/math.Pi) % numAngles
	maxIndex := int(maxAngle*numAngles/math.Pi) % numAngles

	acc := newAccumulator(f.tables, sizeX, sizeY)
	f.accumulate(gradX, gradY, minIndex, maxIndex, acc)

	maxima := acc.localMaxima(minIndex, maxIndex)
	if len(maxima) < 2 {
		return false
	}
	sortMaxima(maxima, minIndex)

	windowOrigin := geometry.Point2D{X: float64(startX), Y: float64(startY)}
	optimal := f.edgeLine(maxima[0], acc.dMax, windowOrigin)

	// Bounding lines perpendicular to the dominant extent of the segment,
	// through the original endpoints.
	norm := geometry.Point2D{X: 1, Y: 0}
	if math.Abs(start.X-end.X) < math.Abs(start.Y-end.Y) {
		norm = geometry.Point2D{X: 0, Y: 1}
	}
	boundStart := geometry.HyperplaneFor(norm, start)
	boundEnd := geometry.HyperplaneFor(norm, end)

	newA, okA := optimal.Intersect(boundStart)
	newB, okB := optimal.Intersect(boundEnd)
	if !okA || !okB {
		return false
	}

	// Find the opposite paint edge among the weaker maxima. Its side
	// determines the sign of the width offset.
	for _, m := range maxima[1:] {
		opposite := f.edgeLine(m, acc.dMax, windowOrigin)
		startOpp, ok1 := opposite.Intersect(boundStart)
		endOpp, ok2 := opposite.Intersect(boundEnd)
		if !ok1 || !ok2 {
			continue
		}

		if (optimal.SignedDistance(startOpp) < 0) != (optimal.SignedDistance(endOpp) < 0) ||
			optimal.Distance(startOpp) < f.opts.MinEdgeSeparation ||
			optimal.Distance(endOpp) < f.opts.MinEdgeSeparation {
			continue
		}

		if optimal.SignedDistance(startOpp.Mid(endOpp)) > 0 {
			cl.Offset = f.halfLineWidth
		} else {
			cl.Offset = -f.halfLineWidth
		}
		cl.AImage, cl.BImage = newA, newB
		return cl.project(proj)
	}
	return false
}

// edgeLine converts an accumulator maximum into a hyperplane in image
// coordinates.
func (f *LineFitter) edgeLine(m maximum, dMax int, origin geometry.Point2D) geometry.Hyperplane {
	distance := float64(m.distanceIndex - dMax)
	n0 := geometry.Point2D{X: f.tables.cos[m.angleIndex], Y: f.tables.sin[m.angleIndex]}
	pointOnLine := n0.Scale(distance).Add(origin)
	return geometry.HyperplaneFor(n0, pointOnLine)
}

// accumulate votes every pixel whose squared gradient magnitude reaches the
// significance threshold into the accumulator, once per sector angle.
func (f *LineFitter) accumulate(gradX, gradY gocv.Mat, minIndex, maxIndex int, acc *accumulator) {
	thresh := f.gradientThreshold(gradX, gradY)
	rows, cols := gradX.Rows(), gradX.Cols()
	for y := 1; y < rows-1; y++ {
		for x := 1; x < cols-1; x++ {
			gx := int(gradX.GetShortAt(y, x))
			gy := int(gradY.GetShortAt(y, x))
			if float64(gx*gx+gy*gy) >= thresh {
				acc.vote(x, y, minIndex, maxIndex)
			}
		}
	}
}

// gradientThreshold derives the voting threshold from the strongest
// gradient in the window.
func (f *LineFitter) gradientThreshold(gradX, gradY gocv.Mat) float64 {
	maxSq := 0
	rows, cols := gradX.Rows(), gradX.Cols()
	for y := 1; y < rows-1; y++ {
		for x := 1; x < cols-1; x++ {
			gx := int(gradX.GetShortAt(y, x))
			gy := int(gradY.GetShortAt(y, x))
			if v := gx*gx + gy*gy; v > maxSq {
				maxSq = v
			}
		}
	}
	t := math.Sqrt(float64(maxSq)) * f.opts.SobelThresholdFraction
	return t * t
}

// extractPatch copies a window of the grayscale image into a new Mat.
// Pixels outside the image stay zero.
func extractPatch(img gocv.Mat, startX, startY, sizeX, sizeY int) gocv.Mat {
	patch := gocv.NewMatWithSize(sizeY, sizeX, gocv.MatTypeCV8U)
	rows, cols := img.Rows(), img.Cols()
	for y := 0; y < sizeY; y++ {
		srcY := startY + y
		if srcY < 0 || srcY >= rows {
			continue
		}
		for x := 0; x < sizeX; x++ {
			srcX := startX + x
			if srcX < 0 || srcX >= cols {
				continue
			}
			patch.SetUCharAt(y, x, img.GetUCharAt(srcY, srcX))
		}
	}
	return patch
}

// normalizeAngle wraps an angle into (-pi, pi].
func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

func absInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
