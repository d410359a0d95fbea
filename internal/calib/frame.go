package calib

import (
	"time"

	"gocv.io/x/gocv"

	"camera-calibrator/internal/camera"
	"camera-calibrator/pkg/geometry"
)

// PerceivedLine is a detected line segment from upstream perception, with
// image-space endpoints and their ground projections under the current
// calibration.
type PerceivedLine struct {
	AImage geometry.Point2D
	BImage geometry.Point2D
	AField geometry.Point2D
	BField geometry.Point2D
}

// PerceivedMark is the detected fixed-distance mark.
type PerceivedMark struct {
	InImage geometry.Point2D
	OnField geometry.Point2D
}

// Frame is the read-only snapshot of one processing cycle.
type Frame struct {
	Time    time.Time
	Capture camera.Capture
	Image   *gocv.Mat // Grayscale image, nil when no image data is available
	Lines   []PerceivedLine
	Mark    *PerceivedMark
	Request Request
	Current camera.Parameters
}
