// Package calib implements automatic estimation of the head calibration
// parameters from observed field markings. It refines detected line
// segments to sub-pixel accuracy, collects typed calibration samples at
// commanded head poses and runs an iterative Gauss-Newton optimization
// over the six correction angles until the reprojected geometry matches
// the known field layout.
package calib

import (
	"time"

	"camera-calibrator/internal/camera"
)

// RunState is the state of the calibration run.
type RunState int

const (
	Idle RunState = iota
	RecordSamples
	Optimize
)

func (s RunState) String() string {
	switch s {
	case Idle:
		return "idle"
	case RecordSamples:
		return "recordSamples"
	case Optimize:
		return "optimize"
	default:
		return "unknown"
	}
}

// SampleKind identifies one kind of calibration sample. The declaration
// order is fixed: it determines the slot order within a configuration's
// region of the sample table.
type SampleKind int

const (
	CornerAngle SampleKind = iota
	ParallelAngle
	ParallelLinesDistance
	GoalAreaDistance
	GroundLineDistance

	NumSampleKinds
)

func (k SampleKind) String() string {
	switch k {
	case CornerAngle:
		return "cornerAngle"
	case ParallelAngle:
		return "parallelAngle"
	case ParallelLinesDistance:
		return "parallelLinesDistance"
	case GoalAreaDistance:
		return "goalAreaDistance"
	case GroundLineDistance:
		return "groundLineDistance"
	default:
		return "unknown"
	}
}

// KindSet is a bitmask of sample kinds.
type KindSet uint8

// Kinds builds a KindSet from individual kinds.
func Kinds(kinds ...SampleKind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s |= 1 << uint(k)
	}
	return s
}

// Contains reports whether the set contains the given kind.
func (s KindSet) Contains(k SampleKind) bool {
	return s&(1<<uint(k)) != 0
}

// Count returns the number of kinds in the set.
func (s KindSet) Count() int {
	n := 0
	for k := SampleKind(0); k < NumSampleKinds; k++ {
		if s.Contains(k) {
			n++
		}
	}
	return n
}

// ConfigRequest asks the calibrator to collect a specific set of sample
// kinds with a specific camera at a specific head pose. Index must increase
// monotonically; a new index starts a new sample configuration.
type ConfigRequest struct {
	Index    int
	Camera   camera.ID
	HeadPan  float64
	HeadTilt float64
	Kinds    KindSet
	Record   bool
}

// Request is the external calibration request read every cycle.
type Request struct {
	TargetState  RunState
	TotalSamples int
	Config       *ConfigRequest
}

// ConfigStatus describes the progress of the active sample configuration.
type ConfigStatus int

const (
	ConfigNone ConfigStatus = iota
	ConfigVisible
	ConfigNotVisible
	ConfigRecording
	ConfigFinished
)

func (s ConfigStatus) String() string {
	switch s {
	case ConfigNone:
		return "none"
	case ConfigVisible:
		return "visible"
	case ConfigNotVisible:
		return "notVisible"
	case ConfigRecording:
		return "recording"
	case ConfigFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Status is the per-cycle status record of the calibrator.
type Status struct {
	State  RunState
	Since  time.Time
	Config ConfigStatus
}
