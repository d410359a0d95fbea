package calib

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"camera-calibrator/internal/camera"
	"camera-calibrator/internal/field"
)

// emptyTestImage returns a blank grayscale frame image, closed when the
// test finishes.
func emptyTestImage(t *testing.T) *gocv.Mat {
	t.Helper()
	img := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8U)
	t.Cleanup(func() { img.Close() })
	return &img
}

func testCalibrator() *Calibrator {
	kin := ChainKinematics(camera.NewChain(camera.DefaultHeadGeometry()))
	return New(DefaultOptions(), field.Default(), kin, rand.New(rand.NewSource(1)), zap.NewNop().Sugar())
}

func idleFrame(target RunState) *Frame {
	return &Frame{
		Time:    time.Unix(100, 0),
		Capture: camera.Capture{Camera: camera.Upper, Info: camera.DefaultInfo()},
		Request: Request{TargetState: target, TotalSamples: 2},
	}
}

func TestCalibratorStartsIdle(t *testing.T) {
	c := testCalibrator()
	assert.Equal(t, Idle, c.State())

	current := camera.Parameters{UpperTilt: 0.01}
	frame := idleFrame(Idle)
	frame.Current = current
	out, status := c.Update(frame)

	// While idle the calibration passes through untouched.
	assert.Equal(t, current, out)
	assert.Equal(t, Idle, status.State)
	assert.Equal(t, ConfigNone, status.Config)
}

func TestCalibratorStartsRecording(t *testing.T) {
	c := testCalibrator()
	_, status := c.Update(idleFrame(RecordSamples))
	assert.Equal(t, RecordSamples, status.State)
	assert.Equal(t, RecordSamples, c.State())
}

func TestCalibratorAbortResetsState(t *testing.T) {
	c := testCalibrator()
	c.Update(idleFrame(RecordSamples))
	require.Equal(t, RecordSamples, c.State())

	_, status := c.Update(idleFrame(Idle))
	assert.Equal(t, Idle, status.State)
	assert.Zero(t, c.table.Len())
}

func TestCalibratorConfigStatus(t *testing.T) {
	c := testCalibrator()

	frame := idleFrame(RecordSamples)
	frame.Request.Config = &ConfigRequest{
		Index:  0,
		Camera: camera.Upper,
		Kinds:  Kinds(ParallelAngle),
	}
	frame.Request.TotalSamples = 1
	frame.Image = emptyTestImage(t)

	t.Run("nothing visible without percepts", func(t *testing.T) {
		_, status := c.Update(frame)
		assert.Equal(t, ConfigNotVisible, status.Config)
	})

	t.Run("visible without recording", func(t *testing.T) {
		frame.Lines = cornerLines()
		_, status := c.Update(frame)
		assert.Equal(t, ConfigVisible, status.Config)
		assert.Empty(t, c.table.Recorded())
	})

	t.Run("recording while record is requested", func(t *testing.T) {
		frame.Request.Config.Record = true
		_, status := c.Update(frame)
		// The synthetic frame has no usable image data, so the fit
		// fails and the slot stays open.
		assert.Equal(t, ConfigRecording, status.Config)
		assert.Empty(t, c.table.Recorded())
	})

	t.Run("finished once the slot is filled", func(t *testing.T) {
		c.cfg.Record(c.table, ParallelAngle, stubSample{kind: ParallelAngle})
		_, status := c.Update(frame)
		assert.Equal(t, ConfigFinished, status.Config)
	})
}

func TestCalibratorNewConfigClaimsNextSlots(t *testing.T) {
	c := testCalibrator()

	frame := idleFrame(RecordSamples)
	frame.Request.TotalSamples = 2
	frame.Request.Config = &ConfigRequest{Index: 0, Camera: camera.Upper, Kinds: Kinds(ParallelAngle)}
	c.Update(frame)
	c.cfg.Record(c.table, ParallelAngle, stubSample{kind: ParallelAngle})

	// A second configuration records into the next slot, leaving the
	// first sample in place.
	frame.Request.Config = &ConfigRequest{Index: 1, Camera: camera.Upper, Kinds: Kinds(CornerAngle)}
	c.Update(frame)
	c.cfg.Record(c.table, CornerAngle, stubSample{kind: CornerAngle})

	recorded := c.table.Recorded()
	require.Len(t, recorded, 2)
	assert.Equal(t, ParallelAngle, recorded[0].Kind())
	assert.Equal(t, CornerAngle, recorded[1].Kind())
	assert.True(t, c.table.Full())
}

func TestCalibratorRepeatedConfigIndexKeepsSlots(t *testing.T) {
	c := testCalibrator()

	frame := idleFrame(RecordSamples)
	frame.Request.TotalSamples = 1
	frame.Request.Config = &ConfigRequest{Index: 0, Camera: camera.Upper, Kinds: Kinds(ParallelAngle)}
	c.Update(frame)
	first := c.cfg
	c.Update(frame)
	assert.Same(t, first, c.cfg)
}

func TestCalibratorOptimizeWithoutSamplesHoldsParameters(t *testing.T) {
	c := testCalibrator()
	c.Update(idleFrame(RecordSamples))

	current := camera.Parameters{LowerRoll: 0.02}
	frame := idleFrame(Optimize)
	frame.Current = current
	out, status := c.Update(frame)

	assert.Equal(t, Optimize, status.State)
	assert.Equal(t, current, out)
}

func TestCalibratorRestartDiscardsOldSamples(t *testing.T) {
	c := testCalibrator()

	frame := idleFrame(RecordSamples)
	frame.Request.TotalSamples = 1
	frame.Request.Config = &ConfigRequest{Index: 0, Camera: camera.Upper, Kinds: Kinds(ParallelAngle)}
	c.Update(frame)
	c.cfg.Record(c.table, ParallelAngle, stubSample{kind: ParallelAngle})
	require.True(t, c.table.Full())

	// Abort, then start a second run: the table must be empty again and
	// the same configuration index claims slots from the start.
	c.Update(idleFrame(Idle))
	c.Update(frame)
	assert.Equal(t, 1, c.table.Len())
	assert.Empty(t, c.table.Recorded())
	assert.True(t, c.cfg.NeedToRecord(c.table, ParallelAngle))
}

func TestCalibratorNewRunReseedsAcceptanceRanges(t *testing.T) {
	c := testCalibrator()
	c.Update(idleFrame(RecordSamples))

	rng := c.collector.parallelRange[camera.Upper]
	seedMin, seedMax := rng.min, rng.max
	opts := DefaultOptions()
	for i := 0; i < opts.DiscardsUntilWiden; i++ {
		rng.update(true, false, opts.DiscardsUntilWiden, opts.RangeWidenStep)
	}
	require.Less(t, rng.min, seedMin)

	// Abort and start again: bounds widened in the first run must not
	// survive into the second.
	c.Update(idleFrame(Idle))
	c.Update(idleFrame(RecordSamples))
	assert.Equal(t, seedMin, c.collector.parallelRange[camera.Upper].min)
	assert.Equal(t, seedMax, c.collector.parallelRange[camera.Upper].max)
}
