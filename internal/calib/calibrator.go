package calib

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"camera-calibrator/internal/camera"
	"camera-calibrator/internal/field"
)

// Calibrator drives the whole calibration pipeline: it tracks the run
// state, resolves sample configuration requests, collects samples while
// recording and advances the optimizer while optimizing. One call to
// Update per processing cycle; no internal concurrency.
type Calibrator struct {
	opts      Options
	log       *zap.SugaredLogger
	collector *Collector
	optimizer *Optimizer
	table     *SampleTable

	state RunState
	since time.Time
	next  camera.Parameters

	cfg             *SampleConfig
	lastConfigIndex int
	claimedSlots    int
	visible         bool
}

// New returns a calibrator. kin provides the projection capability, rng the
// seedable source for restart perturbations. A nil logger disables
// diagnostics.
func New(opts Options, dims field.Dimensions, kin Kinematics, rng *rand.Rand, log *zap.SugaredLogger) *Calibrator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Calibrator{
		opts:            opts,
		log:             log,
		collector:       NewCollector(opts, dims, kin, log),
		optimizer:       NewOptimizer(opts, rng, log),
		table:           NewSampleTable(0),
		state:           Idle,
		lastConfigIndex: -1,
	}
}

// State returns the current run state.
func (c *Calibrator) State() RunState {
	return c.state
}

// Update processes one cycle's snapshot. It returns the calibration
// parameters to publish this cycle (equal to the input while idle) and the
// status record.
func (c *Calibrator) Update(frame *Frame) (camera.Parameters, Status) {
	c.next = frame.Current
	c.updateConfig(frame.Request)

	// Calibration start requested.
	if c.state == Idle && frame.Request.TargetState == RecordSamples {
		c.startRun(frame)
	}

	// Abort requested: any transition back to idle resets all transient
	// state.
	if frame.Request.TargetState == Idle && c.state != Idle {
		c.optimizer.Reset()
		c.collector.Reset()
		c.table.Reset(0)
		c.setState(Idle, frame.Time)
	}

	c.visible = false
	if c.state == RecordSamples && c.cfg != nil && frame.Request.Config != nil && frame.Image != nil {
		c.visible = c.collector.Collect(frame, c.cfg, c.table)
	}

	if frame.Request.TargetState == Optimize && c.state != Optimize {
		c.setState(Optimize, frame.Time)
	}
	if c.state == Optimize {
		params, accepted := c.optimizer.Step(c.next, c.table.Recorded())
		c.next = params
		if accepted {
			c.setState(Idle, frame.Time)
		}
	}

	return c.next, c.status(frame)
}

// startRun begins a new recording run: fresh sample table, fresh optimizer
// state, fresh acceptance ranges, slot accounting restarted at zero. An active configuration request
// is re-resolved against the new table.
func (c *Calibrator) startRun(frame *Frame) {
	c.optimizer.Reset()
	c.collector.Reset()
	c.table.Reset(frame.Request.TotalSamples)
	c.claimedSlots = 0
	c.cfg = nil
	if req := frame.Request.Config; req != nil {
		c.cfg = newSampleConfig(*req, 0)
		c.claimedSlots = req.Kinds.Count()
		c.lastConfigIndex = req.Index
	}
	c.setState(RecordSamples, frame.Time)
}

// updateConfig resolves a new sample configuration when the request index
// advances. Configurations are immutable once created; their table slots
// follow the order of the requests.
func (c *Calibrator) updateConfig(req Request) {
	if req.Config == nil || req.Config.Index == c.lastConfigIndex {
		return
	}
	c.cfg = newSampleConfig(*req.Config, c.claimedSlots)
	c.claimedSlots += req.Config.Kinds.Count()
	c.lastConfigIndex = req.Config.Index
	c.log.Infow("new sample configuration",
		"index", req.Config.Index, "camera", req.Config.Camera.String(), "kinds", req.Config.Kinds.Count())
}

func (c *Calibrator) setState(s RunState, at time.Time) {
	if c.state == s {
		return
	}
	c.log.Infow("state change", "from", c.state.String(), "to", s.String())
	c.state = s
	c.since = at
}

func (c *Calibrator) status(frame *Frame) Status {
	st := Status{State: c.state, Since: c.since, Config: ConfigNone}
	if frame.Request.Config == nil {
		return st
	}
	if c.visible {
		st.Config = ConfigVisible
		if frame.Request.Config.Record {
			st.Config = ConfigRecording
		}
	} else {
		st.Config = ConfigNotVisible
	}
	if c.cfg != nil && c.cfg.SamplesExist(c.table) {
		st.Config = ConfigFinished
	}
	return st
}
