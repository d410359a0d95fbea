package calib

import "camera-calibrator/internal/camera"

// SampleTable is the global arena of recorded samples, one slot per
// (configuration, sample kind) pair across the whole calibration run. Its
// size is fixed when a run starts; slots fill as samples are recorded and
// are only cleared by a full run restart.
type SampleTable struct {
	slots []Sample
}

// NewSampleTable returns a table with the given number of empty slots.
func NewSampleTable(size int) *SampleTable {
	return &SampleTable{slots: make([]Sample, size)}
}

// Reset discards all samples and resizes the table.
func (t *SampleTable) Reset(size int) {
	t.slots = make([]Sample, size)
}

// Len returns the number of slots.
func (t *SampleTable) Len() int {
	return len(t.slots)
}

// Recorded returns all non-empty samples in slot order.
func (t *SampleTable) Recorded() []Sample {
	out := make([]Sample, 0, len(t.slots))
	for _, s := range t.slots {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Full reports whether every slot is filled.
func (t *SampleTable) Full() bool {
	for _, s := range t.slots {
		if s == nil {
			return false
		}
	}
	return len(t.slots) > 0
}

// SampleConfig is one requested unit of data collection: a camera, a head
// pose and a set of sample kinds. Each requested kind owns a fixed slot in
// the sample table, resolved once at creation time from the configuration's
// base index and the fixed kind order.
type SampleConfig struct {
	Camera   camera.ID
	HeadPan  float64
	HeadTilt float64
	Kinds    KindSet

	slots map[SampleKind]int
}

// newSampleConfig resolves the table slots for a configuration request.
// baseIndex is the number of sample slots claimed by earlier
// configurations.
func newSampleConfig(req ConfigRequest, baseIndex int) *SampleConfig {
	slots := make(map[SampleKind]int, req.Kinds.Count())
	index := baseIndex
	for k := SampleKind(0); k < NumSampleKinds; k++ {
		if req.Kinds.Contains(k) {
			slots[k] = index
			index++
		}
	}
	return &SampleConfig{
		Camera:   req.Camera,
		HeadPan:  req.HeadPan,
		HeadTilt: req.HeadTilt,
		Kinds:    req.Kinds,
		slots:    slots,
	}
}

// NeedToRecord reports whether the configuration requests the given kind
// and its slot is still empty.
func (c *SampleConfig) NeedToRecord(t *SampleTable, k SampleKind) bool {
	slot, ok := c.slots[k]
	if !ok || slot >= t.Len() {
		return false
	}
	return t.slots[slot] == nil
}

// Record stores a sample in the slot owned by its kind. Samples for kinds
// the configuration did not request are dropped.
func (c *SampleConfig) Record(t *SampleTable, k SampleKind, s Sample) {
	slot, ok := c.slots[k]
	if !ok || slot >= t.Len() {
		return
	}
	t.slots[slot] = s
}

// SamplesExist reports whether every slot owned by this configuration is
// filled.
func (c *SampleConfig) SamplesExist(t *SampleTable) bool {
	for _, slot := range c.slots {
		if slot >= t.Len() || t.slots[slot] == nil {
			return false
		}
	}
	return true
}
