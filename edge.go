package depthmatch

// EdgeDetector turns the per-tick "confirm held" level into one-shot press
// edges. It is owned by a single Session and is not safe for concurrent use.
type EdgeDetector struct {
	previous bool
	invalid  bool
}

// Sample reports whether raw went from released to held since the last
// sample. While the source is unavailable every sample returns false. The
// first available sample after an outage only re-seeds the detector, so a
// button held across the reconnect cannot produce an edge.
func (d *EdgeDetector) Sample(raw, available bool) bool {
	if !available {
		d.invalid = true
		d.previous = false
		return false
	}
	if d.invalid {
		d.invalid = false
		d.previous = raw
		return false
	}
	edge := raw && !d.previous
	d.previous = raw
	return edge
}

// Reset forgets any held state.
func (d *EdgeDetector) Reset() {
	d.previous = false
	d.invalid = false
}
