package keymanager

// reentrancyTracker counts in-flight gateway entries. Execution is
// single-threaded per call tree, so a plain counter suffices: depth above
// zero at entry means the gateway re-entered itself, and the acting address
// must then hold REENTRANCY on top of the operation's own bits.
type reentrancyTracker struct {
	depth int
}

// enter records a gateway entry and reports whether it is nested.
func (r *reentrancyTracker) enter() (nested bool) {
	nested = r.depth > 0
	r.depth++

	return nested
}

// exit unwinds one entry; callers pair it with enter via defer.
func (r *reentrancyTracker) exit() {
	if r.depth > 0 {
		r.depth--
	}
}
