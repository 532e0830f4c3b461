package engine

import "sync"

// Accumulator is the ordered log of heuristic values ("toMinimize") for the
// current test case.
//
// Values are only ever appended; the log is cleared as a whole by Reset.
// Each Reset starts a new epoch. AppendAt drops a value computed in an
// earlier epoch, which settles a reset racing an in-flight observation in
// favor of the reset.
//
// Thread-safety: all methods are safe for concurrent use. A Snapshot sees
// the log either entirely before or entirely after any Reset.
type Accumulator struct {
	mu     sync.Mutex
	values []float64
	epoch  int64
}

// NewAccumulator creates an empty accumulator in epoch 0.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// NewAccumulatorAt creates an empty accumulator in the given epoch.
// Used to continue the epoch numbering of an existing observation store.
func NewAccumulatorAt(epoch int64) *Accumulator {
	return &Accumulator{epoch: epoch}
}

// Append adds v to the end of the log in the current epoch.
func (a *Accumulator) Append(v float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values = append(a.values, v)
}

// AppendAt adds v only if epoch is still the current epoch.
// Returns false when a Reset happened since epoch was read.
func (a *Accumulator) AppendAt(epoch int64, v float64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if epoch != a.epoch {
		return false
	}
	a.values = append(a.values, v)
	return true
}

// Epoch returns the current epoch.
func (a *Accumulator) Epoch() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.epoch
}

// Snapshot returns a copy of the log in append order.
// Returns an empty slice (not nil) when the log is empty.
func (a *Accumulator) Snapshot() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]float64, len(a.values))
	copy(out, a.values)
	return out
}

// Len returns the number of values in the log.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.values)
}

// Reset clears the log and starts a new epoch, which it returns.
func (a *Accumulator) Reset() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values = nil
	a.epoch++
	return a.epoch
}
