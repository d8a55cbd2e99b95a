package stereo

import "sync/atomic"

// DirtyFlag is the coalescing signal between content producers and the frame loop. Any number
// of Mark calls between two frames collapse into a single TakeAndClear that reports true.
// The zero value is clean and ready to use.
type DirtyFlag struct {
	set atomic.Bool
}

// Mark records that the content source changed. Safe from any goroutine.
func (f *DirtyFlag) Mark() {
	f.set.Store(true)
}

// TakeAndClear reports whether the flag was set and clears it in the same atomic step. Only the
// frame loop calls it, once per frame.
//
// Returns:
//   - bool: true if at least one Mark happened since the previous TakeAndClear
func (f *DirtyFlag) TakeAndClear() bool {
	return f.set.Swap(false)
}

// IsSet reports the flag without clearing it.
//
// Returns:
//   - bool: true if a refresh is pending
func (f *DirtyFlag) IsSet() bool {
	return f.set.Load()
}
