package ownership

import "errors"

// Result is the outcome of checking an operation log.
type Result struct {
	// Violation is nil when the log is valid.
	Violation *Violation
	Events    []Event
	// Drops lists released values in release order.
	Drops []Drop
	// Ops is the number of operations applied.
	Ops int
}

// Valid reports whether no violation was found.
func (r Result) Valid() bool {
	return r.Violation == nil
}

// Check runs the tracker over ops in order and stops at the first violation.
// The returned error is non-nil only for malformed input and is an *OpError.
func Check(ops []Op, opts Options) (Result, error) {
	t := NewTracker(opts)
	for _, op := range ops {
		v, err := t.Apply(op)
		if err != nil {
			if errors.Is(err, ErrHalted) {
				break
			}
			return Result{}, err
		}
		if v != nil {
			break
		}
	}
	return t.Finish(), nil
}
