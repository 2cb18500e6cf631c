// Package testkit holds invariant checks shared by tests and fuzzers.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"ownck/internal/ownership"
	"ownck/internal/source"
)

// CheckOpSpans verifies the spans a front end attached to ops:
// 1) every span is non-empty and belongs to sf
// 2) every span lies within the content
// 3) spans are strictly ordered and do not overlap
func CheckOpSpans(ops []ownership.Op, sf *source.File) error {
	if sf == nil {
		return fmt.Errorf("nil file")
	}
	lenContent, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	var prev source.Span
	for i, op := range ops {
		sp := op.Span
		if sp.Empty() || sp.End < sp.Start {
			return fmt.Errorf("op %d (%s): empty span %v", i, op, sp)
		}
		if sp.File != sf.ID {
			return fmt.Errorf("op %d (%s): span file %d, want %d", i, op, sp.File, sf.ID)
		}
		if sp.End > lenContent {
			return fmt.Errorf("op %d (%s): span end %d beyond content %d", i, op, sp.End, lenContent)
		}
		if i > 0 && !prev.Before(sp) {
			return fmt.Errorf("op %d (%s): span %v overlaps previous %v", i, op, sp, prev)
		}
		prev = sp
	}
	return nil
}

// CheckResult verifies internal consistency of a checker result:
// drops never repeat a value, the violation index is the last applied
// operation and its related operation precedes it.
func CheckResult(res ownership.Result) error {
	seen := make(map[ownership.ValueID]bool, len(res.Drops))
	for _, d := range res.Drops {
		if seen[d.Value] {
			return fmt.Errorf("value %d dropped twice", d.Value)
		}
		seen[d.Value] = true
	}
	v := res.Violation
	if v == nil {
		return nil
	}
	if v.Index != res.Ops-1 {
		return fmt.Errorf("violation at %d but %d ops applied", v.Index, res.Ops)
	}
	if v.Related >= v.Index {
		return fmt.Errorf("related op %d does not precede violation %d", v.Related, v.Index)
	}
	return nil
}
