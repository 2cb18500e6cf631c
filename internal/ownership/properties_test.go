package ownership

import (
	"fmt"
	"math/rand/v2"
	"testing"
)

const propertyRuns = 200

// sharedOnlyLog builds a log without moves, exclusive borrows or uses of
// names that went out of scope or were released.
func sharedOnlyLog(rng *rand.Rand, n int) []Op {
	type frame struct{ names []string }
	stack := []frame{{}}
	// root maps a reference name to the value it ultimately borrows
	root := make(map[string]string)
	fresh := 0
	next := func(prefix string) string {
		fresh++
		return fmt.Sprintf("%s%d", prefix, fresh)
	}
	visible := func() []string {
		var all []string
		for _, f := range stack {
			all = append(all, f.names...)
		}
		return all
	}
	forget := func(drop func(string) bool) {
		for i := range stack {
			kept := stack[i].names[:0]
			for _, name := range stack[i].names {
				if !drop(name) {
					kept = append(kept, name)
				}
			}
			stack[i].names = kept
		}
	}

	ops := make([]Op, 0, n)
	for len(ops) < n {
		top := &stack[len(stack)-1]
		names := visible()
		switch rng.IntN(6) {
		case 0:
			name := next("v")
			ops = append(ops, Declare(name))
			top.names = append(top.names, name)
		case 1:
			if len(names) == 0 {
				continue
			}
			target := names[rng.IntN(len(names))]
			if rng.IntN(2) == 0 {
				ops = append(ops, BorrowOf(target, BorrowShared))
				continue
			}
			as := next("r")
			ops = append(ops, BorrowAs(target, BorrowShared, as))
			top.names = append(top.names, as)
			if v, ok := root[target]; ok {
				root[as] = v
			} else {
				root[as] = target
			}
		case 2:
			if len(names) == 0 {
				continue
			}
			ops = append(ops, Use(names[rng.IntN(len(names))]))
		case 3:
			ops = append(ops, Enter(next("s")))
			stack = append(stack, frame{})
		case 4:
			if len(stack) == 1 {
				continue
			}
			ops = append(ops, End(""))
			stack = stack[:len(stack)-1]
		case 5:
			if len(names) == 0 {
				continue
			}
			name := names[rng.IntN(len(names))]
			ops = append(ops, Release(name))
			if _, isRef := root[name]; isRef {
				forget(func(n string) bool { return n == name })
			} else {
				forget(func(n string) bool { return root[n] == name })
			}
		}
	}
	return ops
}

func TestPropertySharedOnlyLogsAreValid(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for run := range propertyRuns {
		ops := sharedOnlyLog(rng, 40)
		res, err := Check(ops, Options{})
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v\n%v", run, err, ops)
		}
		if res.Violation != nil {
			t.Fatalf("run %d: expected Valid, got %v\n%v", run, res.Violation, ops)
		}
	}
}

// randomLog draws from a small name pool so that violations are frequent.
func randomLog(rng *rand.Rand, n int) []Op {
	pool := []string{"a", "b", "c", "d"}
	depth := 0
	scopes := 0
	ops := make([]Op, 0, n)
	for len(ops) < n {
		name := pool[rng.IntN(len(pool))]
		other := pool[rng.IntN(len(pool))]
		switch rng.IntN(9) {
		case 0, 1:
			ops = append(ops, Declare(name))
		case 2:
			ops = append(ops, Move(name, other))
		case 3:
			ops = append(ops, Consume(name))
		case 4:
			ops = append(ops, BorrowOf(name, BorrowKind(rng.IntN(2))))
		case 5:
			ops = append(ops, Release(name))
		case 6:
			ops = append(ops, Use(name))
		case 7:
			scopes++
			depth++
			ops = append(ops, Enter(fmt.Sprintf("s%d", scopes)))
		case 8:
			if depth == 0 {
				continue
			}
			depth--
			ops = append(ops, End(""))
		}
	}
	return ops
}

func TestPropertyValuesDropAtMostOnce(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for run := range propertyRuns {
		ops := randomLog(rng, 30)
		res, err := Check(ops, Options{})
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v\n%v", run, err, ops)
		}
		seen := make(map[ValueID]bool)
		for _, d := range res.Drops {
			if seen[d.Value] {
				t.Fatalf("run %d: value %d dropped twice\n%v", run, d.Value, ops)
			}
			seen[d.Value] = true
		}
		if !res.Valid() {
			continue
		}
		declares := 0
		for _, op := range ops {
			if op.Kind == OpDeclare {
				declares++
			}
		}
		if len(res.Drops) != declares {
			t.Fatalf("run %d: %d drops for %d values\n%v", run, len(res.Drops), declares, ops)
		}
	}
}

func TestPropertyViolationIndexIsLastApplied(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	for run := range propertyRuns {
		ops := randomLog(rng, 30)
		res, err := Check(ops, Options{})
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v", run, err)
		}
		if res.Violation == nil {
			if res.Ops != len(ops) {
				t.Fatalf("run %d: valid log applied %d of %d ops", run, res.Ops, len(ops))
			}
			continue
		}
		if res.Violation.Index != res.Ops-1 {
			t.Fatalf("run %d: violation at %d but %d ops applied", run, res.Violation.Index, res.Ops)
		}
		if res.Violation.Related >= res.Violation.Index {
			t.Fatalf("run %d: related %d is not before %d", run, res.Violation.Related, res.Violation.Index)
		}
	}
}

func TestPropertyReleaseBeforeBorrowSucceeds(t *testing.T) {
	rng := rand.New(rand.NewPCG(13, 17))
	for run := range propertyRuns {
		ops := []Op{Declare("v")}
		for i := range 20 {
			ops = append(ops, Release("v"))
			kind := BorrowKind(rng.IntN(2))
			if rng.IntN(2) == 0 {
				ops = append(ops, BorrowOf("v", kind))
			} else {
				ops = append(ops, BorrowAs("v", kind, fmt.Sprintf("r%d", i)))
			}
		}
		res, err := Check(ops, Options{})
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v", run, err)
		}
		if res.Violation != nil {
			t.Fatalf("run %d: expected Valid, got %v", run, res.Violation)
		}
	}
}
