package ownership

import (
	"errors"
	"fmt"
	"testing"

	"ownck/internal/diag"
	"ownck/internal/source"
)

func mustCheck(t *testing.T, opts Options, ops ...Op) Result {
	t.Helper()
	res, err := Check(ops, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return res
}

func expectViolation(t *testing.T, res Result, kind ViolationKind, index, related int) {
	t.Helper()
	if res.Violation == nil {
		t.Fatalf("expected %v at %d, got Valid", kind, index)
	}
	v := res.Violation
	if v.Kind != kind || v.Index != index || v.Related != related {
		t.Fatalf("expected %v at %d (related %d), got %v at %d (related %d): %s",
			kind, index, related, v.Kind, v.Index, v.Related, v.Message)
	}
}

func expectValid(t *testing.T, res Result) {
	t.Helper()
	if res.Violation != nil {
		t.Fatalf("expected Valid, got %v", res.Violation)
	}
}

func dropNames(drops []Drop) []string {
	names := make([]string, 0, len(drops))
	for _, d := range drops {
		names = append(names, d.Binding)
	}
	return names
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestExclusiveThenSharedConflicts(t *testing.T) {
	res := mustCheck(t, Options{},
		Declare("v"),
		BorrowOf("v", BorrowExclusive),
		BorrowOf("v", BorrowShared),
	)
	expectViolation(t, res, ConflictingBorrow, 2, 1)
}

func TestSecondExclusiveConflicts(t *testing.T) {
	res := mustCheck(t, Options{},
		Declare("v"),
		BorrowAs("v", BorrowExclusive, "a"),
		BorrowAs("v", BorrowExclusive, "b"),
	)
	expectViolation(t, res, ConflictingBorrow, 2, 1)
}

func TestSharedBorrowsCoexist(t *testing.T) {
	res := mustCheck(t, Options{},
		Declare("v"),
		BorrowAs("v", BorrowShared, "a"),
		BorrowAs("v", BorrowShared, "b"),
		Use("a"),
		Use("b"),
		Use("v"),
	)
	expectValid(t, res)
}

func TestUseAfterMove(t *testing.T) {
	res := mustCheck(t, Options{},
		Declare("v"),
		Move("v", "w"),
		Use("v"),
	)
	expectViolation(t, res, UseAfterMove, 2, 1)
	if res.Violation.Name != "v" {
		t.Fatalf("violation names %q, want v", res.Violation.Name)
	}
}

func TestMoveChainIntoFreshTargets(t *testing.T) {
	// every move creates its target, so the binding arena grows on each step
	for n := 1; n <= 40; n++ {
		ops := []Op{Declare("v0")}
		for i := range n {
			ops = append(ops, Move(fmt.Sprintf("v%d", i), fmt.Sprintf("v%d", i+1)))
		}
		last := fmt.Sprintf("v%d", n)
		res := mustCheck(t, Options{}, append(ops, Use(last))...)
		expectValid(t, res)

		stale := fmt.Sprintf("v%d", n-1)
		res = mustCheck(t, Options{}, append(ops, Use(stale))...)
		expectViolation(t, res, UseAfterMove, n+1, n)
	}
}

func TestMovedSourceStateAfterEachStep(t *testing.T) {
	tr := NewTracker(Options{})
	if _, err := tr.Apply(Declare("a")); err != nil {
		t.Fatal(err)
	}
	for i := range 16 {
		from, to := fmt.Sprintf("a%d", i), fmt.Sprintf("a%d", i+1)
		if i == 0 {
			from = "a"
		}
		if v, err := tr.Apply(Move(from, to)); err != nil || v != nil {
			t.Fatalf("move %s -> %s: %v %v", from, to, v, err)
		}
		if b := tr.a.binding(tr.resolve(from)); b.state != stateMoved {
			t.Fatalf("%s is not marked moved after step %d", from, i)
		}
	}
}

func TestRedeclareAfterMove(t *testing.T) {
	res := mustCheck(t, Options{},
		Declare("x"),
		Move("x", "y"),
		Declare("x"),
		Use("x"),
		Use("y"),
	)
	expectValid(t, res)
}

func TestReassignAfterMove(t *testing.T) {
	res := mustCheck(t, Options{},
		Declare("x"),
		Declare("y"),
		Move("x", "z"),
		Move("y", "x"),
		Use("x"),
	)
	expectValid(t, res)
}

func TestDuplicateBinding(t *testing.T) {
	res := mustCheck(t, Options{},
		Declare("x"),
		Declare("x"),
	)
	expectViolation(t, res, DuplicateBinding, 1, 0)
}

func TestShadowingInNestedScopeIsAllowed(t *testing.T) {
	res := mustCheck(t, Options{},
		Declare("x"),
		Enter("inner"),
		Declare("x"),
		Move("x", "y"),
		Use("x"),
	)
	// the moved inner binding still shadows the outer one
	expectViolation(t, res, UseAfterMove, 4, 3)
}

func TestDuplicateReferenceName(t *testing.T) {
	res := mustCheck(t, Options{},
		Declare("v"),
		Declare("r"),
		BorrowAs("v", BorrowShared, "r"),
	)
	expectViolation(t, res, DuplicateBinding, 2, 1)
	if res.Violation.Name != "r" {
		t.Fatalf("violation names %q, want r", res.Violation.Name)
	}
}

func TestScopeEndReleasesInReverseOrder(t *testing.T) {
	res := mustCheck(t, Options{},
		Enter("main"),
		Declare("a"),
		Declare("b"),
		Declare("c"),
		End("main"),
	)
	expectValid(t, res)
	if got := dropNames(res.Drops); !equalStrings(got, []string{"c", "b", "a"}) {
		t.Fatalf("drop order = %v, want [c b a]", got)
	}
	for _, d := range res.Drops {
		if d.Index != 4 || d.Scope != "main" {
			t.Fatalf("drop %+v, want index 4 in main", d)
		}
	}
}

func TestImplicitEndAtEndOfLog(t *testing.T) {
	res := mustCheck(t, Options{},
		Declare("a"),
		Enter("f"),
		Declare("b"),
	)
	expectValid(t, res)
	if got := dropNames(res.Drops); !equalStrings(got, []string{"b", "a"}) {
		t.Fatalf("drop order = %v, want [b a]", got)
	}
	for _, d := range res.Drops {
		if d.Index != 3 {
			t.Fatalf("implicit drop at %d, want 3", d.Index)
		}
	}
}

func TestEndClosesNestedScopes(t *testing.T) {
	tr := NewTracker(Options{})
	for _, op := range []Op{
		Enter("a"),
		Enter("b"),
		Declare("x"),
		DeclareIn("y", "a"),
		End("a"),
	} {
		if v, err := tr.Apply(op); v != nil || err != nil {
			t.Fatalf("apply %v: %v %v", op, v, err)
		}
	}
	if scopes := tr.OpenScopes(); len(scopes) != 0 {
		t.Fatalf("open scopes = %v, want none", scopes)
	}
	res := tr.Finish()
	if got := dropNames(res.Drops); !equalStrings(got, []string{"x", "y"}) {
		t.Fatalf("drop order = %v, want [x y]", got)
	}
}

func TestDeclareOpensScopeOnDemand(t *testing.T) {
	tr := NewTracker(Options{})
	if _, err := tr.Apply(DeclareIn("x", "fn")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scopes := tr.OpenScopes(); !equalStrings(scopes, []string{"fn"}) {
		t.Fatalf("open scopes = %v, want [fn]", scopes)
	}
	res := tr.Finish()
	if len(res.Events) == 0 || res.Events[0].Kind != EvScopeEnter {
		t.Fatalf("first event should be scope_enter, got %v", res.Events)
	}
}

func TestReferenceEscapingItsScopeDangles(t *testing.T) {
	res := mustCheck(t, Options{},
		Enter("outer"),
		Enter("inner"),
		Declare("v"),
		BorrowAs("v", BorrowShared, "r"),
		MoveIn("r", "keep", "outer"),
		End("inner"),
		Use("keep"),
	)
	expectViolation(t, res, DanglingReference, 6, 5)
}

func TestScopeEndItselfNeverViolates(t *testing.T) {
	res := mustCheck(t, Options{},
		Enter("outer"),
		Enter("inner"),
		Declare("v"),
		BorrowAs("v", BorrowExclusive, "r"),
		MoveIn("r", "keep", "outer"),
		End("inner"),
		End("outer"),
	)
	expectValid(t, res)
	found := false
	for _, ev := range res.Events {
		if ev.Kind == EvInvalidate && ev.Binding == "keep" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an invalidate event for keep, got %v", res.Events)
	}
}

func TestReferenceEndsWithItsScope(t *testing.T) {
	res := mustCheck(t, Options{},
		Declare("v"),
		Enter("s"),
		BorrowAs("v", BorrowExclusive, "m"),
		End("s"),
		BorrowOf("v", BorrowExclusive),
		Use("m"),
	)
	expectViolation(t, res, UnknownBinding, 5, NoRelated)
}

func TestReleaseAllBorrowsThenExclusive(t *testing.T) {
	res := mustCheck(t, Options{},
		Declare("v"),
		BorrowAs("v", BorrowShared, "a"),
		BorrowOf("v", BorrowShared),
		Release("v"),
		BorrowAs("v", BorrowExclusive, "m"),
		Use("m"),
	)
	expectValid(t, res)
}

func TestReleasedReferenceIsRetired(t *testing.T) {
	res := mustCheck(t, Options{},
		Declare("v"),
		BorrowAs("v", BorrowShared, "a"),
		Release("v"),
		Use("a"),
	)
	expectViolation(t, res, UnknownBinding, 3, 2)
}

func TestReleaseReferenceBinding(t *testing.T) {
	res := mustCheck(t, Options{},
		Declare("v"),
		BorrowAs("v", BorrowExclusive, "m"),
		Release("m"),
		BorrowOf("v", BorrowShared),
		Use("v"),
	)
	expectValid(t, res)
}

func TestReleaseWithoutBorrowIsNoop(t *testing.T) {
	res := mustCheck(t, Options{},
		Declare("v"),
		Release("v"),
		Use("v"),
	)
	expectValid(t, res)
}

func TestReleaseMovedBinding(t *testing.T) {
	res := mustCheck(t, Options{},
		Declare("v"),
		Consume("v"),
		Release("v"),
	)
	expectViolation(t, res, UseAfterMove, 2, 1)
}

func TestMoveWhileBorrowed(t *testing.T) {
	res := mustCheck(t, Options{},
		Declare("v"),
		BorrowAs("v", BorrowShared, "r"),
		Move("v", "w"),
	)
	expectViolation(t, res, ConflictingBorrow, 2, 1)
}

func TestUseOwnerWhileExclusivelyBorrowed(t *testing.T) {
	res := mustCheck(t, Options{},
		Declare("v"),
		BorrowAs("v", BorrowExclusive, "m"),
		Use("v"),
	)
	expectViolation(t, res, ConflictingBorrow, 2, 1)
}

func TestUseOwnerWhileShared(t *testing.T) {
	res := mustCheck(t, Options{},
		Declare("v"),
		BorrowAs("v", BorrowShared, "r"),
		Use("v"),
		Use("r"),
	)
	expectValid(t, res)
}

func TestConsumeReleasesValue(t *testing.T) {
	res := mustCheck(t, Options{},
		Declare("v"),
		Consume("v"),
		Use("v"),
	)
	expectViolation(t, res, UseAfterMove, 2, 1)
	if len(res.Drops) != 1 || res.Drops[0].Index != 1 {
		t.Fatalf("drops = %+v, want one drop at 1", res.Drops)
	}
}

func TestMoveIntoLiveTargetReleasesOldValue(t *testing.T) {
	res := mustCheck(t, Options{},
		Declare("a"),
		Declare("b"),
		Move("a", "b"),
	)
	expectValid(t, res)
	if len(res.Drops) != 2 {
		t.Fatalf("drops = %+v, want 2", res.Drops)
	}
	if res.Drops[0].Index != 2 || res.Drops[0].Value != 2 {
		t.Fatalf("first drop %+v, want value 2 at 2", res.Drops[0])
	}
	if res.Drops[1].Binding != "b" || res.Drops[1].Value != 1 {
		t.Fatalf("second drop %+v, want value 1 owned by b", res.Drops[1])
	}
}

func TestMoveIntoBorrowedTarget(t *testing.T) {
	res := mustCheck(t, Options{},
		Declare("a"),
		Declare("b"),
		BorrowAs("b", BorrowShared, "r"),
		Move("a", "b"),
	)
	expectViolation(t, res, ConflictingBorrow, 3, 2)
}

func TestMoveToSelfIsNoop(t *testing.T) {
	res := mustCheck(t, Options{},
		Declare("a"),
		Move("a", "a"),
		Use("a"),
	)
	expectValid(t, res)
}

func TestBorrowThroughReference(t *testing.T) {
	res := mustCheck(t, Options{},
		Declare("v"),
		BorrowAs("v", BorrowShared, "r"),
		BorrowAs("r", BorrowShared, "r2"),
		Use("r2"),
		BorrowOf("r", BorrowExclusive),
	)
	expectViolation(t, res, ConflictingBorrow, 4, 1)
	for _, ev := range res.Events {
		if ev.Kind == EvBorrowStart && ev.Note == "r2" && ev.Value != 1 {
			t.Fatalf("reborrow targets value %d, want 1", ev.Value)
		}
	}
}

func TestUnknownBinding(t *testing.T) {
	res := mustCheck(t, Options{}, Use("ghost"))
	expectViolation(t, res, UnknownBinding, 0, NoRelated)
}

func TestRequireMutable(t *testing.T) {
	res := mustCheck(t, Options{RequireMutable: true},
		Declare("v"),
		BorrowOf("v", BorrowExclusive),
	)
	expectViolation(t, res, ImmutableBorrow, 1, 0)

	res = mustCheck(t, Options{RequireMutable: true},
		DeclareMut("v"),
		BorrowOf("v", BorrowExclusive),
	)
	expectValid(t, res)

	res = mustCheck(t, Options{},
		Declare("v"),
		BorrowOf("v", BorrowExclusive),
	)
	expectValid(t, res)
}

func TestMalformedOpsAreErrors(t *testing.T) {
	cases := []struct {
		name string
		ops  []Op
		want error
		at   int
	}{
		{"unknown op", []Op{{Kind: OpInvalid, Name: "x"}}, ErrUnknownOp, 0},
		{"empty name", []Op{Declare("")}, ErrEmptyName, 0},
		{"bad borrow kind", []Op{Declare("v"), {Kind: OpBorrow, Name: "v", Borrow: 9}}, ErrBadBorrowKind, 1},
		{"end unknown scope", []Op{End("nope")}, ErrScopeNotOpen, 0},
		{"end root", []Op{End("")}, ErrScopeNotOpen, 0},
		{"enter twice", []Op{Enter("a"), Enter("a")}, ErrScopeAlreadyOpen, 1},
		{"move into closed scope", []Op{Declare("v"), MoveIn("v", "w", "gone")}, ErrScopeNotOpen, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Check(tc.ops, Options{})
			if !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
			var opErr *OpError
			if !errors.As(err, &opErr) || opErr.Index != tc.at {
				t.Fatalf("error %v should be an OpError at %d", err, tc.at)
			}
		})
	}
}

func TestTrackerHaltsAfterViolation(t *testing.T) {
	tr := NewTracker(Options{})
	tr.Apply(Declare("v"))
	tr.Apply(Consume("v"))
	v, err := tr.Apply(Use("v"))
	if v == nil || err != nil {
		t.Fatalf("expected violation, got %v %v", v, err)
	}
	if _, err := tr.Apply(Declare("w")); !errors.Is(err, ErrHalted) {
		t.Fatalf("expected ErrHalted, got %v", err)
	}
	res := tr.Finish()
	if len(res.Drops) != 1 {
		t.Fatalf("no implicit drops after a violation, got %+v", res.Drops)
	}
	if res.Ops != 3 {
		t.Fatalf("Ops = %d, want 3", res.Ops)
	}
}

func TestEventLog(t *testing.T) {
	var observed int
	res := mustCheck(t, Options{OnEvent: func(Event) { observed++ }},
		Declare("v"),
		BorrowAs("v", BorrowShared, "r"),
		Release("r"),
	)
	want := []EventKind{EvDeclare, EvBorrowStart, EvBorrowEnd, EvDrop, EvScopeEnd}
	if len(res.Events) != len(want) {
		t.Fatalf("events = %v, want kinds %v", res.Events, want)
	}
	for i, k := range want {
		if res.Events[i].Kind != k {
			t.Fatalf("event %d = %v, want %v", i, res.Events[i].Kind, k)
		}
	}
	if observed != len(res.Events) {
		t.Fatalf("observer saw %d events, want %d", observed, len(res.Events))
	}
}

func TestEmptyLogIsValid(t *testing.T) {
	res := mustCheck(t, Options{})
	expectValid(t, res)
	if len(res.Drops) != 0 || res.Ops != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestDiagnoseAddsRelatedNote(t *testing.T) {
	ops := []Op{Declare("v"), Move("v", "w"), Use("v")}
	for i := range ops {
		ops[i].Span = source.Span{File: 1, Start: uint32(i * 10), End: uint32(i*10 + 5)}
	}
	res := mustCheck(t, Options{}, ops...)
	bag := diag.NewBag(4)
	Diagnose(res, ops, diag.BagReporter{Bag: bag})
	if bag.Len() != 1 {
		t.Fatalf("expected one diagnostic, got %d", bag.Len())
	}
	d := bag.Items()[0]
	if d.Code != diag.OwnUseAfterMove || d.Primary != ops[2].Span {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
	if len(d.Notes) != 1 || d.Notes[0].Span != ops[1].Span {
		t.Fatalf("expected a note on the move, got %+v", d.Notes)
	}
}

func TestDiagnoseErrorMapsSyntaxCodes(t *testing.T) {
	_, err := Check([]Op{End("main")}, Options{})
	bag := diag.NewBag(4)
	if !DiagnoseError(err, diag.BagReporter{Bag: bag}) {
		t.Fatal("expected the error to be reported")
	}
	if got := bag.Items()[0].Code; got != diag.SynScopeNotOpen {
		t.Fatalf("code = %v, want %v", got, diag.SynScopeNotOpen)
	}
	if DiagnoseError(errors.New("io"), diag.BagReporter{Bag: bag}) {
		t.Fatal("plain errors are not diagnostics")
	}
}
