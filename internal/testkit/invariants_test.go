package testkit

import (
	"strings"
	"testing"

	"ownck/internal/diag"
	"ownck/internal/oplog"
	"ownck/internal/ownership"
	"ownck/internal/source"
)

func TestParsedSpansHoldInvariants(t *testing.T) {
	srcs := map[string]string{
		"a.own":  "enter main\ndeclare x   # c\n\nborrow x shared as r\nuse r\nend main\n",
		"b.yaml": "ops:\n  - {op: declare, name: x}\n  - op: use\n    name: x\n",
	}
	for name, src := range srcs {
		fs := source.NewFileSet()
		sf := fs.Get(fs.AddVirtual(name, []byte(src)))
		ops := oplog.Parse(sf, diag.NopReporter{})
		if len(ops) == 0 {
			t.Fatalf("%s: no ops parsed", name)
		}
		if err := CheckOpSpans(ops, sf); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
}

func TestCheckOpSpansRejectsOverlap(t *testing.T) {
	fs := source.NewFileSet()
	sf := fs.Get(fs.AddVirtual("x.own", []byte("declare a\nuse a\n")))
	ops := []ownership.Op{ownership.Declare("a"), ownership.Use("a")}
	ops[0].Span = source.Span{File: sf.ID, Start: 0, End: 9}
	ops[1].Span = source.Span{File: sf.ID, Start: 5, End: 9}
	err := CheckOpSpans(ops, sf)
	if err == nil || !strings.Contains(err.Error(), "overlaps") {
		t.Fatalf("expected overlap error, got %v", err)
	}
}

func TestCheckResult(t *testing.T) {
	res, err := ownership.Check([]ownership.Op{
		ownership.Declare("v"),
		ownership.Consume("v"),
		ownership.Use("v"),
	}, ownership.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := CheckResult(res); err != nil {
		t.Fatal(err)
	}
	res.Drops = append(res.Drops, res.Drops[0])
	if err := CheckResult(res); err == nil {
		t.Fatal("duplicate drop not detected")
	}
}
