// Package oplog reads operation logs for the ownership checker.
//
// Two front ends are supported. The line-oriented text format (.own):
//
//	enter main
//	declare mut buf
//	borrow buf exclusive as w
//	release w
//	move buf -> sink
//	end main
//
// and structured documents (.yaml, .yml, .json) of the shape
//
//	ops:
//	  - {op: declare, name: buf, mut: true}
//	  - {op: borrow, name: buf, kind: exclusive, as: w}
//
// Both attach a source span to every operation and report syntax problems
// as diagnostics instead of failing on the first one.
package oplog
