// Package ownership implements the ownership tracker: a single-pass checker
// over an ordered log of binding, borrow and scope operations.
//
// Every Value has exactly one owning binding. Bindings live in lexical scopes;
// ending a scope releases the values it still owns in reverse declaration
// order. References are non-owning and come in two kinds: any number of
// shared references may coexist, while an exclusive reference excludes every
// other reference to the same value. A reference lives until it is released
// explicitly or until the scope holding it ends; it must never be used after
// its value has been released.
//
// Check evaluates a whole log and stops at the first violation. Tracker
// exposes the same transitions one operation at a time.
//
//	res, err := ownership.Check([]ownership.Op{
//		ownership.Declare("v"),
//		ownership.BorrowOf("v", ownership.BorrowExclusive),
//		ownership.BorrowOf("v", ownership.BorrowShared),
//	}, ownership.Options{})
//	// res.Violation.Kind == ownership.ConflictingBorrow, res.Violation.Index == 2
//
// The checker performs no I/O and keeps no global state.
package ownership
