package ownership

import (
	"errors"
	"fmt"
)

// ViolationKind enumerates the ownership rules an operation can break.
type ViolationKind uint8

const (
	ViolationNone ViolationKind = iota
	DuplicateBinding
	UseAfterMove
	ConflictingBorrow
	DanglingReference
	UnknownBinding
	ImmutableBorrow
)

func (k ViolationKind) String() string {
	switch k {
	case DuplicateBinding:
		return "DuplicateBinding"
	case UseAfterMove:
		return "UseAfterMove"
	case ConflictingBorrow:
		return "ConflictingBorrow"
	case DanglingReference:
		return "DanglingReference"
	case UnknownBinding:
		return "UnknownBinding"
	case ImmutableBorrow:
		return "ImmutableBorrow"
	default:
		return "None"
	}
}

// NoRelated marks a violation without a related operation.
const NoRelated = -1

// Violation is the first operation that broke an ownership rule.
type Violation struct {
	Kind  ViolationKind
	Index int
	Op    Op
	Name  string
	// Related is the index of the operation that set up the conflict
	// (previous declaration, move, first borrow, scope end) or NoRelated.
	Related     int
	RelatedNote string
	Message     string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("op %d: %s: %s", v.Index, v.Kind, v.Message)
}

var (
	ErrUnknownOp        = errors.New("unknown operation")
	ErrEmptyName        = errors.New("missing name")
	ErrBadBorrowKind    = errors.New("unknown borrow kind")
	ErrScopeNotOpen     = errors.New("scope is not open")
	ErrScopeAlreadyOpen = errors.New("scope is already open")
	ErrHalted           = errors.New("tracker halted after a violation")
)

// OpError reports a malformed operation. Malformed input is a front-end
// problem and is never turned into a Violation.
type OpError struct {
	Index int
	Op    Op
	Err   error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("op %d (%s): %v", e.Index, e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
