package ownership

import (
	"strings"

	"ownck/internal/source"
)

// OpKind enumerates operations understood by the tracker.
type OpKind uint8

const (
	OpInvalid OpKind = iota
	OpDeclare
	OpMove
	OpBorrow
	OpRelease
	OpUse
	OpEnter
	OpEnd
)

func (k OpKind) String() string {
	switch k {
	case OpDeclare:
		return "declare"
	case OpMove:
		return "move"
	case OpBorrow:
		return "borrow"
	case OpRelease:
		return "release"
	case OpUse:
		return "use"
	case OpEnter:
		return "enter"
	case OpEnd:
		return "end"
	default:
		return "invalid"
	}
}

// ParseOpKind maps an operation keyword, including its aliases, to OpKind.
func ParseOpKind(s string) (OpKind, bool) {
	switch strings.ToLower(s) {
	case "declare", "let":
		return OpDeclare, true
	case "move":
		return OpMove, true
	case "borrow":
		return OpBorrow, true
	case "release", "release-borrow":
		return OpRelease, true
	case "use":
		return OpUse, true
	case "enter", "scope":
		return OpEnter, true
	case "end", "scope-end":
		return OpEnd, true
	}
	return OpInvalid, false
}

// BorrowKind differentiates shared vs exclusive references.
type BorrowKind uint8

const (
	BorrowShared BorrowKind = iota
	BorrowExclusive
)

func (k BorrowKind) String() string {
	if k == BorrowExclusive {
		return "exclusive"
	}
	return "shared"
}

// ParseBorrowKind accepts shared|ref|& and exclusive|excl|mut|&mut.
func ParseBorrowKind(s string) (BorrowKind, bool) {
	switch strings.ToLower(s) {
	case "shared", "ref", "&":
		return BorrowShared, true
	case "exclusive", "excl", "mut", "&mut":
		return BorrowExclusive, true
	}
	return BorrowShared, false
}

// Op is one entry of an operation log.
//
// Name is the binding the operation acts on, or the scope for enter/end.
// Scope is the owner scope for declare and the scope receiving the new
// binding for move and borrow; empty means the innermost open scope.
// Target is the destination binding of a move or the reference binding
// created by a borrow. Mutable marks the declared binding, or the move
// destination when the move creates one.
type Op struct {
	Kind    OpKind
	Name    string
	Scope   string
	Target  string
	Borrow  BorrowKind
	Mutable bool
	Span    source.Span
}

// String renders the op in the text log syntax.
func (op Op) String() string {
	var b strings.Builder
	b.WriteString(op.Kind.String())
	switch op.Kind {
	case OpDeclare:
		if op.Mutable {
			b.WriteString(" mut")
		}
		b.WriteString(" " + op.Name)
	case OpMove:
		b.WriteString(" " + op.Name)
		if op.Target != "" {
			b.WriteString(" ->")
			if op.Mutable {
				b.WriteString(" mut")
			}
			b.WriteString(" " + op.Target)
		}
	case OpBorrow:
		b.WriteString(" " + op.Name + " " + op.Borrow.String())
		if op.Target != "" {
			b.WriteString(" as " + op.Target)
		}
	default:
		if op.Name != "" {
			b.WriteString(" " + op.Name)
		}
	}
	if op.Scope != "" && op.Kind != OpEnter && op.Kind != OpEnd {
		b.WriteString(" in " + op.Scope)
	}
	return b.String()
}

func Declare(name string) Op { return Op{Kind: OpDeclare, Name: name} }

func DeclareMut(name string) Op { return Op{Kind: OpDeclare, Name: name, Mutable: true} }

func DeclareIn(name, scope string) Op { return Op{Kind: OpDeclare, Name: name, Scope: scope} }

func Move(name, to string) Op { return Op{Kind: OpMove, Name: name, Target: to} }

func MoveIn(name, to, scope string) Op {
	return Op{Kind: OpMove, Name: name, Target: to, Scope: scope}
}

// Consume moves a value out of the log; the value is released immediately.
func Consume(name string) Op { return Op{Kind: OpMove, Name: name} }

func BorrowOf(name string, kind BorrowKind) Op { return Op{Kind: OpBorrow, Name: name, Borrow: kind} }

func BorrowAs(name string, kind BorrowKind, as string) Op {
	return Op{Kind: OpBorrow, Name: name, Borrow: kind, Target: as}
}

func Release(name string) Op { return Op{Kind: OpRelease, Name: name} }

func Use(name string) Op { return Op{Kind: OpUse, Name: name} }

func Enter(scope string) Op { return Op{Kind: OpEnter, Name: scope} }

func End(scope string) Op { return Op{Kind: OpEnd, Name: scope} }
