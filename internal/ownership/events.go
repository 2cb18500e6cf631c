package ownership

// EventKind identifies the type of event recorded during checking.
type EventKind uint8

const (
	EvScopeEnter EventKind = iota
	EvScopeEnd
	EvDeclare
	EvMove
	EvBorrowStart
	EvBorrowEnd
	EvUse
	EvDrop
	// EvInvalidate marks a reference whose value was released under it.
	EvInvalidate
)

func (k EventKind) String() string {
	switch k {
	case EvScopeEnter:
		return "scope_enter"
	case EvScopeEnd:
		return "scope_end"
	case EvDeclare:
		return "declare"
	case EvMove:
		return "move"
	case EvBorrowStart:
		return "borrow_start"
	case EvBorrowEnd:
		return "borrow_end"
	case EvUse:
		return "use"
	case EvDrop:
		return "drop"
	case EvInvalidate:
		return "invalidate"
	default:
		return "unknown"
	}
}

// Event is a lightweight log entry produced while checking.
// It is meant for debugging and visualisation and never affects the verdict.
type Event struct {
	Kind EventKind
	// Index is the operation that caused the event; implicit scope ends at
	// the end of the log carry the log length.
	Index   int
	Binding string
	Scope   string
	Value   ValueID
	Ref     RefID
	// Borrow is only meaningful for borrow events.
	Borrow BorrowKind
	Note   string
}

// Drop records the release of a value.
type Drop struct {
	Value   ValueID
	Binding string
	Scope   string
	Index   int
}
