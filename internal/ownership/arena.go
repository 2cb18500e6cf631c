package ownership

import (
	"fmt"

	"fortio.org/safecast"
)

type (
	ValueID   uint32
	RefID     uint32
	BindingID uint32
	ScopeID   uint32
)

const (
	NoValueID   ValueID   = 0
	NoRefID     RefID     = 0
	NoBindingID BindingID = 0
	NoScopeID   ScopeID   = 0
)

type valueRecord struct {
	owner      BindingID
	declaredAt int
	released   bool
	releasedAt int
	shared     []RefID
	exclusive  RefID
}

func (v *valueRecord) borrowed() bool {
	return len(v.shared) > 0 || v.exclusive != NoRefID
}

// firstBorrow returns the reference that blocks a move or an exclusive borrow.
func (v *valueRecord) firstBorrow() RefID {
	if v.exclusive != NoRefID {
		return v.exclusive
	}
	if len(v.shared) > 0 {
		return v.shared[0]
	}
	return NoRefID
}

type refRecord struct {
	kind   BorrowKind
	target ValueID
	// holder is the reference binding, NoBindingID for anonymous references.
	holder    BindingID
	createdAt int
	active    bool
	dangling  bool
	endedAt   int
}

type bindingState uint8

const (
	stateOwned bindingState = iota
	stateMoved
	stateReleased
)

type bindingRecord struct {
	name       string
	scope      ScopeID
	value      ValueID
	ref        RefID
	state      bindingState
	mutable    bool
	declaredAt int
	movedAt    int
}

func (b *bindingRecord) isRef() bool {
	return b.ref != NoRefID
}

func (b *bindingRecord) live() bool {
	return b.state == stateOwned
}

// scopeEntry is either a binding or an anonymous reference, kept in creation order.
type scopeEntry struct {
	binding BindingID
	ref     RefID
}

type scopeRecord struct {
	name     string
	open     bool
	openedAt int
	entries  []scopeEntry
	names    map[string]BindingID
}

// arena owns every record; index 0 of each slice is a sentinel.
type arena struct {
	values   []valueRecord
	refs     []refRecord
	bindings []bindingRecord
	scopes   []scopeRecord
}

func newArena() arena {
	return arena{
		values:   []valueRecord{{}},
		refs:     []refRecord{{}},
		bindings: []bindingRecord{{}},
		scopes:   []scopeRecord{{}},
	}
}

func nextID[T ~uint32](n int) T {
	value, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("ownership arena overflow: %w", err))
	}
	return T(value)
}

func (a *arena) newValue(rec valueRecord) ValueID {
	id := nextID[ValueID](len(a.values))
	a.values = append(a.values, rec)
	return id
}

func (a *arena) newRef(rec refRecord) RefID {
	id := nextID[RefID](len(a.refs))
	a.refs = append(a.refs, rec)
	return id
}

func (a *arena) newBinding(rec bindingRecord) BindingID {
	id := nextID[BindingID](len(a.bindings))
	a.bindings = append(a.bindings, rec)
	return id
}

func (a *arena) newScope(name string, at int) ScopeID {
	id := nextID[ScopeID](len(a.scopes))
	a.scopes = append(a.scopes, scopeRecord{
		name:     name,
		open:     true,
		openedAt: at,
		names:    make(map[string]BindingID),
	})
	return id
}

func (a *arena) value(id ValueID) *valueRecord       { return &a.values[id] }
func (a *arena) ref(id RefID) *refRecord             { return &a.refs[id] }
func (a *arena) binding(id BindingID) *bindingRecord { return &a.bindings[id] }
func (a *arena) scope(id ScopeID) *scopeRecord       { return &a.scopes[id] }

func dropRefID(ids []RefID, target RefID) []RefID {
	for i, id := range ids {
		if id == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
