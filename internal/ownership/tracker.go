package ownership

import "fmt"

// Options tweaks the rules applied by the tracker.
type Options struct {
	// RequireMutable rejects exclusive borrows of bindings not declared `mut`.
	RequireMutable bool
	// OnEvent, if set, observes every event as it is recorded.
	OnEvent func(Event)
}

// Tracker applies operations one at a time over an arena of values,
// references, bindings and scopes. The zero value is not usable; use NewTracker.
type Tracker struct {
	opts      Options
	a         arena
	stack     []ScopeID
	index     int
	events    []Event
	drops     []Drop
	violation *Violation
	finished  bool
}

// NewTracker returns a tracker with the root scope open.
func NewTracker(opts Options) *Tracker {
	t := &Tracker{opts: opts, a: newArena()}
	t.stack = append(t.stack, t.a.newScope("", 0))
	return t
}

// Index returns the index the next applied operation gets.
func (t *Tracker) Index() int { return t.index }

// Violation returns the first violation, or nil.
func (t *Tracker) Violation() *Violation { return t.violation }

// OpenScopes lists the open named scopes, outermost first.
func (t *Tracker) OpenScopes() []string {
	names := make([]string, 0, len(t.stack)-1)
	for _, id := range t.stack[1:] {
		names = append(names, t.a.scope(id).name)
	}
	return names
}

// Apply runs a single operation. It returns the violation the operation
// caused, if any. Malformed operations yield an *OpError and leave the
// state untouched. Once a violation was found every further call fails
// with ErrHalted.
func (t *Tracker) Apply(op Op) (*Violation, error) {
	if t.violation != nil || t.finished {
		return nil, ErrHalted
	}
	index := t.index
	if err := t.validate(op); err != nil {
		return nil, &OpError{Index: index, Op: op, Err: err}
	}
	t.index++

	var v *Violation
	switch op.Kind {
	case OpDeclare:
		v = t.declare(index, op)
	case OpMove:
		v = t.move(index, op)
	case OpBorrow:
		v = t.borrow(index, op)
	case OpRelease:
		v = t.release(index, op)
	case OpUse:
		v = t.use(index, op)
	case OpEnter:
		t.enter(index, op.Name)
	case OpEnd:
		t.end(index, op.Name)
	}
	if v != nil {
		v.Index = index
		v.Op = op
		if v.Name == "" {
			v.Name = op.Name
		}
		t.violation = v
	}
	return v, nil
}

// Finish ends every scope still open, the root included, and returns the
// result. After a violation nothing is ended: the state past the first
// violation is meaningless.
func (t *Tracker) Finish() Result {
	if !t.finished && t.violation == nil {
		for len(t.stack) > 0 {
			t.endScope(t.index)
		}
	}
	t.finished = true
	return Result{
		Violation: t.violation,
		Events:    t.events,
		Drops:     t.drops,
		Ops:       t.index,
	}
}

func (t *Tracker) validate(op Op) error {
	switch op.Kind {
	case OpDeclare, OpMove, OpBorrow, OpRelease, OpUse:
		if op.Name == "" {
			return ErrEmptyName
		}
	case OpEnter:
		if op.Name == "" {
			return ErrEmptyName
		}
		if t.findScope(op.Name) >= 0 {
			return fmt.Errorf("%w: %q", ErrScopeAlreadyOpen, op.Name)
		}
		return nil
	case OpEnd:
		if op.Name == "" {
			if len(t.stack) < 2 {
				return fmt.Errorf("%w: no named scope to end", ErrScopeNotOpen)
			}
			return nil
		}
		if t.findScope(op.Name) < 0 {
			return fmt.Errorf("%w: %q", ErrScopeNotOpen, op.Name)
		}
		return nil
	default:
		return ErrUnknownOp
	}
	if op.Kind == OpBorrow && op.Borrow != BorrowShared && op.Borrow != BorrowExclusive {
		return ErrBadBorrowKind
	}
	// declare opens an unknown scope on demand; move and borrow need it open
	if op.Scope != "" && op.Kind != OpDeclare && t.findScope(op.Scope) < 0 {
		return fmt.Errorf("%w: %q", ErrScopeNotOpen, op.Scope)
	}
	return nil
}

// findScope returns the stack position of an open scope or -1.
func (t *Tracker) findScope(name string) int {
	for i := len(t.stack) - 1; i >= 0; i-- {
		if t.a.scope(t.stack[i]).name == name {
			return i
		}
	}
	return -1
}

func (t *Tracker) top() ScopeID {
	return t.stack[len(t.stack)-1]
}

// targetScope picks the scope named by op.Scope or the innermost one.
func (t *Tracker) targetScope(name string) ScopeID {
	if name == "" {
		return t.top()
	}
	return t.stack[t.findScope(name)]
}

// resolve looks the name up innermost scope first.
func (t *Tracker) resolve(name string) BindingID {
	for i := len(t.stack) - 1; i >= 0; i-- {
		if id, ok := t.a.scope(t.stack[i]).names[name]; ok {
			return id
		}
	}
	return NoBindingID
}

// lookup resolves a name and rejects unknown, retired and moved bindings.
func (t *Tracker) lookup(name string) (BindingID, *Violation) {
	id := t.resolve(name)
	if id == NoBindingID {
		return id, &Violation{
			Kind:    UnknownBinding,
			Related: NoRelated,
			Message: fmt.Sprintf("no live binding named `%s`", name),
		}
	}
	b := t.a.binding(id)
	switch b.state {
	case stateReleased:
		return id, &Violation{
			Kind:        UnknownBinding,
			Related:     b.movedAt,
			RelatedNote: "released here",
			Message:     fmt.Sprintf("no live binding named `%s`", name),
		}
	case stateMoved:
		return id, &Violation{
			Kind:        UseAfterMove,
			Related:     b.movedAt,
			RelatedNote: "value moved here",
			Message:     fmt.Sprintf("use of moved value `%s`", name),
		}
	}
	return id, nil
}

// liveTarget returns the value a binding gives access to, following references.
func (t *Tracker) liveTarget(name string, b *bindingRecord) (ValueID, *Violation) {
	if !b.isRef() {
		return b.value, nil
	}
	r := t.a.ref(b.ref)
	if r.dangling {
		return NoValueID, &Violation{
			Kind:        DanglingReference,
			Related:     r.endedAt,
			RelatedNote: "value released here",
			Message:     fmt.Sprintf("reference `%s` outlives the value it borrows", name),
		}
	}
	return r.target, nil
}

func (t *Tracker) declare(index int, op Op) *Violation {
	var sid ScopeID
	if op.Scope != "" && t.findScope(op.Scope) < 0 {
		sid = t.enter(index, op.Scope)
	} else {
		sid = t.targetScope(op.Scope)
	}
	s := t.a.scope(sid)
	if prev, ok := s.names[op.Name]; ok && t.a.binding(prev).live() {
		return &Violation{
			Kind:        DuplicateBinding,
			Related:     t.a.binding(prev).declaredAt,
			RelatedNote: "previous declaration here",
			Message:     fmt.Sprintf("`%s` is already declared in this scope", op.Name),
		}
	}
	bid := t.a.newBinding(bindingRecord{
		name:       op.Name,
		scope:      sid,
		state:      stateOwned,
		mutable:    op.Mutable,
		declaredAt: index,
	})
	vid := t.a.newValue(valueRecord{owner: bid, declaredAt: index})
	t.a.binding(bid).value = vid
	s.entries = append(s.entries, scopeEntry{binding: bid})
	s.names[op.Name] = bid
	t.emit(Event{Kind: EvDeclare, Index: index, Binding: op.Name, Scope: s.name, Value: vid})
	return nil
}

func (t *Tracker) move(index int, op Op) *Violation {
	src, v := t.lookup(op.Name)
	if v != nil {
		return v
	}
	b := t.a.binding(src)
	if b.isRef() {
		if _, v := t.liveTarget(op.Name, b); v != nil {
			return v
		}
	} else if val := t.a.value(b.value); val.borrowed() {
		return t.borrowedConflict(val, fmt.Sprintf("cannot move `%s` while it is borrowed", op.Name))
	}

	if op.Target == "" {
		b.state = stateMoved
		b.movedAt = index
		t.emit(Event{Kind: EvMove, Index: index, Binding: op.Name, Scope: t.a.scope(b.scope).name, Value: b.value, Ref: b.ref, Note: "consumed"})
		if b.isRef() {
			t.endRef(b.ref, index)
		} else {
			t.releaseValue(b.value, index)
		}
		return nil
	}

	var dst BindingID
	if op.Scope != "" {
		dst = t.a.scope(t.targetScope(op.Scope)).names[op.Target]
	} else {
		dst = t.resolve(op.Target)
	}
	if dst == src {
		t.emit(Event{Kind: EvMove, Index: index, Binding: op.Name, Scope: t.a.scope(b.scope).name, Value: b.value, Ref: b.ref, Note: "-> " + op.Target})
		return nil
	}
	if dst != NoBindingID {
		d := t.a.binding(dst)
		if d.live() {
			if d.isRef() {
				t.endRef(d.ref, index)
			} else {
				old := t.a.value(d.value)
				if old.borrowed() {
					return t.borrowedConflict(old, fmt.Sprintf("cannot assign to `%s` while it is borrowed", op.Target))
				}
				t.releaseValue(d.value, index)
			}
		}
	} else {
		sid := t.targetScope(op.Scope)
		dst = t.a.newBinding(bindingRecord{
			name:       op.Target,
			scope:      sid,
			mutable:    op.Mutable,
			declaredAt: index,
		})
		s := t.a.scope(sid)
		s.entries = append(s.entries, scopeEntry{binding: dst})
		s.names[op.Target] = dst
		// newBinding may have grown the arena
		b = t.a.binding(src)
	}

	d := t.a.binding(dst)
	d.state = stateOwned
	d.value, d.ref = b.value, b.ref
	if b.isRef() {
		t.a.ref(b.ref).holder = dst
	} else {
		t.a.value(b.value).owner = dst
	}
	b.state = stateMoved
	b.movedAt = index
	t.emit(Event{Kind: EvMove, Index: index, Binding: op.Name, Scope: t.a.scope(d.scope).name, Value: d.value, Ref: d.ref, Note: "-> " + op.Target})
	return nil
}

func (t *Tracker) borrow(index int, op Op) *Violation {
	bid, v := t.lookup(op.Name)
	if v != nil {
		return v
	}
	b := t.a.binding(bid)
	vid, v := t.liveTarget(op.Name, b)
	if v != nil {
		return v
	}
	val := t.a.value(vid)

	if op.Borrow == BorrowExclusive && t.opts.RequireMutable {
		if owner := t.a.binding(val.owner); !owner.mutable {
			return &Violation{
				Kind:        ImmutableBorrow,
				Related:     owner.declaredAt,
				RelatedNote: "declared here",
				Message:     fmt.Sprintf("cannot borrow `%s` as exclusive because it is not declared `mut`", owner.name),
			}
		}
	}

	switch op.Borrow {
	case BorrowExclusive:
		if val.borrowed() {
			return t.borrowedConflict(val, fmt.Sprintf("cannot borrow `%s` as exclusive because it is already borrowed", op.Name))
		}
	case BorrowShared:
		if val.exclusive != NoRefID {
			return t.borrowedConflict(val, fmt.Sprintf("cannot borrow `%s` as shared because it is exclusively borrowed", op.Name))
		}
	}

	sid := t.targetScope(op.Scope)
	s := t.a.scope(sid)
	if op.Target != "" {
		if prev, ok := s.names[op.Target]; ok && t.a.binding(prev).live() {
			return &Violation{
				Kind:        DuplicateBinding,
				Name:        op.Target,
				Related:     t.a.binding(prev).declaredAt,
				RelatedNote: "previous declaration here",
				Message:     fmt.Sprintf("`%s` is already declared in this scope", op.Target),
			}
		}
	}

	rid := t.a.newRef(refRecord{kind: op.Borrow, target: vid, createdAt: index, active: true})
	if op.Target != "" {
		holder := t.a.newBinding(bindingRecord{
			name:       op.Target,
			scope:      sid,
			ref:        rid,
			state:      stateOwned,
			declaredAt: index,
		})
		t.a.ref(rid).holder = holder
		s.entries = append(s.entries, scopeEntry{binding: holder})
		s.names[op.Target] = holder
	} else {
		s.entries = append(s.entries, scopeEntry{ref: rid})
	}
	if op.Borrow == BorrowExclusive {
		val.exclusive = rid
	} else {
		val.shared = append(val.shared, rid)
	}
	t.emit(Event{Kind: EvBorrowStart, Index: index, Binding: op.Name, Scope: s.name, Value: vid, Ref: rid, Borrow: op.Borrow, Note: op.Target})
	return nil
}

func (t *Tracker) release(index int, op Op) *Violation {
	bid, v := t.lookup(op.Name)
	if v != nil {
		return v
	}
	b := t.a.binding(bid)
	if b.isRef() {
		t.endRef(b.ref, index)
		b.state = stateReleased
		b.movedAt = index
		return nil
	}
	val := t.a.value(b.value)
	refs := make([]RefID, 0, len(val.shared)+1)
	if val.exclusive != NoRefID {
		refs = append(refs, val.exclusive)
	}
	refs = append(refs, val.shared...)
	for _, rid := range refs {
		t.endRef(rid, index)
		if holder := t.a.ref(rid).holder; holder != NoBindingID {
			h := t.a.binding(holder)
			h.state = stateReleased
			h.movedAt = index
		}
	}
	return nil
}

func (t *Tracker) use(index int, op Op) *Violation {
	bid, v := t.lookup(op.Name)
	if v != nil {
		return v
	}
	b := t.a.binding(bid)
	vid, v := t.liveTarget(op.Name, b)
	if v != nil {
		return v
	}
	if !b.isRef() {
		if val := t.a.value(vid); val.exclusive != NoRefID {
			return t.borrowedConflict(val, fmt.Sprintf("cannot use `%s` while it is exclusively borrowed", op.Name))
		}
	}
	t.emit(Event{Kind: EvUse, Index: index, Binding: op.Name, Scope: t.a.scope(b.scope).name, Value: vid, Ref: b.ref})
	return nil
}

func (t *Tracker) enter(index int, name string) ScopeID {
	sid := t.a.newScope(name, index)
	t.stack = append(t.stack, sid)
	t.emit(Event{Kind: EvScopeEnter, Index: index, Scope: name})
	return sid
}

// end closes the named scope and every scope nested in it; an empty name
// closes the innermost scope.
func (t *Tracker) end(index int, name string) {
	pos := len(t.stack) - 1
	if name != "" {
		pos = t.findScope(name)
	}
	for len(t.stack) > pos {
		t.endScope(index)
	}
}

// endScope pops the innermost scope, releasing what it owns in reverse
// declaration order.
func (t *Tracker) endScope(index int) {
	sid := t.top()
	s := t.a.scope(sid)
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.binding == NoBindingID {
			t.endRef(e.ref, index)
			continue
		}
		b := t.a.binding(e.binding)
		if !b.live() {
			continue
		}
		if b.isRef() {
			t.endRef(b.ref, index)
		} else {
			t.releaseValue(b.value, index)
		}
		b.state = stateReleased
		b.movedAt = index
	}
	s.open = false
	t.stack = t.stack[:len(t.stack)-1]
	t.emit(Event{Kind: EvScopeEnd, Index: index, Scope: s.name})
}

func (t *Tracker) endRef(rid RefID, index int) {
	r := t.a.ref(rid)
	if !r.active {
		return
	}
	r.active = false
	r.endedAt = index
	val := t.a.value(r.target)
	if val.exclusive == rid {
		val.exclusive = NoRefID
	} else {
		val.shared = dropRefID(val.shared, rid)
	}
	t.emit(Event{Kind: EvBorrowEnd, Index: index, Binding: t.holderName(r), Value: r.target, Ref: rid, Borrow: r.kind})
}

// releaseValue drops a value; references still pointing at it become dangling.
func (t *Tracker) releaseValue(vid ValueID, index int) {
	val := t.a.value(vid)
	if val.released {
		return
	}
	refs := val.shared
	if val.exclusive != NoRefID {
		refs = append([]RefID{val.exclusive}, refs...)
	}
	for _, rid := range refs {
		r := t.a.ref(rid)
		r.active = false
		r.dangling = true
		r.endedAt = index
		t.emit(Event{Kind: EvInvalidate, Index: index, Binding: t.holderName(r), Value: vid, Ref: rid, Borrow: r.kind})
	}
	val.shared = nil
	val.exclusive = NoRefID
	val.released = true
	val.releasedAt = index

	owner := t.a.binding(val.owner)
	scope := t.a.scope(owner.scope).name
	t.drops = append(t.drops, Drop{Value: vid, Binding: owner.name, Scope: scope, Index: index})
	t.emit(Event{Kind: EvDrop, Index: index, Binding: owner.name, Scope: scope, Value: vid})
}

func (t *Tracker) holderName(r *refRecord) string {
	if r.holder == NoBindingID {
		return ""
	}
	return t.a.binding(r.holder).name
}

func (t *Tracker) borrowedConflict(val *valueRecord, msg string) *Violation {
	return &Violation{
		Kind:        ConflictingBorrow,
		Related:     t.a.ref(val.firstBorrow()).createdAt,
		RelatedNote: "first borrow here",
		Message:     msg,
	}
}

func (t *Tracker) emit(ev Event) {
	t.events = append(t.events, ev)
	if t.opts.OnEvent != nil {
		t.opts.OnEvent(ev)
	}
}
