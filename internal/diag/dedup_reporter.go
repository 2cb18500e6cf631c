package diag

import "ownck/internal/source"

// DedupReporter forwards each distinct (code, severity, span, message)
// once. Notes do not take part in the comparison.
type DedupReporter struct {
	next Reporter
	seen map[string]struct{}
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next, seen: make(map[string]struct{})}
}

func (r *DedupReporter) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note) {
	if r == nil || r.next == nil {
		return
	}
	key := code.ID() + "|" + sev.String() + "|" + primary.String() + "|" + msg
	if _, dup := r.seen[key]; dup {
		return
	}
	r.seen[key] = struct{}{}
	r.next.Report(code, sev, primary, msg, notes)
}
