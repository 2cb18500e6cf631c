package trace

import (
	"io"
	"sync"
	"time"
)

// RingTracer remembers the most recent events so a crash can show what led
// up to it.
type RingTracer struct {
	mu    sync.Mutex
	buf   []Event
	total uint64 // events ever stored; also the last Seq handed out
	level Level
}

// NewRingTracer keeps up to size events; size <= 0 means the default.
func NewRingTracer(size int, level Level) *RingTracer {
	if size <= 0 {
		size = defaultRingSize
	}
	return &RingTracer{buf: make([]Event, size), level: level}
}

func (t *RingTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	slot := t.total % uint64(len(t.buf))
	t.total++
	t.buf[slot] = *ev
	t.buf[slot].Seq = t.total
}

// Snapshot copies the retained events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	size := uint64(len(t.buf))
	if t.total <= size {
		return append([]Event(nil), t.buf[:t.total]...)
	}
	cut := t.total % size
	out := make([]Event, 0, size)
	out = append(out, t.buf[cut:]...)
	return append(out, t.buf[:cut]...)
}

// Dump renders the retained events with times relative to the oldest one.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	events := t.Snapshot()
	var start time.Time
	if len(events) > 0 {
		start = events[0].Time
	}
	for i := range events {
		if _, err := w.Write(FormatEvent(&events[i], format, start)); err != nil {
			return err
		}
	}
	return nil
}

func (t *RingTracer) Level() Level { return t.level }
func (t *RingTracer) Close() error { return nil }
