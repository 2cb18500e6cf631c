package diagfmt

import "ownck/internal/source"

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	PathMode  source.PathMode
	Width     int // максимальная ширина строки, 0 - не ограничено
	ShowNotes bool
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	IncludePositions bool // добавить line/col
	PathMode         source.PathMode
	Max              int // обрезка вывода, не Bag
	IncludeNotes     bool
}

// ParsePathMode accepts auto|absolute|relative|basename.
func ParsePathMode(s string) (source.PathMode, bool) {
	switch s {
	case "auto", "":
		return source.PathAuto, true
	case "absolute":
		return source.PathAbsolute, true
	case "relative":
		return source.PathRelative, true
	case "basename":
		return source.PathBasename, true
	}
	return source.PathAuto, false
}
