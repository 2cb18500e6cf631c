package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"ownck/internal/diag"
	"ownck/internal/source"
)

type palette struct {
	err, warn, info, note *color.Color
	code, path, caret     *color.Color
	gutter                *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan, color.Bold),
		note:   color.New(color.FgCyan),
		code:   color.New(color.Bold),
		path:   color.New(color.Bold),
		caret:  color.New(color.FgRed, color.Bold),
		gutter: color.New(color.FgBlue),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.code, p.path, p.caret, p.gutter} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Ожидается bag.Sort() заранее. Для каждой диагностики:
//
//	<path>:<line>:<col>: <SEV> <CODE>: <Message>
//	   3 | borrow v shared
//	     | ^~~~~~~~~~~~~~~
//	  note: <path>:<line>:<col>: <msg>
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	if bag == nil || fs == nil {
		return
	}
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		prettyOne(w, &d, fs, opts, p)
	}
}

func prettyOne(w io.Writer, d *diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, p palette) {
	loc := location(fs, d.Primary, opts.PathMode)
	fmt.Fprintf(w, "%s: %s %s: %s\n",
		p.path.Sprint(loc),
		p.severity(d.Severity).Sprint(d.Severity.String()),
		p.code.Sprint(d.Code.ID()),
		d.Message,
	)
	snippet(w, fs, d.Primary, opts, p, p.caret)

	if !opts.ShowNotes {
		return
	}
	for _, n := range d.Notes {
		fmt.Fprintf(w, "  %s %s: %s\n", p.note.Sprint("note:"), location(fs, n.Span, opts.PathMode), n.Msg)
		snippet(w, fs, n.Span, opts, p, p.note)
	}
}

func location(fs *source.FileSet, sp source.Span, mode source.PathMode) string {
	f := fs.Get(sp.File)
	if f == nil {
		return "<unknown>"
	}
	start, _ := fs.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d", f.FormatPath(mode, fs.BaseDir()), start.Line, start.Col)
}

// snippet prints the first line of sp with an underline. Display columns
// are measured with runewidth so wide characters keep the caret aligned.
func snippet(w io.Writer, fs *source.FileSet, sp source.Span, opts PrettyOpts, p palette, mark *color.Color) {
	f := fs.Get(sp.File)
	if f == nil || len(f.Content) == 0 {
		return
	}
	start, _ := fs.Resolve(sp)
	line := f.GetLine(start.Line)
	lineStart := f.Offset(source.LineCol{Line: start.Line, Col: 1})

	from := int(sp.Start - lineStart)
	to := int(sp.End - lineStart)
	from = min(max(from, 0), len(line))
	to = min(max(to, from), len(line))

	prefix := expandTabs(line[:from])
	marked := expandTabs(line[from:to])
	text := expandTabs(line)
	if opts.Width > 0 {
		text = runewidth.Truncate(text, opts.Width, "…")
	}

	num := fmt.Sprintf("%d", start.Line)
	pad := strings.Repeat(" ", len(num))
	fmt.Fprintf(w, " %s %s %s\n", p.gutter.Sprint(num), p.gutter.Sprint("|"), text)

	width := max(runewidth.StringWidth(marked), 1)
	underline := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(w, " %s %s %s%s\n", pad, p.gutter.Sprint("|"), strings.Repeat(" ", runewidth.StringWidth(prefix)), mark.Sprint(underline))
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}
