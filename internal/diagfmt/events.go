package diagfmt

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"ownck/internal/ownership"
)

// EventJSON is the serialized form of a checker event.
type EventJSON struct {
	Index   int    `json:"index"`
	Kind    string `json:"kind"`
	Binding string `json:"binding,omitempty"`
	Scope   string `json:"scope,omitempty"`
	Value   uint32 `json:"value,omitempty"`
	Ref     uint32 `json:"ref,omitempty"`
	Borrow  string `json:"borrow,omitempty"`
	Note    string `json:"note,omitempty"`
}

type EventsOutput struct {
	Events    []EventJSON `json:"events"`
	Drops     int         `json:"drops"`
	Valid     bool        `json:"valid"`
	Violation string      `json:"violation,omitempty"`
}

func eventJSON(ev ownership.Event) EventJSON {
	out := EventJSON{
		Index:   ev.Index,
		Kind:    ev.Kind.String(),
		Binding: ev.Binding,
		Scope:   ev.Scope,
		Value:   uint32(ev.Value),
		Ref:     uint32(ev.Ref),
		Note:    ev.Note,
	}
	switch ev.Kind {
	case ownership.EvBorrowStart, ownership.EvBorrowEnd, ownership.EvInvalidate:
		out.Borrow = ev.Borrow.String()
	}
	return out
}

// EventsJSON writes the event log of res as a JSON document.
func EventsJSON(w io.Writer, res ownership.Result) error {
	out := EventsOutput{
		Events: make([]EventJSON, 0, len(res.Events)),
		Drops:  len(res.Drops),
		Valid:  res.Valid(),
	}
	for _, ev := range res.Events {
		out.Events = append(out.Events, eventJSON(ev))
	}
	if res.Violation != nil {
		out.Violation = res.Violation.Kind.String()
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// EventsText writes one aligned row per event. Scope enters indent the
// rows that follow until the matching end.
func EventsText(w io.Writer, res ownership.Result, useColor bool) error {
	kindColor := color.New(color.FgCyan)
	dropColor := color.New(color.FgYellow)
	badColor := color.New(color.FgRed, color.Bold)
	for _, c := range []*color.Color{kindColor, dropColor, badColor} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	depth := 0
	for _, ev := range res.Events {
		if ev.Kind == ownership.EvScopeEnd && depth > 0 {
			depth--
		}
		kc := kindColor
		switch ev.Kind {
		case ownership.EvDrop:
			kc = dropColor
		case ownership.EvInvalidate:
			kc = badColor
		}
		fmt.Fprintf(tw, "%d\t%s%s\t%s\n", ev.Index, strings.Repeat("  ", depth), kc.Sprint(ev.Kind.String()), describeEvent(ev))
		if ev.Kind == ownership.EvScopeEnter {
			depth++
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if res.Violation != nil {
		_, err := fmt.Fprintf(w, "%s at op %d: %s\n", badColor.Sprint(res.Violation.Kind.String()), res.Violation.Index, res.Violation.Message)
		return err
	}
	_, err := fmt.Fprintf(w, "valid, %d values dropped\n", len(res.Drops))
	return err
}

func describeEvent(ev ownership.Event) string {
	var parts []string
	if ev.Binding != "" {
		parts = append(parts, "`"+ev.Binding+"`")
	}
	switch ev.Kind {
	case ownership.EvScopeEnter, ownership.EvScopeEnd:
		if ev.Scope == "" {
			parts = append(parts, "<root>")
		} else {
			parts = append(parts, ev.Scope)
		}
	case ownership.EvBorrowStart, ownership.EvBorrowEnd, ownership.EvInvalidate:
		parts = append(parts, ev.Borrow.String())
		if ev.Scope != "" {
			parts = append(parts, "in "+ev.Scope)
		}
	default:
		if ev.Scope != "" {
			parts = append(parts, "in "+ev.Scope)
		}
	}
	if ev.Value != ownership.NoValueID {
		parts = append(parts, fmt.Sprintf("v%d", ev.Value))
	}
	if ev.Ref != ownership.NoRefID {
		parts = append(parts, fmt.Sprintf("r%d", ev.Ref))
	}
	if ev.Note != "" {
		parts = append(parts, ev.Note)
	}
	return strings.Join(parts, " ")
}
