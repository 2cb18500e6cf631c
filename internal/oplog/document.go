package oplog

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"ownck/internal/diag"
	"ownck/internal/ownership"
	"ownck/internal/source"
)

// ParseDocument parses a YAML or JSON operation document. The root is
// either a mapping with an "ops" sequence or the sequence itself.
func ParseDocument(file *source.File, r diag.Reporter) []ownership.Op {
	if r == nil {
		r = diag.NopReporter{}
	}
	d := docParser{file: file, r: r}
	if len(bytes.TrimSpace(file.Content)) == 0 {
		return nil
	}
	var root yaml.Node
	if err := yaml.Unmarshal(file.Content, &root); err != nil {
		d.errorf(source.Span{File: file.ID}, "invalid document: %v", err)
		return nil
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil
	}
	seq := root.Content[0]
	if seq.Kind == yaml.MappingNode {
		seq = d.field(seq, "ops")
		if seq == nil {
			d.errorf(d.span(root.Content[0]), "document has no \"ops\" list")
			return nil
		}
	}
	if seq.Kind != yaml.SequenceNode {
		d.errorf(d.span(seq), "\"ops\" must be a list of operations")
		return nil
	}
	ops := make([]ownership.Op, 0, len(seq.Content))
	for _, item := range seq.Content {
		if op, ok := d.op(item); ok {
			ops = append(ops, op)
		}
	}
	return ops
}

type docParser struct {
	file *source.File
	r    diag.Reporter
}

func (d *docParser) errorf(sp source.Span, format string, args ...any) {
	d.reportf(diag.SynBadDocument, sp, format, args...)
}

func (d *docParser) reportf(code diag.Code, sp source.Span, format string, args ...any) {
	d.r.Report(code, diag.SevError, sp, fmt.Sprintf(format, args...), nil)
}

// span covers the node's first line from its column; yaml positions are 1-based.
func (d *docParser) span(n *yaml.Node) source.Span {
	if n == nil || n.Line <= 0 {
		return source.Span{File: d.file.ID}
	}
	start := d.file.Offset(source.LineCol{Line: offset(n.Line), Col: offset(max(n.Column, 1))})
	end := start
	if n.Kind == yaml.ScalarNode {
		end = start + offset(len(n.Value))
	}
	if lineEnd := d.lineEnd(start); end > lineEnd || n.Kind != yaml.ScalarNode {
		end = lineEnd
	}
	return source.Span{File: d.file.ID, Start: start, End: end}
}

func (d *docParser) lineEnd(off uint32) uint32 {
	content := d.file.Content
	if int(off) >= len(content) {
		return offset(len(content))
	}
	if i := bytes.IndexByte(content[off:], '\n'); i >= 0 {
		return off + offset(i)
	}
	return offset(len(content))
}

func (d *docParser) field(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func (d *docParser) op(n *yaml.Node) (ownership.Op, bool) {
	if n.Kind != yaml.MappingNode {
		d.errorf(d.span(n), "operation must be a mapping")
		return ownership.Op{}, false
	}
	var (
		op      ownership.Op
		kindRaw *yaml.Node
		ok      = true
	)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		switch key.Value {
		case "op":
			kindRaw = val
		case "name":
			op.Name, ok = d.ident(val, ok)
		case "scope":
			op.Scope, ok = d.ident(val, ok)
		case "to", "as":
			op.Target, ok = d.ident(val, ok)
		case "mut":
			if err := val.Decode(&op.Mutable); err != nil {
				d.errorf(d.span(val), "\"mut\" must be a boolean")
				ok = false
			}
		case "kind":
			bk, valid := ownership.ParseBorrowKind(val.Value)
			if val.Kind != yaml.ScalarNode || !valid {
				d.reportf(diag.SynBadBorrowKind, d.span(val), "unknown borrow kind %q, expected shared or exclusive", val.Value)
				ok = false
			}
			op.Borrow = bk
		default:
			d.reportf(diag.SynUnexpectedToken, d.span(key), "unknown field %q", key.Value)
			ok = false
		}
	}
	if kindRaw == nil {
		d.errorf(d.span(n), "operation has no \"op\" field")
		return op, false
	}
	kind, valid := ownership.ParseOpKind(kindRaw.Value)
	if !valid {
		d.reportf(diag.SynUnknownOp, d.span(kindRaw), "unknown operation %q", kindRaw.Value)
		return op, false
	}
	op.Kind = kind
	if op.Name == "" && kind != ownership.OpEnd && ok {
		d.reportf(diag.SynExpectName, d.span(n), "%s needs a \"name\"", kind)
		return op, false
	}
	// from the start of the mapping to the end of the op keyword, so that
	// flow mappings sharing a line keep disjoint spans
	start, end := d.span(n).Start, d.span(kindRaw).End
	op.Span = source.Span{File: d.file.ID, Start: start, End: max(end, start+1)}
	return op, ok
}

func (d *docParser) ident(val *yaml.Node, ok bool) (string, bool) {
	if val.Kind != yaml.ScalarNode || !isIdent(val.Value) {
		d.reportf(diag.SynExpectName, d.span(val), "expected an identifier, found %q", val.Value)
		return "", false
	}
	return normalizeIdent(val.Value), ok
}
