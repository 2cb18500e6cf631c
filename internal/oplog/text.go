package oplog

import (
	"bytes"
	"fmt"

	"ownck/internal/diag"
	"ownck/internal/ownership"
	"ownck/internal/source"
)

// ParseText parses the line-oriented log format. Lines that fail to parse
// are reported and skipped, the remaining lines still produce operations.
func ParseText(file *source.File, r diag.Reporter) []ownership.Op {
	if r == nil {
		r = diag.NopReporter{}
	}
	var ops []ownership.Op
	content := file.Content
	base := 0
	for base <= len(content) {
		end := bytes.IndexByte(content[base:], '\n')
		if end < 0 {
			end = len(content)
		} else {
			end += base
		}
		toks := scanLine(file.ID, content[base:end], offset(base))
		if len(toks) > 0 {
			p := lineParser{toks: toks, r: r}
			if op, ok := p.parse(); ok {
				ops = append(ops, op)
			}
		}
		base = end + 1
	}
	return ops
}

type lineParser struct {
	toks []token
	pos  int
	r    diag.Reporter
}

func (p *lineParser) span() source.Span {
	return p.toks[0].span.Cover(p.toks[len(p.toks)-1].span)
}

func (p *lineParser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *lineParser) next() (token, bool) {
	tok, ok := p.peek()
	if ok {
		p.pos++
	}
	return tok, ok
}

func (p *lineParser) errorf(code diag.Code, sp source.Span, format string, args ...any) {
	p.r.Report(code, diag.SevError, sp, fmt.Sprintf(format, args...), nil)
}

// endSpan points just past the last token, for "expected X" errors.
func (p *lineParser) endSpan() source.Span {
	last := p.toks[len(p.toks)-1].span
	return source.Span{File: last.File, Start: last.End, End: last.End}
}

// keyword consumes the next token if it is the given word.
func (p *lineParser) keyword(word string) bool {
	tok, ok := p.peek()
	if ok && tok.kind == tokWord && tok.text == word {
		p.pos++
		return true
	}
	return false
}

func (p *lineParser) expectName(what string) (string, bool) {
	tok, ok := p.next()
	if !ok {
		p.errorf(diag.SynExpectName, p.endSpan(), "expected %s", what)
		return "", false
	}
	if tok.kind != tokWord || !isIdent(tok.text) {
		p.errorf(diag.SynExpectName, tok.span, "expected %s, found %q", what, tok.text)
		return "", false
	}
	return normalizeIdent(tok.text), true
}

func (p *lineParser) parse() (ownership.Op, bool) {
	head, _ := p.next()
	kind, ok := ownership.ParseOpKind(head.text)
	if head.kind != tokWord || !ok {
		p.errorf(diag.SynUnknownOp, head.span, "unknown operation %q", head.text)
		return ownership.Op{}, false
	}
	op := ownership.Op{Kind: kind}

	switch kind {
	case ownership.OpDeclare:
		op.Mutable = p.keyword("mut")
		if op.Name, ok = p.expectName("binding name"); !ok {
			return op, false
		}
	case ownership.OpMove:
		if op.Name, ok = p.expectName("binding name"); !ok {
			return op, false
		}
		if tok, has := p.peek(); has && tok.kind == tokArrow {
			p.pos++
			op.Mutable = p.keyword("mut")
			if op.Target, ok = p.expectName("move target"); !ok {
				return op, false
			}
		}
	case ownership.OpBorrow:
		if op.Name, ok = p.expectName("binding name"); !ok {
			return op, false
		}
		if tok, has := p.peek(); has && tok.kind == tokWord && tok.text != "as" && tok.text != "in" {
			p.pos++
			bk, valid := ownership.ParseBorrowKind(tok.text)
			if !valid {
				p.errorf(diag.SynBadBorrowKind, tok.span, "unknown borrow kind %q, expected shared or exclusive", tok.text)
				return op, false
			}
			op.Borrow = bk
		}
		if p.keyword("as") {
			if op.Target, ok = p.expectName("reference name"); !ok {
				return op, false
			}
		}
	case ownership.OpRelease, ownership.OpUse, ownership.OpEnter:
		if op.Name, ok = p.expectName(nameRole(kind)); !ok {
			return op, false
		}
	case ownership.OpEnd:
		if tok, has := p.peek(); has && tok.kind == tokWord && isIdent(tok.text) {
			p.pos++
			op.Name = normalizeIdent(tok.text)
		}
	}

	if kind == ownership.OpDeclare || kind == ownership.OpMove || kind == ownership.OpBorrow {
		if p.keyword("in") {
			if op.Scope, ok = p.expectName("scope name"); !ok {
				return op, false
			}
		}
	}

	if tok, has := p.peek(); has {
		rest := p.toks[p.pos].span.Cover(p.toks[len(p.toks)-1].span)
		p.errorf(diag.SynTrailingTokens, rest, "unexpected %q after %s", tok.text, kind)
		return op, false
	}
	op.Span = p.span()
	return op, true
}

func nameRole(kind ownership.OpKind) string {
	if kind == ownership.OpEnter {
		return "scope name"
	}
	return "binding name"
}
