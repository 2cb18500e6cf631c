package oplog

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"

	"ownck/internal/source"
)

type tokenKind uint8

const (
	tokWord tokenKind = iota
	tokArrow
	tokBad
)

type token struct {
	kind tokenKind
	text string
	span source.Span
}

// scanLine splits one line into tokens. Comments start at '#' or "//".
// base is the byte offset of the line inside the file.
func scanLine(file source.FileID, line []byte, base uint32) []token {
	var toks []token
	pos := 0
	for pos < len(line) {
		r, size := utf8.DecodeRune(line[pos:])
		switch {
		case unicode.IsSpace(r):
			pos += size
			continue
		case r == '#':
			return toks
		case pairAt(line, pos, '/', '/'):
			return toks
		case pairAt(line, pos, '-', '>'):
			toks = append(toks, token{kind: tokArrow, text: "->", span: spanOf(file, base, pos, pos+2)})
			pos += 2
			continue
		}
		start := pos
		for pos < len(line) {
			r, size = utf8.DecodeRune(line[pos:])
			if unicode.IsSpace(r) || r == '#' || pairAt(line, pos, '-', '>') || pairAt(line, pos, '/', '/') {
				break
			}
			pos += size
		}
		text := string(line[start:pos])
		kind := tokWord
		if !utf8.ValidString(text) {
			kind = tokBad
		}
		toks = append(toks, token{kind: kind, text: text, span: spanOf(file, base, start, pos)})
	}
	return toks
}

func pairAt(line []byte, pos int, a, b byte) bool {
	return pos+1 < len(line) && line[pos] == a && line[pos+1] == b
}

func spanOf(file source.FileID, base uint32, start, end int) source.Span {
	return source.Span{File: file, Start: base + offset(start), End: base + offset(end)}
}

// offset converts a byte position; FileSet.Add already rejects files that
// do not fit in uint32, so overflow here is a bug.
func offset(n int) uint32 {
	off, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("offset overflow: %w", err))
	}
	return off
}

// isIdent accepts letters, digits, '_' and '\'' with a non-digit start.
func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || r == '\'' || unicode.Is(unicode.Mn, r)):
		default:
			return false
		}
	}
	return true
}

// normalizeIdent brings identifiers to NFC so that visually equal names bind
// to the same binding.
func normalizeIdent(s string) string {
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}
