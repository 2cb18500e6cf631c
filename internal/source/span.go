package source

import "strconv"

// Span is a half-open byte range [Start, End) inside one file. Every parsed
// operation carries the span of its source text.
type Span struct {
	File  FileID
	Start uint32
	End   uint32
}

func (s Span) Empty() bool { return s.Start == s.End }

func (s Span) Len() uint32 { return s.End - s.Start }

// String renders "file:start-end", used as a stable sort and dedup key.
func (s Span) String() string {
	b := make([]byte, 0, 24)
	b = strconv.AppendUint(b, uint64(s.File), 10)
	b = append(b, ':')
	b = strconv.AppendUint(b, uint64(s.Start), 10)
	b = append(b, '-')
	b = strconv.AppendUint(b, uint64(s.End), 10)
	return string(b)
}

// Cover returns the smallest span containing both s and other.
// Spans from different files are not merged.
func (s Span) Cover(other Span) Span {
	if s.File != other.File {
		return s
	}
	s.Start = min(s.Start, other.Start)
	s.End = max(s.End, other.End)
	return s
}

// Contains reports whether other lies fully inside s.
func (s Span) Contains(other Span) bool {
	return s.File == other.File && other.Start >= s.Start && other.End <= s.End
}

// Before reports whether s ends at or before other starts; spans of
// different files are ordered by file.
func (s Span) Before(other Span) bool {
	if s.File != other.File {
		return s.File < other.File
	}
	return s.End <= other.Start
}
