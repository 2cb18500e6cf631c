package diag

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

type Code uint16

const (
	// Неизвестная ошибка
	UnknownCode Code = 0

	// Синтаксис журнала операций
	SynInfo             Code = 2000
	SynUnexpectedToken  Code = 2001
	SynUnknownOp        Code = 2002
	SynExpectName       Code = 2003
	SynBadBorrowKind    Code = 2004
	SynTrailingTokens   Code = 2005
	SynBadDocument      Code = 2006
	SynScopeNotOpen     Code = 2007
	SynScopeAlreadyOpen Code = 2008
	SynInvalidOp        Code = 2009

	// Владение и заимствования
	OwnInfo              Code = 3000
	OwnDuplicateBinding  Code = 3001
	OwnUseAfterMove      Code = 3002
	OwnConflictingBorrow Code = 3003
	OwnDanglingReference Code = 3004
	OwnUnknownBinding    Code = 3005
	OwnImmutableBorrow   Code = 3006

	// Ошибки I/O
	IOLoadFileError Code = 4001
	IOCacheError    Code = 4002

	// Конфигурация проекта
	ProjInfo      Code = 5000
	ProjBadConfig Code = 5001

	// Observability
	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var codeDescription = map[Code]string{
	UnknownCode:          "Unknown error",
	SynInfo:              "Operation log information",
	SynUnexpectedToken:   "Unexpected token",
	SynUnknownOp:         "Unknown operation",
	SynExpectName:        "Expected binding or scope name",
	SynBadBorrowKind:     "Unknown borrow kind",
	SynTrailingTokens:    "Unexpected tokens after operation",
	SynBadDocument:       "Malformed operation document",
	SynScopeNotOpen:      "Scope is not open",
	SynScopeAlreadyOpen:  "Scope is already open",
	SynInvalidOp:         "Invalid operation",
	OwnInfo:              "Ownership information",
	OwnDuplicateBinding:  "Duplicate binding",
	OwnUseAfterMove:      "Use of moved value",
	OwnConflictingBorrow: "Conflicting borrow",
	OwnDanglingReference: "Dangling reference",
	OwnUnknownBinding:    "Unknown binding",
	OwnImmutableBorrow:   "Exclusive borrow of immutable binding",
	IOLoadFileError:      "I/O load file error",
	IOCacheError:         "Verdict cache error",
	ProjInfo:             "Project information",
	ProjBadConfig:        "Invalid project configuration",
	ObsInfo:              "Observability information",
	ObsTimings:           "Pipeline timings",
}

// ID returns the stable textual identifier, e.g. OWN3002.
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("OWN%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("PROJ%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// ParseCode accepts either the textual id ("OWN3002") or the bare number ("3002").
func ParseCode(s string) (Code, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	digits := strings.TrimLeft(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	n, err := strconv.ParseUint(digits, 10, 16)
	if err != nil {
		return UnknownCode, false
	}
	c := Code(n)
	if _, ok := codeDescription[c]; !ok || c == UnknownCode {
		return UnknownCode, false
	}
	if digits != s && c.ID() != s {
		return UnknownCode, false
	}
	return c, true
}

// Codes returns every registered code in ascending order.
func Codes() []Code {
	out := make([]Code, 0, len(codeDescription))
	for c := range codeDescription {
		if c != UnknownCode {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return out
}
