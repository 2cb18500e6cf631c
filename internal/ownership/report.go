package ownership

import (
	"errors"

	"ownck/internal/diag"
)

// Code maps the violation kind to its diagnostic code.
func (k ViolationKind) Code() diag.Code {
	switch k {
	case DuplicateBinding:
		return diag.OwnDuplicateBinding
	case UseAfterMove:
		return diag.OwnUseAfterMove
	case ConflictingBorrow:
		return diag.OwnConflictingBorrow
	case DanglingReference:
		return diag.OwnDanglingReference
	case UnknownBinding:
		return diag.OwnUnknownBinding
	case ImmutableBorrow:
		return diag.OwnImmutableBorrow
	default:
		return diag.OwnInfo
	}
}

// Diagnose reports the violation of res, if any. ops must be the log
// res was computed from; spans of the related operation become notes.
func Diagnose(res Result, ops []Op, r diag.Reporter) {
	v := res.Violation
	if v == nil || r == nil {
		return
	}
	b := diag.ReportError(r, v.Kind.Code(), v.Op.Span, v.Message)
	if v.Related >= 0 && v.Related < len(ops) {
		b.WithNote(ops[v.Related].Span, v.RelatedNote)
	}
	b.Emit()
}

// DiagnoseError converts an *OpError into a syntax diagnostic. Other errors
// are not reported and false is returned.
func DiagnoseError(err error, r diag.Reporter) bool {
	var opErr *OpError
	if !errors.As(err, &opErr) || r == nil {
		return false
	}
	code := diag.SynInvalidOp
	switch {
	case errors.Is(err, ErrScopeNotOpen):
		code = diag.SynScopeNotOpen
	case errors.Is(err, ErrScopeAlreadyOpen):
		code = diag.SynScopeAlreadyOpen
	case errors.Is(err, ErrEmptyName):
		code = diag.SynExpectName
	case errors.Is(err, ErrBadBorrowKind):
		code = diag.SynBadBorrowKind
	case errors.Is(err, ErrUnknownOp):
		code = diag.SynUnknownOp
	}
	diag.ReportError(r, code, opErr.Op.Span, opErr.Err.Error()).Emit()
	return true
}
