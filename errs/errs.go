// Package errs defines the typed failure value shared by every pipeline
// stage. Each stage reports its first error as an *Error naming the stage,
// and - where derivable - the source line and column; callers compose
// these with github.com/pkg/errors.Wrap as they cross package boundaries
// so the causal chain survives for %+v logging, while errors.As still
// recovers the original *Error for stage/position inspection.
package errs

import "fmt"

// Kind names which pipeline stage raised an error. The set is closed and
// mirrors the stage list in the driver's exit-code contract.
type Kind string

// The stage tags a *Error can carry.
const (
	Lex      Kind = "Lex"
	Parse    Kind = "Parse"
	Semantic Kind = "Semantic"
	IrGen    Kind = "IrGen"
	CodeGen  Kind = "CodeGen"
)

// Error is the uniform failure value surfaced by every stage.
type Error struct {
	Kind    Kind
	Line    int // 0 when no source position applies
	Column  int
	Message string
}

// Error implements the error interface, formatting as
// "<Stage>: <line>:<column>: <message>" when a position is known, or
// "<Stage>: <message>" otherwise.
func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: %d:%d: %s", e.Kind, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New builds an *Error at the given stage and source position. A Line of
// 0 means "no position available".
func New(kind Kind, line, column int, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Line:    line,
		Column:  column,
		Message: fmt.Sprintf(format, args...),
	}
}
