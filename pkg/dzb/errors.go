package dzb

import (
	"errors"
	"strconv"
	"strings"
)

// Format errors. These are wrapped in a *FormatError when returned from Parse.
var (
	ErrTruncated       = errors.New("data extends past end of buffer")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrBadGroupLink    = errors.New("invalid group tree link")
	ErrBadString       = errors.New("invalid string reference")
	ErrGroupCycle      = errors.New("group tree contains a cycle")
)

// Precondition errors. These are wrapped in a *PreconditionError.
var (
	ErrWrongVertexCount = errors.New("face needs exactly three vertex positions")
	ErrNotOwned         = errors.New("object is not owned by this container")
	ErrUnencodableName  = errors.New("group name cannot be encoded")
)

// FormatError indicates that a buffer is not a well-formed DZB image. A parse
// that fails with a FormatError never returns a partial graph.
type FormatError struct {
	// Offset is the byte offset of the offending record or field, or -1 if
	// the error is not tied to a position.
	Offset int64
	// Record names the record kind being decoded ("header", "face", ...).
	Record string

	Cause error
}

func (err *FormatError) Error() string {
	var s strings.Builder
	s.WriteString("dzb format error")
	if err.Record != "" {
		s.WriteString(" in ")
		s.WriteString(err.Record)
	}
	if err.Offset >= 0 {
		s.WriteString(" at 0x")
		s.WriteString(strconv.FormatInt(err.Offset, 16))
	}
	if err.Cause != nil {
		s.WriteString(": ")
		s.WriteString(err.Cause.Error())
	}
	return s.String()
}

func (err *FormatError) Unwrap() error {
	return err.Cause
}

// PreconditionError indicates that a caller asked for an operation the
// container cannot honor, such as referencing a foreign Property.
type PreconditionError struct {
	// Op is the operation that was refused.
	Op string

	Cause error
}

func (err *PreconditionError) Error() string {
	if err.Cause == nil {
		return "dzb: " + err.Op + ": precondition failed"
	}
	return "dzb: " + err.Op + ": " + err.Cause.Error()
}

func (err *PreconditionError) Unwrap() error {
	return err.Cause
}

func formatError(record string, offset int64, cause error) error {
	return &FormatError{Offset: offset, Record: record, Cause: cause}
}

func preconditionError(op string, cause error) error {
	return &PreconditionError{Op: op, Cause: cause}
}
