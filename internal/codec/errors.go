package codec

import (
	"errors"
	"fmt"
)

// ErrCodec is the sentinel every codec failure unwraps to.
var ErrCodec = errors.New("codec error")

// CodecError reports malformed or reference-inconsistent graph text, or a
// graph that cannot be encoded. Line and Column are 1-based and zero when
// unknown.
type CodecError struct {
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *CodecError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Msg
	if msg == "" {
		msg = "invalid document"
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d col %d: %s", ErrCodec.Error(), e.Line, e.Column, msg)
	}
	return fmt.Sprintf("%s: %s", ErrCodec.Error(), msg)
}

func (e *CodecError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrCodec, e.Err}
	}
	return []error{ErrCodec}
}

func errorf(format string, args ...any) *CodecError {
	return &CodecError{Msg: fmt.Sprintf(format, args...)}
}
