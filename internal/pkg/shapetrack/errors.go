package shapetrack

import (
	"errors"
	"fmt"
)

// ParseError reports a malformed path description.
type ParseError struct {
	Token  string // offending token, empty at end of input
	Offset int    // byte offset into the description
	Reason string
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("parse path: %s at offset %d", e.Reason, e.Offset)
	}
	return fmt.Sprintf("parse path: %s %q at offset %d", e.Reason, e.Token, e.Offset)
}

// InvalidParameterError reports an out-of-range numeric parameter.
type InvalidParameterError struct {
	Name   string
	Value  any
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Name, e.Value, e.Reason)
}

// DegenerateShapeError is returned when sampled points span no area and no
// length, so no scale factor exists.
type DegenerateShapeError struct {
	Points        int
	Width, Height float64
}

func (e *DegenerateShapeError) Error() string {
	return fmt.Sprintf("degenerate shape: %d points span %gx%g", e.Points, e.Width, e.Height)
}

// IsInputError reports whether err was caused by the caller's input rather
// than by the environment. Retrying such an error with the same input fails
// the same way.
func IsInputError(err error) bool {
	return ErrorKind(err) != ""
}

func invalid(name string, value any, reason string) error {
	return &InvalidParameterError{Name: name, Value: value, Reason: reason}
}

// Error kinds reported by ErrorKind.
const (
	KindParse            = "parse_error"
	KindInvalidParameter = "invalid_parameter"
	KindDegenerateShape  = "degenerate_shape"
)

// ErrorKind classifies err as one of the Kind constants, or "" when err is not
// a conversion input error.
func ErrorKind(err error) string {
	var (
		pe *ParseError
		ie *InvalidParameterError
		de *DegenerateShapeError
	)
	switch {
	case errors.As(err, &pe):
		return KindParse
	case errors.As(err, &ie):
		return KindInvalidParameter
	case errors.As(err, &de):
		return KindDegenerateShape
	}
	return ""
}
