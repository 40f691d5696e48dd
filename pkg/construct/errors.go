package construct

import (
	"fmt"
)

// ValidationError is a configuration problem detected while declaring constructs. It is
// attributed to the path of the offending construct.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// NewValidationError creates a [ValidationError] attributed to c.
func NewValidationError(c Construct, format string, args ...any) error {
	path := ""
	if c != nil && c.Node() != nil {
		path = c.Node().Path()
	}
	return &ValidationError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// ValidationErrors collects every [ValidationError] contained in err, following both single
// and joined wrapping.
func ValidationErrors(err error) []*ValidationError {
	switch e := err.(type) {
	case nil:
		return nil
	case *ValidationError:
		return []*ValidationError{e}
	case interface{ Unwrap() []error }:
		var out []*ValidationError
		for _, inner := range e.Unwrap() {
			out = append(out, ValidationErrors(inner)...)
		}
		return out
	case interface{ Unwrap() error }:
		return ValidationErrors(e.Unwrap())
	}
	return nil
}
