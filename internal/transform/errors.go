package transform

import "fmt"

// FormatError means pipeline output could not be parsed locally
type FormatError struct {
	Source string
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid %s output: %v", e.Source, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }
