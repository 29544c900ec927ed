package gis

import "fmt"

// ExhaustedError marks an offset whose fetch attempts are all spent.
// It is terminal for that offset only; other offsets are unaffected.
type ExhaustedError struct {
	Offset int
	Err    error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("fetch exhausted at offset %d: %v", e.Offset, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ExhaustedError) Unwrap() error {
	return e.Err
}
