package helper

import "fmt"

// NewError wraps err with the name of the operation that failed.
// A nil err yields nil so call sites can wrap unconditionally.
func NewError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", operation, err)
}
