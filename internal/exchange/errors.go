package exchange

import "fmt"

// ValidationError is a problem with identifiers taken from the request path or body.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
