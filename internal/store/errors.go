package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// ErrKeySchemaMismatch matches a StoreError raised because the key names used do not
// match the table's key schema. Callers use it to move on to the next candidate key name.
var ErrKeySchemaMismatch = errors.New("key does not match table schema")

// StoreError wraps any DynamoDB failure with the operation and table involved.
type StoreError struct {
	Op        string
	Table     string
	Err       error
	keySchema bool
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool {
	return target == ErrKeySchemaMismatch && e.keySchema
}

// Message returns the underlying service message without the op/table prefix.
func (e *StoreError) Message() string {
	var apiErr smithy.APIError
	if errors.As(e.Err, &apiErr) {
		return apiErr.ErrorMessage()
	}
	return e.Err.Error()
}

func wrap(op, table string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Table: table, Err: err, keySchema: isKeySchemaError(err)}
}

// isKeySchemaError classifies DynamoDB's ValidationException for a key that names
// attributes the table is not keyed on, or omits one it is.
func isKeySchemaError(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) || apiErr.ErrorCode() != "ValidationException" {
		return false
	}
	msg := strings.ToLower(apiErr.ErrorMessage())
	if !strings.Contains(msg, "key") {
		return false
	}
	return strings.Contains(msg, "schema") || strings.Contains(msg, "missing")
}
