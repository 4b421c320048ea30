package domain

import (
	"errors"
	"fmt"
)

// Structural failures. Any of these halts the invoking stage with a non-zero
// exit; data-quality problems never surface as errors.
var (
	ErrInputNotFound       = errors.New("required input not found")
	ErrColumnMissing       = errors.New("required column missing")
	ErrReferenceUnreadable = errors.New("reference data unreadable")
	ErrPartitionViolated   = errors.New("accept/exception partition violated")
	ErrStageNotFound       = errors.New("stage not found")
	ErrConfigInvalid       = errors.New("invalid configuration")
)

// Structural error codes reported to operators and the run catalog.
const (
	CodeInputNotFound       = "INPUT_NOT_FOUND"
	CodeColumnMissing       = "COLUMN_MISSING"
	CodeReferenceUnreadable = "REFERENCE_UNREADABLE"
	CodePartitionViolated   = "PARTITION_VIOLATED"
)

// StructuralError wraps a structural failure with the stage that hit it.
type StructuralError struct {
	Stage   string
	Code    string
	Message string
	Err     error
}

func (e *StructuralError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Stage == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Stage, msg)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

// MissingInput reports a required input artifact that does not exist.
func MissingInput(stage, path string) error {
	return &StructuralError{
		Stage:   stage,
		Code:    CodeInputNotFound,
		Message: fmt.Sprintf("input file not found: %s", path),
		Err:     ErrInputNotFound,
	}
}

// MissingColumns reports required columns absent from a table.
func MissingColumns(stage, table string, columns []string) error {
	return &StructuralError{
		Stage:   stage,
		Code:    CodeColumnMissing,
		Message: fmt.Sprintf("%s is missing required columns %v", table, columns),
		Err:     ErrColumnMissing,
	}
}

// UnreadableReference reports reference data that exists but cannot be used.
func UnreadableReference(stage, path string, cause error) error {
	return &StructuralError{
		Stage:   stage,
		Code:    CodeReferenceUnreadable,
		Message: fmt.Sprintf("reference %s unreadable: %v", path, cause),
		Err:     errors.Join(ErrReferenceUnreadable, cause),
	}
}

// ErrorCode extracts the structural code from err, or "" when err is not structural.
func ErrorCode(err error) string {
	var se *StructuralError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
