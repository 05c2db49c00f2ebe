// Package errors defines the stable error taxonomy surfaced by every
// domain service and translated into the RPC envelope's error block.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Code is one of the stable, client-visible error codes from the error
// taxonomy. Codes never change meaning once shipped; the envelope layer
// copies them into its error block (the HTTP status does not depend on
// them).
type Code string

const (
	CodeNotFound           Code = "NotFound"
	CodeAlreadyExists      Code = "AlreadyExists"
	CodeMissingParent      Code = "MissingParent"
	CodeInvalidAction      Code = "InvalidAction"
	CodeValidationError    Code = "ValidationError"
	CodeInvariantViolation Code = "InvariantViolation"
	CodeDependencyCycle    Code = "DependencyCycle"
	CodeCircularInheritance Code = "CircularInheritance"
	CodeConflictingState   Code = "ConflictingState"
	CodeTimeout            Code = "Timeout"
	CodeInternal           Code = "Internal"
)

// EnhancedError wraps a typed error code with a human-readable cause and
// actionable suggestion, in the teacher's operation/cause/suggestion style.
// InvariantViolation errors additionally carry BlockingIDs so completion
// gating (spec §4.4) can report which subtasks or dependencies blocked the
// transition.
type EnhancedError struct {
	Code        Code
	Operation   string
	Cause       error
	Suggestion  string
	BlockingIDs []string
}

func (e *EnhancedError) Error() string {
	var parts []string
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	} else {
		parts = append(parts, fmt.Sprintf("error in %s", e.Operation))
	}
	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("suggestion: %s", e.Suggestion))
	}
	if len(e.BlockingIDs) > 0 {
		parts = append(parts, fmt.Sprintf("blocking: %s", strings.Join(e.BlockingIDs, ", ")))
	}
	return strings.Join(parts, "; ")
}

func (e *EnhancedError) Unwrap() error { return e.Cause }

// CodeOf extracts the Code from err, defaulting to CodeInternal when err
// is not an *EnhancedError (or is "" when err is nil).
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var ee *EnhancedError
	if errors.As(err, &ee) {
		return ee.Code
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CodeTimeout
	}
	return CodeInternal
}

// BlockingIDsOf extracts the blocking id list from err, if any.
func BlockingIDsOf(err error) []string {
	var ee *EnhancedError
	if errors.As(err, &ee) {
		return ee.BlockingIDs
	}
	return nil
}

func NotFound(operation string, cause error) *EnhancedError {
	return &EnhancedError{Code: CodeNotFound, Operation: operation, Cause: cause}
}

func AlreadyExists(operation string, cause error) *EnhancedError {
	return &EnhancedError{Code: CodeAlreadyExists, Operation: operation, Cause: cause}
}

func MissingParent(operation string, cause error) *EnhancedError {
	return &EnhancedError{
		Code:       CodeMissingParent,
		Operation:  operation,
		Cause:      cause,
		Suggestion: "create the missing ancestor context before resolving this level",
	}
}

func InvalidAction(tool, action string) *EnhancedError {
	return &EnhancedError{
		Code:      CodeInvalidAction,
		Operation: fmt.Sprintf("%s.%s", tool, action),
		Cause:     fmt.Errorf("unknown action %q for tool %q", action, tool),
	}
}

func ValidationError(operation string, cause error) *EnhancedError {
	return &EnhancedError{Code: CodeValidationError, Operation: operation, Cause: cause}
}

// InvariantViolation reports a gate failure (e.g. completing a task with
// unfinished subtasks) together with the ids that block the transition.
func InvariantViolation(operation string, cause error, blockingIDs ...string) *EnhancedError {
	return &EnhancedError{
		Code:        CodeInvariantViolation,
		Operation:   operation,
		Cause:       cause,
		BlockingIDs: blockingIDs,
	}
}

func DependencyCycle(taskID, dependsOnID string) *EnhancedError {
	return &EnhancedError{
		Code:       CodeDependencyCycle,
		Operation:  "add_dependency",
		Cause:      fmt.Errorf("adding dependency %s -> %s would create a cycle", taskID, dependsOnID),
		Suggestion: "remove an existing dependency that creates the cycle before retrying",
	}
}

func CircularInheritance(chain []string) *EnhancedError {
	return &EnhancedError{
		Code:      CodeCircularInheritance,
		Operation: "resolve",
		Cause:     fmt.Errorf("inheritance chain revisits a level: %s", strings.Join(chain, " -> ")),
	}
}

func ConflictingState(operation string, cause error) *EnhancedError {
	return &EnhancedError{
		Code:       CodeConflictingState,
		Operation:  operation,
		Cause:      cause,
		Suggestion: "re-read the entity and retry with its current version",
	}
}

func Timeout(operation string) *EnhancedError {
	return &EnhancedError{
		Code:      CodeTimeout,
		Operation: operation,
		Cause:     fmt.Errorf("%s exceeded its execution budget", operation),
	}
}

func Internal(operation string, cause error) *EnhancedError {
	return &EnhancedError{
		Code:      CodeInternal,
		Operation: operation,
		Cause:     cause,
	}
}
