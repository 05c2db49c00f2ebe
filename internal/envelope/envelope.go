// Package envelope builds the standardized response shape every tool call
// returns, per spec.md §4.8.
package envelope

import (
	"errors"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/ctxforge/taskmcp/internal/errors"
)

// Status is the top-level outcome of a tool call.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusPartialSuccess Status = "partial_success"
	StatusFailure        Status = "failure"
)

// ErrorInfo is the envelope's error field, present only on failure.
type ErrorInfo struct {
	Message   string `json:"message"`
	Code      string `json:"code"`
	Operation string `json:"operation"`
	Timestamp string `json:"timestamp"`
}

// Confirmation reports whether the operation ran to completion and
// whether any writes landed, including a partial-failure list for
// multi-step operations (e.g. an auto-delegation that itself failed).
type Confirmation struct {
	OperationCompleted bool     `json:"operation_completed"`
	DataPersisted      bool     `json:"data_persisted"`
	PartialFailures    []string `json:"partial_failures,omitempty"`
}

// Envelope is the fixed response shape for every manage_*/call_agent
// invocation.
type Envelope struct {
	Status       Status                 `json:"status"`
	Success      bool                   `json:"success"`
	Operation    string                 `json:"operation"`
	OperationID  uuid.UUID              `json:"operation_id"`
	Timestamp    string                 `json:"timestamp"`
	Data         map[string]interface{} `json:"data,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	Error        *ErrorInfo             `json:"error,omitempty"`
	Confirmation Confirmation           `json:"confirmation"`
}

// Success builds a success envelope for "<tool>.<action>" carrying data.
func Success(operation string, data map[string]interface{}) *Envelope {
	return &Envelope{
		Status:      StatusSuccess,
		Success:     true,
		Operation:   operation,
		OperationID: uuid.New(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
		Data:        data,
		Confirmation: Confirmation{
			OperationCompleted: true,
			DataPersisted:      true,
		},
	}
}

// PartialSuccess builds an envelope for an operation that committed its
// primary write but hit a non-fatal side-effect failure (e.g. an
// auto-delegation that failed after the main write succeeded).
func PartialSuccess(operation string, data map[string]interface{}, partialFailures []string) *Envelope {
	e := Success(operation, data)
	e.Status = StatusPartialSuccess
	e.Confirmation.PartialFailures = partialFailures
	return e
}

// Failure builds a failure envelope from err, unwrapping an
// *errors.EnhancedError for its code/operation when present.
func Failure(operation string, err error) *Envelope {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	info := &ErrorInfo{
		Message:   err.Error(),
		Code:      string(apperrors.CodeOf(err)),
		Operation: operation,
		Timestamp: now,
	}
	var enhanced *apperrors.EnhancedError
	if errors.As(err, &enhanced) && enhanced.Operation != "" {
		info.Operation = enhanced.Operation
	}
	return &Envelope{
		Status:      StatusFailure,
		Success:     false,
		Operation:   operation,
		OperationID: uuid.New(),
		Timestamp:   now,
		Error:       info,
		Confirmation: Confirmation{
			OperationCompleted: false,
			DataPersisted:      false,
		},
	}
}

// WithMetadata attaches metadata to an envelope and returns it, for
// chaining onto Success/PartialSuccess.
func (e *Envelope) WithMetadata(metadata map[string]interface{}) *Envelope {
	e.Metadata = metadata
	return e
}
