package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/ctxforge/taskmcp/internal/errors"
)

// mapError translates a raw database/sql or sqlite driver error into the
// server's stable error taxonomy. modernc.org/sqlite reports constraint
// violations as plain error strings rather than a typed sentinel, so
// detection here is string-based; this mirrors how the teacher's ent-backed
// mapError inspected driver errors for a handful of known shapes.
func mapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(operation, err)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return apperrors.AlreadyExists(operation, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return apperrors.MissingParent(operation, err)
	default:
		return apperrors.Internal(operation, fmt.Errorf("sqlite: %w", err))
	}
}
