package sqlite

import (
	"database/sql"
	"fmt"
	"time"
)

func nowUTC() time.Time { return time.Now().UTC() }

// errNotFound is returned by update/delete operations whose WHERE clause
// matched zero rows, so mapError can surface it as apperrors.NotFound
// without needing a SELECT-then-check round trip for every write.
func errNotFound(entity, id string) error {
	return fmt.Errorf("%s %s not found: %w", entity, id, sql.ErrNoRows)
}
