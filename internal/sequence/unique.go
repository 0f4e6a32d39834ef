package sequence

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// IsUniqueViolation reports whether err is a unique-constraint failure on
// insert. A violation on the code column after the allocator's checks
// means a race slipped through; callers treat it as ErrAllocationFailed.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	// SQLite, used by the test suite.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
