package sequence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrAllocationFailed is returned when the allocator cannot find a free code
// within its bounded number of attempts. The request that triggered allocation
// should fail; no partial entity is left behind, so the whole request is
// safe to retry.
var ErrAllocationFailed = errors.New("code allocation failed")

// maxAttempts bounds the existence-check loop. Concurrent writers on the
// same day prefix can make the latest-code read stale, so each attempt
// re-checks the candidate before handing it out.
const maxAttempts = 5

// Store is the minimal persistence surface the allocator needs. Both
// methods operate on the table holding the entity being created; a unique
// constraint on the code column backs the allocator as a last-resort net.
type Store interface {
	// LatestCode returns the lexicographically greatest code starting with
	// prefix, or "" when no code for that prefix exists yet.
	LatestCode(ctx context.Context, prefix string) (string, error)
	// CodeExists reports whether an exact code is already taken.
	CodeExists(ctx context.Context, code string) (bool, error)
}

// Allocator hands out daily-reset sequential codes of the form
// PREFIX-YYMMDD-SEQ. The sequence restarts at 1 each calendar day.
type Allocator struct {
	store Store
	now   func() time.Time
}

func NewAllocator(store Store) *Allocator {
	return &Allocator{store: store, now: time.Now}
}

// NewAllocatorAt uses the given clock instead of wall time.
func NewAllocatorAt(store Store, now func() time.Time) *Allocator {
	return &Allocator{store: store, now: now}
}

// Next allocates the next code for the given entity prefix, padding the
// sequence to width digits. Codes are display identifiers: under racing
// writers a sequence number may be skipped, never duplicated.
func (a *Allocator) Next(ctx context.Context, entityPrefix string, width int) (string, error) {
	prefix := fmt.Sprintf("%s-%s-", entityPrefix, a.now().Format("060102"))

	latest, err := a.store.LatestCode(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("read latest code for %s: %w", prefix, err)
	}

	nextSeq := 1
	if latest != "" {
		// A malformed trailing segment counts as sequence 0.
		if parsed, err := strconv.Atoi(strings.TrimPrefix(latest, prefix)); err == nil {
			nextSeq = parsed + 1
		}
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate := fmt.Sprintf("%s%0*d", prefix, width, nextSeq)

		taken, err := a.store.CodeExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check code %s: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		// Lost a race; the max we read was stale. Step past it.
		nextSeq++
	}

	return "", fmt.Errorf("%w: prefix %s exhausted %d attempts", ErrAllocationFailed, prefix, maxAttempts)
}
