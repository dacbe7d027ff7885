package refresh

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound reports a hash with no live record and no consumption
// tombstone. Indistinguishable to clients from a malformed token.
var ErrNotFound = errors.New("refresh: token not found")

// ErrExpired reports a record found past its expiry. The store deletes the
// stale record as part of reporting this.
var ErrExpired = errors.New("refresh: token expired")

// ErrReused reports a hash that was already consumed by a rotation. Matched
// via errors.Is; the concrete error is a *ReuseError carrying the owner.
var ErrReused = errors.New("refresh: token already used")

// ErrUnavailable wraps transport faults from the backing store so callers
// can tell infrastructure failure apart from a rejected token.
var ErrUnavailable = errors.New("refresh: store unavailable")

// ReuseError identifies the owner of a consumed secret that was presented
// again. errors.Is(err, ErrReused) matches it.
type ReuseError struct {
	UserID   string
	TenantID string
}

func (e *ReuseError) Error() string {
	return fmt.Sprintf("refresh: token already used (user %s)", e.UserID)
}

func (e *ReuseError) Unwrap() error { return ErrReused }

// Store persists refresh token records keyed by secret hash.
//
// Rotate is the only compound operation: it atomically consumes the record
// at the given hash and inserts next in its place, copying UserID and
// TenantID from the consumed record into next. Exactly one of N concurrent
// rotations of the same hash succeeds; the rest observe ErrReused (or
// ErrNotFound on backends without tombstones for records that never
// existed). An expired record is deleted and reported as ErrExpired without
// inserting next.
type Store interface {
	// Create inserts a record. The caller sets UserID and TenantID.
	Create(ctx context.Context, rec Record) error

	// Find returns the live record at hash, ErrNotFound, or ErrExpired.
	// Read-only; expired records are cleaned up by Rotate or DeleteExpired.
	Find(ctx context.Context, hash Hash) (Record, error)

	// Rotate consumes the record at hash and inserts next. It returns the
	// consumed record so the caller can load the owning user.
	Rotate(ctx context.Context, hash Hash, next Record) (Record, error)

	// Delete removes the record at hash. Unknown hashes are a no-op.
	Delete(ctx context.Context, hash Hash) error

	// DeleteAllForUser removes every live record owned by userID and
	// returns how many were deleted.
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)

	// DeleteExpired sweeps records past their expiry. Correctness never
	// depends on the sweep; it exists to bound table growth on backends
	// without native TTLs.
	DeleteExpired(ctx context.Context) (int64, error)
}
