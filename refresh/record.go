package refresh

import (
	"time"

	"github.com/google/uuid"
)

// Record is one live refresh token. Records are immutable once created;
// rotation deletes and inserts, it never updates in place.
type Record struct {
	// ID names the record in audit events without exposing the secret.
	ID string

	UserID   string
	TenantID string

	// SecretHash is the SHA-256 of the client-held secret and the primary
	// lookup key.
	SecretHash Hash

	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NewRecord mints a secret and the record that represents it. UserID and
// TenantID are left for the caller or, on rotation, copied from the consumed
// record by the store.
func NewRecord(ttl time.Duration) (Record, Secret, error) {
	secret, err := NewSecret()
	if err != nil {
		return Record{}, Secret{}, err
	}
	now := time.Now().UTC().Truncate(time.Second)
	rec := Record{
		ID:         uuid.NewString(),
		SecretHash: secret.Hash(),
		IssuedAt:   now,
		ExpiresAt:  now.Add(ttl),
	}
	return rec, secret, nil
}

// ExpiredAt reports whether the record is past its expiry at the given time.
func (r Record) ExpiredAt(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
