package refresh

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
)

// SecretSize is the length in bytes of a refresh secret.
const SecretSize = 32

// Secret is the opaque random value handed to clients. It exists in memory
// only while a request is in flight; stores persist its hash.
type Secret [SecretSize]byte

// Hash is the SHA-256 digest of a Secret, used as the storage key.
type Hash [sha256.Size]byte

// ErrMalformedToken reports a wire token that does not decode to a secret of
// the right size.
var ErrMalformedToken = errors.New("refresh: malformed token")

// NewSecret draws a fresh secret from crypto/rand.
func NewSecret() (Secret, error) {
	var s Secret
	if _, err := io.ReadFull(rand.Reader, s[:]); err != nil {
		return Secret{}, err
	}
	return s, nil
}

// Hash returns the SHA-256 digest of the secret.
func (s Secret) Hash() Hash {
	return sha256.Sum256(s[:])
}

// String returns the wire form: unpadded base64url.
func (s Secret) String() string {
	return base64.RawURLEncoding.EncodeToString(s[:])
}

// ParseSecret decodes a wire token. Anything that is not exactly a base64url
// encoding of 32 bytes is ErrMalformedToken; callers surface that the same
// way as an unknown token.
func ParseSecret(token string) (Secret, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != SecretSize {
		return Secret{}, ErrMalformedToken
	}
	var s Secret
	copy(s[:], raw)
	return s, nil
}

// Hex returns the lowercase hex encoding of the hash. Store keys and audit
// fields use this form; the secret itself never appears in either.
func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}
