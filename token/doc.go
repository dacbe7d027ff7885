// Package token signs and verifies the short-lived access tokens issued by
// the engine. Tokens are self-contained JWTs: verification needs only the
// configured key material, never a datastore lookup, which is also why an
// access token cannot be individually revoked before its expiry.
//
// Supported signing methods are Ed25519 (default) and HS256. There is no
// fallback key: constructing a Manager without usable key material fails.
package token
