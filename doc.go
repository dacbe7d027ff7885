// Package authcore is the authentication and session-lifecycle core for a
// multi-tenant business platform: credential verification, tenant-scoped JWT
// access tokens, and opaque rotating refresh tokens with single-use
// enforcement and server-side revocation.
//
// The package is the public surface. It exposes [Engine], [Builder],
// [Config], and the value types they exchange; token signing, password
// hashing, refresh storage, throttling, and audit dispatch live in
// sub-packages. Engine methods are safe for concurrent use once
// [Builder.Build] returns.
//
// User records are owned by the host application and reached through the
// [UserDirectory] interface. The engine reads them and performs exactly one
// write: replacing a password hash.
//
// [Engine.VerifyAccessToken] is the hot path; it verifies the signature and
// claims locally with no store round-trip. Login and Refresh each cost one
// refresh-store operation plus any configured throttle counters.
package authcore
