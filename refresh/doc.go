// Package refresh implements the server side of opaque rotating refresh
// tokens.
//
// A token is a 256-bit random secret; the wire form handed to clients is its
// unpadded base64url encoding. Stores never see the secret, only its SHA-256
// hash, which doubles as the lookup key. Records are immutable: rotation
// consumes the old record and inserts a new one in a single atomic store
// operation, so a secret presented twice loses deterministically.
//
// Consumed hashes leave a short-lived tombstone carrying the owning user, so
// a replayed secret is distinguishable from a never-issued one and the owner
// can be identified for escalation.
//
// Three Store implementations ship: MemoryStore for tests and single-process
// use, RedisStore for shared deployments, and PostgresStore where sessions
// must survive a cache wipe.
package refresh
