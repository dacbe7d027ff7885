// Package password hashes and verifies user passwords.
//
// New hashes are argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Stored bcrypt hashes from migrated user tables still verify; NeedsRehash
// reports true for them so callers can upgrade to argon2id after the next
// successful verification.
//
// The package owns hashing and comparison only. Password policy and hash
// persistence belong to the caller, and plaintext never leaves the call.
package password
