// Package rate throttles login and refresh attempts with Redis fixed-window
// counters (INCR plus a conditional EXPIRE on the first hit in a window).
//
// Key prefixes:
//   - lg:  login attempts per email
//   - lgi: login attempts per client IP
//   - rf:  refresh attempts per token record
//
// Counters track failures, not account state, so a missing key says nothing
// about whether an account exists.
package rate
