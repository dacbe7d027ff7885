// Package middleware adapts HTTP requests to authcore access-token
// verification.
//
// [Guard] wraps an http.Handler: it extracts the bearer token (or, when
// configured, a cookie), verifies it through the engine, and injects the
// claims into the request context for [ClaimsFromContext]. Requests that
// fail verification get a plain 401 with no detail.
//
// The package translates HTTP semantics into engine calls and nothing more.
// It never parses tokens itself and never makes an authorization decision
// beyond the engine's pass or reject.
package middleware
