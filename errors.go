package authcore

import "errors"

var (
	// ErrInvalidCredentials covers every login rejection: unknown email,
	// wrong password, or a non-active account. Callers get no hint which.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRefreshToken covers malformed, unknown, revoked, and
	// already-used refresh tokens.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrExpiredRefreshToken reports a token that was valid but aged out.
	// The only refresh failure distinguishable from ErrInvalidRefreshToken,
	// so clients can route to "session expired, log in again".
	ErrExpiredRefreshToken = errors.New("refresh token expired")
	// ErrUnauthorized is the single answer for every access-token
	// verification failure.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUserNotFound is returned by UserDirectory implementations when no
	// record matches. The engine translates it before it reaches clients.
	ErrUserNotFound = errors.New("user not found")

	// ErrLoginRateLimited reports an exhausted login attempt budget.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshRateLimited reports an exhausted refresh attempt budget.
	ErrRefreshRateLimited = errors.New("refresh rate limited")

	// ErrPasswordReuse rejects a password change to the current password.
	ErrPasswordReuse = errors.New("new password must be different from current password")

	// ErrBackendUnavailable wraps infrastructure faults (store, directory,
	// throttle backend). Never returned for a rejected credential or token.
	ErrBackendUnavailable = errors.New("auth backend unavailable")

	// ErrEngineNotReady guards use of an Engine that was not built.
	ErrEngineNotReady = errors.New("engine not initialized")
)
