package rate

import "errors"

var (
	// ErrLimited reports an identifier over its attempt budget.
	ErrLimited = errors.New("rate: limited")
	// ErrRedisUnavailable wraps transport faults from the Redis client.
	ErrRedisUnavailable = errors.New("rate: redis unavailable")
)
