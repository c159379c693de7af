package mempool

import "github.com/pkg/errors"

var (
	// ErrLockTimeout is returned when a caller could not acquire the pool
	// lock within the configured bound. The call is safe to retry.
	ErrLockTimeout = errors.New("mempool lock acquisition timed out")
)
