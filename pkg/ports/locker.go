package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken through DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes work on one session id across auraflow processes
// that share a checkpoint store.
type DistributedLocker interface {
	// Lock blocks until key is held or ctx ends. The lock lapses after ttl if the
	// holder never calls the returned UnlockFunc.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
