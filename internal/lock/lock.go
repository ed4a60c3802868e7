package lock

import (
	"context"
	"errors"
)

var ErrNotAcquired = errors.New("lock: not acquired")

// Locker serializes work per key. Lock blocks until the key is free or ctx is
// done; the returned func releases the key and is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
