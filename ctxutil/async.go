package ctxutil

import (
	"context"
	"time"
)

// DefaultDetachedTimeout bounds side writes issued on a detached context
const DefaultDetachedTimeout = 5 * time.Second

// Detached returns a context that keeps the values of parent (trace id,
// query tag) but is not cancelled with it.
func Detached(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultDetachedTimeout
	}
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(context.WithoutCancel(parent), timeout)
}
