package interfaces

import "context"

// RequestGuard allows one in-flight request per key.
type RequestGuard interface {
	Acquire(ctx context.Context, key string) error
	Release(ctx context.Context, key string) error
}
