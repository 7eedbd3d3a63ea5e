package ports

import (
	"context"
	"time"
)

// Cache is a generic key-value capability. The fan-out engine uses it to
// memoize file content fetches so at-least-once webhook redeliveries do not
// hammer the provider API.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
