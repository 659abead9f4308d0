package auth

import (
	"context"
	"time"

	"github.com/geocoder89/taskmaster/internal/cache"
	"github.com/geocoder89/taskmaster/internal/domain"
)

const revokedMarker = "true"

// RevocationCache records tokens that must be rejected before they expire.
// The key is the raw token string; entries carry a TTL so they vanish together
// with the token they block.
type RevocationCache struct {
	store   cache.Store
	timeout time.Duration
}

func NewRevocationCache(store cache.Store, timeout time.Duration) *RevocationCache {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}

	return &RevocationCache{
		store:   store,
		timeout: timeout,
	}
}

// IsRevoked reports whether token is on the revocation list.
// On a cache failure it answers true along with a *domain.StorageError.
func (r *RevocationCache) IsRevoked(ctx context.Context, token string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, ok, err := r.store.Get(ctx, token)

	if err != nil {
		return true, domain.Storage("revocation.get", err)
	}

	return ok, nil
}

// Revoke marks token as revoked for ttl. Setting the same key twice is harmless.
func (r *RevocationCache) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := r.store.Set(ctx, token, revokedMarker, ttl)

	return domain.Storage("revocation.set", err)
}

func (r *RevocationCache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return r.store.Ping(ctx)
}
