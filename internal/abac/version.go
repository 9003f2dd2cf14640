package abac

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/gatewarden/gatewarden/internal/cache"
	"github.com/gatewarden/gatewarden/pkg/logger"
	"github.com/gatewarden/gatewarden/pkg/metrics"
)

const versionKey = "abac:version"

// VersionStore tracks the global cache version. Every cached resolution key
// embeds the current version, so a single atomic increment retroactively
// orphans all previously cached entries without enumerating them.
type VersionStore struct {
	store cache.Store
	log   *zap.Logger
}

// NewVersionStore wraps the shared cache store. A nil store is allowed and
// pins the version at 1, which simply means every resolution recomputes.
func NewVersionStore(store cache.Store) *VersionStore {
	return &VersionStore{
		store: store,
		log:   logger.WithModule("abac.version"),
	}
}

// Current reads the version counter. Any failure degrades to version 1:
// recomputing under a stale version is safe, denying or granting everything
// is not.
func (v *VersionStore) Current(ctx context.Context) int64 {
	if v == nil || v.store == nil {
		return 1
	}

	data, ok, err := v.store.Get(ctx, versionKey)
	if err != nil {
		v.log.Debug("version read failed, assuming 1", zap.Error(err))
		return 1
	}
	if !ok {
		// First read initialises the counter so subsequent bumps observably
		// move past it.
		n, err := v.store.Increment(ctx, versionKey)
		if err != nil {
			return 1
		}
		return n
	}

	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Bump atomically increments the version, invalidating every cached
// resolution at once. Failures are logged and swallowed: entries cached
// under the old version still expire via TTL.
func (v *VersionStore) Bump(ctx context.Context) {
	if v == nil || v.store == nil {
		return
	}

	n, err := v.store.Increment(ctx, versionKey)
	if err != nil {
		v.log.Warn("version bump failed", zap.Error(err))
		return
	}
	metrics.CacheVersion.Set(float64(n))
}
