package abac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/cache"
	"github.com/gatewarden/gatewarden/internal/models"
	"github.com/gatewarden/gatewarden/pkg/logger"
	"github.com/gatewarden/gatewarden/pkg/metrics"
)

const defaultCacheTTL = time.Hour

// Engine resolves the effective permission set for a subject under a tenant
// context. Results are memoised in the shared cache under a version-tagged
// key; the cache is strictly an optimisation and the engine works without it.
type Engine struct {
	store    *AssignmentStore
	cache    cache.Store
	versions *VersionStore
	ttl      time.Duration
	log      *zap.Logger
}

// Option customises the Engine.
type Option func(*Engine)

// WithCacheTTL overrides the default one hour expiry for cached resolutions.
func WithCacheTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl > 0 {
			e.ttl = ttl
		}
	}
}

// NewEngine constructs the resolution engine. cacheStore may be nil, in
// which case every resolution computes directly against the database.
func NewEngine(db *gorm.DB, cacheStore cache.Store, opts ...Option) (*Engine, error) {
	store, err := NewAssignmentStore(db)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		store:    store,
		cache:    cacheStore,
		versions: NewVersionStore(cacheStore),
		ttl:      defaultCacheTTL,
		log:      logger.WithModule("abac.engine"),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// Versions exposes the version store, mainly so invalidation hooks can be
// registered against the same counter the engine reads.
func (e *Engine) Versions() *VersionStore {
	return e.versions
}

// Resolve computes the effective permission set for the user under the given
// tenant context. A zero userID is the unauthenticated subject and resolves
// to the empty set. The returned slice is sorted and free of duplicates;
// zeus bypass collapses it to the universal sentinel.
func (e *Engine) Resolve(ctx context.Context, userID uint, accountID *uint) ([]string, error) {
	if userID == 0 {
		return nil, nil
	}
	if e.cache == nil {
		return e.resolve(ctx, userID, accountID)
	}

	version := e.versions.Current(ctx)
	key := resolutionKey(version, userID, accountID)

	perms, err := e.remember(ctx, key, userID, accountID)
	if err != nil {
		return nil, err
	}

	// An empty result may be a transient artefact of data still settling.
	// Re-run once and only pin the fresh result when it is non-empty.
	if len(perms) == 0 {
		if delErr := e.cache.Delete(ctx, key); delErr != nil {
			e.log.Debug("cache delete failed", zap.String("key", key), zap.Error(delErr))
		}
		fresh, err := e.resolve(ctx, userID, accountID)
		if err != nil {
			return nil, err
		}
		if len(fresh) > 0 {
			e.put(ctx, key, fresh)
		}
		perms = fresh
	}

	return perms, nil
}

// Check reports whether the user holds the named permission under the tenant
// context. Matching is literal: a crud bundle name does not imply its action
// strings, nor the reverse. The universal sentinel satisfies everything.
func (e *Engine) Check(ctx context.Context, userID uint, accountID *uint, permission string) (bool, error) {
	permission = strings.TrimSpace(permission)
	if permission == "" {
		return false, errors.New("abac: permission name is required")
	}

	perms, err := e.Resolve(ctx, userID, accountID)
	if err != nil {
		return false, err
	}

	for _, p := range perms {
		if p == UniversalPermission || p == permission {
			return true, nil
		}
	}
	return false, nil
}

// InvalidateUser evicts the user's cached resolutions for the global context
// and every account they belong to, under the current version. Best effort:
// the version bump plus TTL remains the correctness backstop.
func (e *Engine) InvalidateUser(ctx context.Context, userID uint) error {
	if e.cache == nil || userID == 0 {
		return nil
	}

	version := e.versions.Current(ctx)
	keys := []string{resolutionKey(version, userID, nil)}

	accountIDs, err := e.store.AccountIDsForUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, id := range accountIDs {
		accountID := id
		keys = append(keys, resolutionKey(version, userID, &accountID))
	}

	return e.cache.Delete(ctx, keys...)
}

// InvalidateAssignee evicts cached resolutions for every subject affected by
// a grant mutation: the user itself for direct grants, or all members of the
// role for role grants.
func (e *Engine) InvalidateAssignee(ctx context.Context, assignee Assignee) error {
	if err := assignee.Validate(); err != nil {
		return err
	}

	switch assignee.Kind {
	case AssigneeUser:
		return e.InvalidateUser(ctx, assignee.ID)
	case AssigneeRole:
		userIDs, err := e.store.UserIDsWithRoles(ctx, []uint{assignee.ID})
		if err != nil {
			return err
		}
		for _, userID := range userIDs {
			if err := e.InvalidateUser(ctx, userID); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("abac: unknown assignee kind %q", assignee.Kind)
	}
}

// remember implements get-or-compute against the shared cache. Cache
// failures degrade to direct computation; permission evaluation must never
// depend on cache availability.
func (e *Engine) remember(ctx context.Context, key string, userID uint, accountID *uint) ([]string, error) {
	data, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.log.Debug("cache read failed, computing directly", zap.String("key", key), zap.Error(err))
		metrics.ResolutionCacheLookups.WithLabelValues("bypass").Inc()
		return e.resolve(ctx, userID, accountID)
	}
	if ok {
		var perms []string
		if err := json.Unmarshal(data, &perms); err == nil {
			metrics.ResolutionCacheLookups.WithLabelValues("hit").Inc()
			return perms, nil
		}
		// Unreadable entry: fall through and overwrite it.
	}

	metrics.ResolutionCacheLookups.WithLabelValues("miss").Inc()
	perms, err := e.resolve(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	e.put(ctx, key, perms)
	return perms, nil
}

func (e *Engine) put(ctx context.Context, key string, perms []string) {
	encoded, err := json.Marshal(perms)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, key, encoded, e.ttl); err != nil {
		e.log.Debug("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// resolve is the uncached computation: scope filtering, zeus bypass, then
// grant collection and expansion.
func (e *Engine) resolve(ctx context.Context, userID uint, accountID *uint) ([]string, error) {
	timer := time.Now()
	defer func() {
		metrics.ResolutionDuration.Observe(time.Since(timer).Seconds())
	}()

	user, err := e.store.UserWithRoles(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// A dangling subject reference must not fail evaluation.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("abac: load subject: %w", err)
	}

	applicable := make([]models.Role, 0, len(user.Roles))
	for _, role := range user.Roles {
		if role.AppliesTo(accountID) {
			applicable = append(applicable, role)
		}
	}

	for _, role := range applicable {
		if role.IsSystemZeus() {
			return []string{UniversalPermission}, nil
		}
	}
	if accountID != nil {
		for _, role := range applicable {
			if role.IsTenantZeus() && role.AccountID != nil && *role.AccountID == *accountID {
				return []string{UniversalPermission}, nil
			}
		}
	}

	set := make(map[string]struct{})

	roleIDs := make([]uint, 0, len(applicable))
	for _, role := range applicable {
		roleIDs = append(roleIDs, role.ID)
	}
	roleGrants, err := e.store.RoleGrants(ctx, roleIDs)
	if err != nil {
		return nil, err
	}
	for i := range roleGrants {
		for _, perm := range ExpandGrant(&roleGrants[i]) {
			set[perm] = struct{}{}
		}
	}

	userGrants, err := e.store.UserGrants(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	for i := range userGrants {
		for _, perm := range ExpandGrant(&userGrants[i]) {
			set[perm] = struct{}{}
		}
	}

	if len(set) == 0 {
		return nil, nil
	}

	perms := make([]string, 0, len(set))
	for perm := range set {
		perms = append(perms, perm)
	}
	sort.Strings(perms)
	return perms, nil
}

func resolutionKey(version int64, userID uint, accountID *uint) string {
	scope := "global"
	if accountID != nil {
		scope = fmt.Sprintf("%d", *accountID)
	}
	return fmt.Sprintf("abac:v%d:perms:%d:%s", version, userID, scope)
}
