package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/admission-core/internal/domain"
	"github.com/spec-kit/admission-core/internal/observability"
	"github.com/spec-kit/admission-core/internal/store"
)

const (
	permissionKeyPrefix = "authz:perms"
	menuKeyPrefix       = "authz:menu"
	sessionKeyPrefix    = "authz:session"
)

// jsonCache stores one JSON document per user in the shared counter store.
// Read errors count as misses; a cache outage degrades to data-source reads,
// never to a failure.
type jsonCache struct {
	store  store.CounterStore
	ttl    time.Duration
	prefix string
	kind   string

	logger  *zap.Logger
	metrics *observability.Metrics
}

func (c *jsonCache) key(userID int64) string {
	return fmt.Sprintf("%s:%d", c.prefix, userID)
}

func (c *jsonCache) get(ctx context.Context, userID int64, out any) bool {
	raw, found, err := c.store.Get(ctx, c.key(userID))
	if err != nil {
		c.logger.Warn("cache read failed", zap.String("cache", c.kind), zap.Int64("user_id", userID), zap.Error(err))
		c.metrics.RecordCacheMiss(c.kind)
		return false
	}
	if !found {
		c.metrics.RecordCacheMiss(c.kind)
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		c.logger.Warn("cache decode failed", zap.String("cache", c.kind), zap.Int64("user_id", userID), zap.Error(err))
		c.metrics.RecordCacheMiss(c.kind)
		return false
	}
	c.metrics.RecordCacheHit(c.kind)
	return true
}

func (c *jsonCache) put(ctx context.Context, userID int64, val any) {
	raw, err := json.Marshal(val)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("cache", c.kind), zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, c.key(userID), string(raw), c.ttl); err != nil {
		c.logger.Warn("cache write failed", zap.String("cache", c.kind), zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (c *jsonCache) invalidate(ctx context.Context, userID int64) error {
	return c.store.Delete(ctx, c.key(userID))
}

// PermissionCache caches effective permission sets per user, as sorted name
// lists. TTL and store handle are constructor-injected so independent
// instances can coexist.
type PermissionCache struct {
	cache jsonCache
}

// NewPermissionCache builds a cache with the given TTL.
func NewPermissionCache(counterStore store.CounterStore, ttl time.Duration, logger *zap.Logger, metrics *observability.Metrics) *PermissionCache {
	return &PermissionCache{cache: jsonCache{
		store:   counterStore,
		ttl:     ttl,
		prefix:  permissionKeyPrefix,
		kind:    "permissions",
		logger:  logger,
		metrics: metrics,
	}}
}

// Get returns the cached permission names for the user, if present.
func (c *PermissionCache) Get(ctx context.Context, userID int64) ([]string, bool) {
	var names []string
	if !c.cache.get(ctx, userID, &names) {
		return nil, false
	}
	return names, true
}

// Put stores the permission names under the configured TTL.
func (c *PermissionCache) Put(ctx context.Context, userID int64, names []string) {
	c.cache.put(ctx, userID, names)
}

// Invalidate drops the user's entry. Callers mutating role or permission
// assignments must invoke this; the cache never polls for staleness.
func (c *PermissionCache) Invalidate(ctx context.Context, userID int64) error {
	return c.cache.invalidate(ctx, userID)
}

// MenuCache caches the materialized menu forest per user.
type MenuCache struct {
	cache jsonCache
}

// NewMenuCache builds a cache with the given TTL.
func NewMenuCache(counterStore store.CounterStore, ttl time.Duration, logger *zap.Logger, metrics *observability.Metrics) *MenuCache {
	return &MenuCache{cache: jsonCache{
		store:   counterStore,
		ttl:     ttl,
		prefix:  menuKeyPrefix,
		kind:    "menus",
		logger:  logger,
		metrics: metrics,
	}}
}

// Get returns the cached menu forest for the user, if present.
func (c *MenuCache) Get(ctx context.Context, userID int64) ([]*domain.MenuNode, bool) {
	var tree []*domain.MenuNode
	if !c.cache.get(ctx, userID, &tree) {
		return nil, false
	}
	return tree, true
}

// Put stores the menu forest under the configured TTL.
func (c *MenuCache) Put(ctx context.Context, userID int64, tree []*domain.MenuNode) {
	c.cache.put(ctx, userID, tree)
}

// Invalidate drops the user's entry.
func (c *MenuCache) Invalidate(ctx context.Context, userID int64) error {
	return c.cache.invalidate(ctx, userID)
}

// SessionCache tracks the most recent session id per user, so concurrent
// sessions can be observed and revoked alongside permission changes.
type SessionCache struct {
	cache jsonCache
}

// NewSessionCache builds a cache with the given TTL, typically the refresh
// token lifetime.
func NewSessionCache(counterStore store.CounterStore, ttl time.Duration, logger *zap.Logger, metrics *observability.Metrics) *SessionCache {
	return &SessionCache{cache: jsonCache{
		store:   counterStore,
		ttl:     ttl,
		prefix:  sessionKeyPrefix,
		kind:    "sessions",
		logger:  logger,
		metrics: metrics,
	}}
}

// Get returns the recorded session id for the user, if any.
func (c *SessionCache) Get(ctx context.Context, userID int64) (string, bool) {
	var sessionID string
	if !c.cache.get(ctx, userID, &sessionID) {
		return "", false
	}
	return sessionID, true
}

// Put records the session id.
func (c *SessionCache) Put(ctx context.Context, userID int64, sessionID string) {
	c.cache.put(ctx, userID, sessionID)
}

// Invalidate drops the user's entry.
func (c *SessionCache) Invalidate(ctx context.Context, userID int64) error {
	return c.cache.invalidate(ctx, userID)
}
