// Package cache holds the read-through redis cache for follow-graph reads.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/postr/internal/model"
	"github.com/d60-Lab/postr/pkg/logger"
)

// RelationCache caches the follow graph around a user: the followed-id index used by the
// feed, and the public user lists behind /user/follows and /user/followers.
// A nil client disables caching; every call goes straight to the loader.
// Redis failures are logged and treated as misses, they never fail a request.
type RelationCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration

	hits       atomic.Int64
	misses     atomic.Int64
	staleFills atomic.Int64
}

var errStaleFill = errors.New("relation cache: generation changed during load")

func NewRelationCache(client *redis.Client, prefix string, ttl time.Duration) *RelationCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RelationCache{client: client, prefix: prefix, ttl: ttl}
}

// Enabled reports whether a redis client is attached.
func (c *RelationCache) Enabled() bool { return c != nil && c.client != nil }

func (c *RelationCache) followedIndexKey(userID string) string {
	return fmt.Sprintf("%sfollowing:index:%s", c.prefix, userID)
}

func (c *RelationCache) followingKey(userID string) string {
	return fmt.Sprintf("%sfollowing:users:%s", c.prefix, userID)
}

func (c *RelationCache) followersKey(userID string) string {
	return fmt.Sprintf("%sfollowers:users:%s", c.prefix, userID)
}

func (c *RelationCache) followingGenKey(userID string) string {
	return fmt.Sprintf("%sfollowing:gen:%s", c.prefix, userID)
}

func (c *RelationCache) followersGenKey(userID string) string {
	return fmt.Sprintf("%sfollowers:gen:%s", c.prefix, userID)
}

// FollowedIDs returns the ids userID follows. The index is kept as a redis list;
// an empty result is not cached.
func (c *RelationCache) FollowedIDs(ctx context.Context, userID string, load func(context.Context) ([]string, error)) ([]string, error) {
	if !c.Enabled() {
		return load(ctx)
	}
	key := c.followedIndexKey(userID)

	ids, err := c.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		logger.Warn("relation cache: read followed index", zap.String("key", key), zap.Error(err))
	} else if len(ids) > 0 {
		c.hits.Add(1)
		return ids, nil
	}
	c.misses.Add(1)

	genKey := c.followingGenKey(userID)
	gen, genErr := c.generation(ctx, genKey)
	ids, err = load(ctx)
	if err != nil {
		return nil, err
	}
	if genErr == nil && len(ids) > 0 {
		c.fill(ctx, key, genKey, gen, func(pipe redis.Pipeliner) {
			pipe.Del(ctx, key)
			pipe.RPush(ctx, key, interfaceSlice(ids)...)
			pipe.Expire(ctx, key, c.ttl)
		})
	}
	return ids, nil
}

// Following returns the users userID follows.
func (c *RelationCache) Following(ctx context.Context, userID string, load func(context.Context) ([]*model.UserPublic, error)) ([]*model.UserPublic, error) {
	if !c.Enabled() {
		return load(ctx)
	}
	return c.users(ctx, c.followingKey(userID), c.followingGenKey(userID), load)
}

// Followers returns the users following userID.
func (c *RelationCache) Followers(ctx context.Context, userID string, load func(context.Context) ([]*model.UserPublic, error)) ([]*model.UserPublic, error) {
	if !c.Enabled() {
		return load(ctx)
	}
	return c.users(ctx, c.followersKey(userID), c.followersGenKey(userID), load)
}

func (c *RelationCache) users(ctx context.Context, key, genKey string, load func(context.Context) ([]*model.UserPublic, error)) ([]*model.UserPublic, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var out []*model.UserPublic
		if uErr := json.Unmarshal(data, &out); uErr == nil {
			c.hits.Add(1)
			return out, nil
		}
	case !errors.Is(err, redis.Nil):
		logger.Warn("relation cache: read users", zap.String("key", key), zap.Error(err))
	}
	c.misses.Add(1)

	gen, genErr := c.generation(ctx, genKey)
	rows, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		return rows, nil
	}
	if payload, err := json.Marshal(rows); err == nil {
		c.fill(ctx, key, genKey, gen, func(pipe redis.Pipeliner) {
			pipe.Set(ctx, key, payload, c.ttl)
		})
	}
	return rows, nil
}

// generation reads the invalidation counter guarding a group of entries; a missing key is "0".
func (c *RelationCache) generation(ctx context.Context, genKey string) (string, error) {
	gen, err := c.client.Get(ctx, genKey).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "0", nil
	case err != nil:
		logger.Warn("relation cache: read generation", zap.String("key", genKey), zap.Error(err))
		return "", err
	}
	return gen, nil
}

// fill writes a loaded value only if no invalidation bumped genKey since gen was read.
// A stale fill is dropped; the next read loads again.
func (c *RelationCache) fill(ctx context.Context, key, genKey, gen string, write func(redis.Pipeliner)) {
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Result()
		if errors.Is(err, redis.Nil) {
			cur = "0"
		} else if err != nil {
			return err
		}
		if cur != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			write(pipe)
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		c.staleFills.Add(1)
		logger.Debug("relation cache: skip stale fill", zap.String("key", key))
	default:
		logger.Warn("relation cache: write", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops every entry a follow/unfollow between the two users can change and
// bumps their generations so in-flight fills loaded before the change are discarded.
func (c *RelationCache) Invalidate(ctx context.Context, followingID, followedID string) error {
	if !c.Enabled() {
		return nil
	}
	keys := []string{
		c.followedIndexKey(followingID),
		c.followingKey(followingID),
		c.followersKey(followedID),
	}
	gens := []string{c.followingGenKey(followingID), c.followersGenKey(followedID)}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, g := range gens {
			pipe.Incr(ctx, g)
			pipe.Expire(ctx, g, 2*c.ttl)
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		logger.Warn("relation cache: invalidate", zap.Strings("keys", keys), zap.Error(err))
		return err
	}
	return nil
}

// Stats reports cache hits and misses since start (or the last Reset).
func (c *RelationCache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), StaleFills: c.staleFills.Load()}
}

func (c *RelationCache) Reset() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.staleFills.Store(0)
}

// Stats summarises cache usage.
type Stats struct {
	Hits   int64
	Misses int64
	// StaleFills counts loads discarded because an invalidation raced them.
	StaleFills int64
}

func interfaceSlice(strs []string) []interface{} {
	result := make([]interface{}, len(strs))
	for i, s := range strs {
		result[i] = s
	}
	return result
}
