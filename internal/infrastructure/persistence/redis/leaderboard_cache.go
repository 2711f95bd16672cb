// Package redis implements Redis-backed caching for the SocialDetox core.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/socialdetox/detox-hub/internal/domain/leaderboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// leaderboardKey holds the full ranked leaderboard as one JSON value.
// The leaderboard is always read whole and rewritten whole, so a single
// key with TTL is simpler and safer than a sorted set: the userID
// tie-break order survives serialization as is.
const leaderboardKey = "socialdetox:leaderboard:monthly"

// DefaultLeaderboardTTL bounds staleness between refreshes.
const DefaultLeaderboardTTL = 5 * time.Minute

// cachedEntry is the wire form of one leaderboard row.
// IsCurrentUser is deliberately absent: the cache is shared between
// users and the flag is stamped on read.
type cachedEntry struct {
	Rank         int    `json:"rank"`
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	AvatarColor  string `json:"avatar_color"`
	MonthlyScore int    `json:"monthly_score"`
	Tier         string `json:"tier"`
}

// LeaderboardCache implements leaderboard.Cache on Redis.
type LeaderboardCache struct {
	client *Client
	ttl    time.Duration
}

// NewLeaderboardCache creates the cache. A non-positive TTL falls back
// to the default.
func NewLeaderboardCache(client *Client, ttl time.Duration) *LeaderboardCache {
	if ttl <= 0 {
		ttl = DefaultLeaderboardTTL
	}
	return &LeaderboardCache{client: client, ttl: ttl}
}

// CachedEntries returns the cached leaderboard.
// A missing key is a miss, not an error: the caller recomputes.
func (c *LeaderboardCache) CachedEntries(ctx context.Context) ([]leaderboard.Entry, error) {
	payload, err := c.client.Raw().Get(ctx, leaderboardKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}

	var cached []cachedEntry
	if err := json.Unmarshal(payload, &cached); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}

	entries := make([]leaderboard.Entry, 0, len(cached))
	for _, entry := range cached {
		entries = append(entries, leaderboard.Entry{
			Rank:         leaderboard.Rank(entry.Rank),
			UserID:       entry.UserID,
			Username:     entry.Username,
			AvatarColor:  entry.AvatarColor,
			MonthlyScore: entry.MonthlyScore,
			Tier:         leaderboard.Tier(entry.Tier),
		})
	}

	return entries, nil
}

// StoreEntries replaces the cached leaderboard with a fresh recompute.
func (c *LeaderboardCache) StoreEntries(ctx context.Context, entries []leaderboard.Entry) error {
	cached := make([]cachedEntry, 0, len(entries))
	for _, entry := range entries {
		cached = append(cached, cachedEntry{
			Rank:         int(entry.Rank),
			UserID:       entry.UserID,
			Username:     entry.Username,
			AvatarColor:  entry.AvatarColor,
			MonthlyScore: entry.MonthlyScore,
			Tier:         entry.Tier.String(),
		})
	}

	payload, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}

	if err := c.client.Raw().Set(ctx, leaderboardKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}

	return nil
}

// Invalidate drops the cached leaderboard. Called on manual refresh.
func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	if err := c.client.Raw().Del(ctx, leaderboardKey).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}
	return nil
}
