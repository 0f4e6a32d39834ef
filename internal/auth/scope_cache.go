package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"edu-crm/internal/models"
)

const scopeCacheKeyPrefix = "scope:"

// UserLookup is the slice of the user directory the resolver needs.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

type cachedAttachment struct {
	Role     string `json:"role"`
	RegionID string `json:"region_id"`
	BranchID string `json:"branch_id"`
}

// ScopeResolver fills in role and region/branch attachment for tokens that
// do not carry them, reading the user directory and caching the result in
// Redis so every request does not cost a directory read.
type ScopeResolver struct {
	Users UserLookup
	Redis *redis.Client
	TTL   time.Duration
}

func NewScopeResolver(users UserLookup, rdb *redis.Client, ttl time.Duration) *ScopeResolver {
	return &ScopeResolver{Users: users, Redis: rdb, TTL: ttl}
}

// Resolve builds the request principal from verified claims. Claims that
// already carry role, region and branch are used as-is.
func (r *ScopeResolver) Resolve(ctx context.Context, claims Claims) (Principal, error) {
	p := Principal{
		UserID:   claims.Sub,
		Role:     claims.Role,
		RegionID: claims.RegionID,
		BranchID: claims.BranchID,
	}
	if p.Role != "" && (p.RegionID != "" || p.BranchID != "" || p.Role == models.RoleSuperAdmin) {
		return p, nil
	}

	att, err := r.attachment(ctx, claims.Sub)
	if err != nil {
		return Principal{}, err
	}
	if p.Role == "" {
		p.Role = att.Role
	}
	if p.RegionID == "" {
		p.RegionID = att.RegionID
	}
	if p.BranchID == "" {
		p.BranchID = att.BranchID
	}
	return p, nil
}

func (r *ScopeResolver) attachment(ctx context.Context, userID string) (cachedAttachment, error) {
	key := scopeCacheKeyPrefix + userID

	if r.Redis != nil {
		raw, err := r.Redis.Get(ctx, key).Result()
		if err == nil {
			var att cachedAttachment
			if err := json.Unmarshal([]byte(raw), &att); err == nil {
				return att, nil
			}
		} else if err != redis.Nil {
			// Cache trouble is not fatal; fall through to the directory.
		}
	}

	user, err := r.Users.GetUser(ctx, userID)
	if err != nil {
		return cachedAttachment{}, fmt.Errorf("resolve user %s: %w", userID, err)
	}

	att := cachedAttachment{Role: user.Role, RegionID: user.RegionID, BranchID: user.BranchID}

	if r.Redis != nil {
		if raw, err := json.Marshal(att); err == nil {
			_ = r.Redis.Set(ctx, key, raw, r.TTL).Err()
		}
	}
	return att, nil
}

// Invalidate drops a user's cached attachment, for use after directory
// updates that move a user between branches or regions.
func (r *ScopeResolver) Invalidate(ctx context.Context, userID string) {
	if r.Redis != nil {
		_ = r.Redis.Del(ctx, scopeCacheKeyPrefix+userID).Err()
	}
}
