package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

// CachedMembershipValidator caches a tenant's member directory in Redis so
// assignment validation does not hit the member store on every call.
// Membership writes happen in an external identity service, so entries are
// only refreshed by TTL expiry. On any cache fault it falls through to the
// store.
type CachedMembershipValidator struct {
	members repository.MemberRepository
	client  *redis.Client
	ttl     time.Duration
	logger  *zap.Logger
}

// NewCachedMembershipValidator wraps the member repository with a Redis
// cache. A nil client disables caching.
func NewCachedMembershipValidator(members repository.MemberRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedMembershipValidator {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedMembershipValidator{members: members, client: client, ttl: ttl, logger: logger}
}

// FindValidMembers returns the subset of candidateIDs that are members of
// the tenant, resolved to display identity.
func (v *CachedMembershipValidator) FindValidMembers(ctx context.Context, tenantID string, candidateIDs []string) ([]domain.Member, error) {
	if len(candidateIDs) == 0 {
		return []domain.Member{}, nil
	}
	directory, ok := v.cachedDirectory(ctx, tenantID)
	if !ok {
		var err error
		directory, err = v.members.ListByTenant(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		v.storeDirectory(ctx, tenantID, directory)
	}

	byID := make(map[string]domain.Member, len(directory))
	for _, m := range directory {
		byID[m.ID] = m
	}
	result := make([]domain.Member, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		if m, ok := byID[id]; ok {
			result = append(result, m)
		}
	}
	return result, nil
}

func (v *CachedMembershipValidator) cachedDirectory(ctx context.Context, tenantID string) ([]domain.Member, bool) {
	if v.client == nil {
		return nil, false
	}
	raw, err := v.client.Get(ctx, membershipKey(tenantID)).Bytes()
	if err != nil {
		if err != redis.Nil && v.logger != nil {
			v.logger.Debug("membership cache read failed", zap.String("tenant_id", tenantID), zap.Error(err))
		}
		return nil, false
	}
	var directory []domain.Member
	if err := json.Unmarshal(raw, &directory); err != nil {
		return nil, false
	}
	return directory, true
}

func (v *CachedMembershipValidator) storeDirectory(ctx context.Context, tenantID string, directory []domain.Member) {
	if v.client == nil {
		return
	}
	raw, err := json.Marshal(directory)
	if err != nil {
		return
	}
	if err := v.client.Set(ctx, membershipKey(tenantID), raw, v.ttl).Err(); err != nil && v.logger != nil {
		v.logger.Debug("membership cache write failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

func membershipKey(tenantID string) string {
	return "membership:" + tenantID
}
