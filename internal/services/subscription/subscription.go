// Package subscription contains the business logic for serving and caching
// a tenant's subscription state.
package subscription

import (
	"context"
	"log/slog"
	"time"

	"github.com/osoriolabs/lawdesk/internal/cache"
	"github.com/osoriolabs/lawdesk/internal/lib/sl"
	"github.com/osoriolabs/lawdesk/internal/models"
)

const cacheTTL = 5 * time.Minute

// SubscriptionRepository resolves subscription state from the database.
type SubscriptionRepository interface {
	GetSubscriptionInfo(ctx context.Context, userUID string) (*models.SubscriptionInfo, error)
}

// Cache is the caching contract the service needs.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// SubscriptionService serves subscription snapshots with a short-lived cache
// in front of the database. The subscription-status middleware calls it on
// every authenticated request.
type SubscriptionService struct {
	repo  SubscriptionRepository
	cache Cache
	log   *slog.Logger
}

func New(repo SubscriptionRepository, cache Cache, log *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// GetSubscriptionInfo returns the tenant's subscription snapshot, cached.
func (s *SubscriptionService) GetSubscriptionInfo(ctx context.Context, userUID string) (*models.SubscriptionInfo, error) {
	cacheKey := cache.SubscriptionKey(userUID)

	var cached models.SubscriptionInfo
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read subscription cache", slog.String("key", cacheKey), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	info, err := s.repo.GetSubscriptionInfo(ctx, userUID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(cacheKey, info, cacheTTL); err != nil {
		s.log.Warn("failed to cache subscription info", slog.String("key", cacheKey), sl.Err(err))
	}
	return info, nil
}

// InvalidateSubscription drops the cached snapshot for a tenant. The webhook
// reconciler calls it after every status change so the middleware sees the
// new state on the next request.
func (s *SubscriptionService) InvalidateSubscription(userUID string) {
	cacheKey := cache.SubscriptionKey(userUID)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to invalidate subscription cache", slog.String("key", cacheKey), sl.Err(err))
	}
}
