package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinic-qr-tracker/configs"
	"clinic-qr-tracker/internal/cache"
	"clinic-qr-tracker/internal/models"
	"clinic-qr-tracker/internal/repository"

	"go.uber.org/zap"
)

// Reasons reported by IsActive.
const (
	ReasonNone        = "none"
	ReasonActive      = "active"
	ReasonTrial       = "trial"
	ReasonGracePeriod = "grace_period"
	ReasonInactive    = "inactive"
)

// SubscriptionService decides whether a tenant may have events recorded. It
// reads billing state only; billing callbacks own mutation.
type SubscriptionService struct {
	subscriptions repository.SubscriptionRepository
	tenants       repository.TenantRepository
	cache         *cache.CacheManager
	now           func() time.Time
	log           *zap.Logger
}

func NewSubscriptionService(subscriptions repository.SubscriptionRepository, tenants repository.TenantRepository, cacheMgr *cache.CacheManager, log *zap.Logger) *SubscriptionService {
	return &SubscriptionService{
		subscriptions: subscriptions,
		tenants:       tenants,
		cache:         cacheMgr,
		now:           time.Now,
		log:           log,
	}
}

// IsActive evaluates the subscription decision table in order:
// no record, open-ended or unexpired active, unexpired trial, canceled grace
// period, otherwise inactive.
func (s *SubscriptionService) IsActive(ctx context.Context, tenantID string) (bool, string) {
	sub, err := s.lookup(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ReasonNone
		}
		// A store failure must not leak recording to lapsed tenants.
		s.log.Warn("Subscription lookup failed, treating tenant as inactive",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
		return false, ReasonInactive
	}

	now := s.now()

	switch sub.Status {
	case models.SubscriptionStatusActive:
		if sub.CurrentPeriodEnd == nil || sub.CurrentPeriodEnd.After(now) {
			return true, ReasonActive
		}
	case models.SubscriptionStatusTrial:
		if sub.TrialEnd != nil && sub.TrialEnd.After(now) {
			return true, ReasonTrial
		}
	case models.SubscriptionStatusCanceled:
		if sub.CurrentPeriodEnd != nil && sub.CurrentPeriodEnd.After(now) {
			return true, ReasonGracePeriod
		}
	}

	return false, ReasonInactive
}

// CanRecord reports whether visitor events may be persisted for the tenant.
func (s *SubscriptionService) CanRecord(ctx context.Context, tenantID string) bool {
	active, _ := s.IsActive(ctx, tenantID)
	return active
}

// IsDemo reports the tenant's demo flag. Demo tenants read everything but all
// mutating operator actions are rejected; unresolvable tenants are not demo.
func (s *SubscriptionService) IsDemo(ctx context.Context, tenantID string) bool {
	if s.cache != nil {
		var cached models.Tenant
		if found, err := s.cache.Get(fmt.Sprintf("tenant:%s", tenantID), &cached); found && err == nil {
			return cached.IsDemo
		}
	}

	tenant, err := s.tenants.FindByTenantID(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("Tenant lookup failed", zap.String("tenant_id", tenantID), zap.Error(err))
		}
		return false
	}

	if s.cache != nil {
		s.cache.Set(fmt.Sprintf("tenant:%s", tenantID), tenant, configs.AppConfig.CacheTTL)
	}

	return tenant.IsDemo
}

func (s *SubscriptionService) lookup(ctx context.Context, tenantID string) (*models.TenantSubscription, error) {
	key := fmt.Sprintf("subscription:%s", tenantID)

	if s.cache != nil {
		var cached models.TenantSubscription
		if found, err := s.cache.Get(key, &cached); found && err == nil {
			return &cached, nil
		}
	}

	sub, err := s.subscriptions.FindByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	// Short TTL keeps the gate honest soon after a billing-state change.
	if s.cache != nil {
		s.cache.Set(key, sub, configs.AppConfig.SubscriptionTTL)
	}

	return sub, nil
}
