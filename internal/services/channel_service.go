package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"clinic-qr-tracker/configs"
	"clinic-qr-tracker/internal/models"
	"clinic-qr-tracker/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ResolutionState is the terminal state of a short-code lookup.
type ResolutionState int

const (
	ResolutionNotFound ResolutionState = iota
	ResolutionInactive
	ResolutionExpired
	// ResolutionGated redirects to the same landing page as NotFound so the
	// public cannot distinguish a lapsed tenant from a dead code.
	ResolutionGated
	ResolutionDiagnosis
	ResolutionLink
)

type Resolution struct {
	State   ResolutionState
	Channel *models.Channel
}

// ChannelService resolves short codes and owns operator channel management.
type ChannelService struct {
	channels repository.ChannelRepository
	subs     SubscriptionResolver
	recorder EventRecorder
	now      func() time.Time
	log      *zap.Logger
}

func NewChannelService(channels repository.ChannelRepository, subs SubscriptionResolver, recorder EventRecorder, log *zap.Logger) *ChannelService {
	return &ChannelService{
		channels: channels,
		subs:     subs,
		recorder: recorder,
		now:      time.Now,
		log:      log,
	}
}

// Resolve walks the redirect state machine: lookup, active flag, expiry,
// subscription gate, then channel type.
func (s *ChannelService) Resolve(ctx context.Context, code string) Resolution {
	channel, err := s.channels.FindByCode(ctx, code)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("Channel code lookup failed", zap.String("code", code), zap.Error(err))
		}
		return Resolution{State: ResolutionNotFound}
	}

	if !channel.IsActive {
		return Resolution{State: ResolutionInactive, Channel: channel}
	}

	if channel.ExpiresAt != nil && channel.ExpiresAt.Before(s.now()) {
		return Resolution{State: ResolutionExpired, Channel: channel}
	}

	if active, _ := s.subs.IsActive(ctx, channel.TenantID); !active {
		return Resolution{State: ResolutionGated, Channel: channel}
	}

	if channel.Type == models.ChannelTypeDiagnosis {
		return Resolution{State: ResolutionDiagnosis, Channel: channel}
	}
	return Resolution{State: ResolutionLink, Channel: channel}
}

// HandleLinkScan fires the scan-count increment and the access-event append
// concurrently and waits for both; either side failing must not prevent the
// redirect, so failures are swallowed independently.
func (s *ChannelService) HandleLinkScan(ctx context.Context, channel *models.Channel, userAgent, referer, ipAddress string) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := s.channels.IncrementScanCount(ctx, channel.ChannelID); err != nil {
			s.log.Warn("Scan count increment failed",
				zap.String("channel_id", channel.ChannelID),
				zap.Error(err))
		}
	}()

	go func() {
		defer wg.Done()
		s.recorder.RecordAccess(ctx, AccessInput{
			ChannelID: &channel.ChannelID,
			EventType: "qr_scan",
			UserAgent: userAgent,
			Referer:   referer,
			IPAddress: ipAddress,
		})
	}()

	wg.Wait()
}

// CreateChannel provisions a short code for a tenant. Codes are retried on
// the rare uniqueness collision.
func (s *ChannelService) CreateChannel(ctx context.Context, tenantID, channelType string, diagnosisType, destinationURL *string, expiresAt *time.Time) (*models.Channel, error) {
	if channelType != models.ChannelTypeDiagnosis && channelType != models.ChannelTypeLink {
		return nil, fmt.Errorf("unknown channel type: %s", channelType)
	}
	if channelType == models.ChannelTypeDiagnosis && diagnosisType == nil {
		return nil, errors.New("diagnosis channels require a diagnosis type")
	}
	if channelType == models.ChannelTypeLink && destinationURL == nil {
		return nil, errors.New("link channels require a destination URL")
	}

	channel := &models.Channel{
		ChannelID:      uuid.New().String(),
		TenantID:       tenantID,
		Type:           channelType,
		DiagnosisType:  diagnosisType,
		DestinationURL: destinationURL,
		IsActive:       true,
		ExpiresAt:      expiresAt,
	}

	var err error
	for attempt := 0; attempt < 3; attempt++ {
		channel.Code = generateShortCode(configs.AppConfig.ShortCodeLength)
		if err = s.channels.Create(ctx, channel); err == nil {
			return channel, nil
		}
	}
	return nil, fmt.Errorf("failed to create channel: %w", err)
}

func (s *ChannelService) ListChannels(ctx context.Context, tenantID string) ([]models.Channel, error) {
	return s.channels.ListByTenant(ctx, tenantID)
}

func (s *ChannelService) ReorderChannels(ctx context.Context, tenantID string, orderedChannelIDs []string) error {
	return s.channels.UpdatePositions(ctx, tenantID, orderedChannelIDs)
}

// generateShortCode derives a URL-safe code from a fresh UUID.
func generateShortCode(length int) string {
	raw := uuid.New().String()
	code := make([]byte, 0, length)
	for i := 0; i < len(raw) && len(code) < length; i++ {
		if raw[i] != '-' {
			code = append(code, raw[i])
		}
	}
	return string(code)
}
