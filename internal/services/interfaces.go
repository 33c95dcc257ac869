package services

import (
	"context"
	"net/http"

	"clinic-qr-tracker/internal/geo"
	"clinic-qr-tracker/internal/models"
)

// SubscriptionResolver is the gating decision consumed by the tracking
// pipeline and the router.
type SubscriptionResolver interface {
	IsActive(ctx context.Context, tenantID string) (bool, string)
	CanRecord(ctx context.Context, tenantID string) bool
	IsDemo(ctx context.Context, tenantID string) bool
}

// IPLocator resolves a network address to a coarse location.
type IPLocator interface {
	Lookup(ctx context.Context, ip string) geo.Location
}

// AddressLocator reverse-geocodes device coordinates.
type AddressLocator interface {
	Reverse(ctx context.Context, lat, lon float64) geo.Location
}

// EventPublisher feeds the live event stream. Implementations must be
// best-effort and non-blocking.
type EventPublisher interface {
	PublishEvent(payload interface{})
}

// EventRecorder is the write side of the tracking pipeline.
type EventRecorder interface {
	RecordAccess(ctx context.Context, in AccessInput) Outcome
	RecordCTAClick(ctx context.Context, in CTAClickInput) Outcome
	CompleteDiagnosis(ctx context.Context, in CompleteInput) (Outcome, error)
	UpdatePreciseLocation(ctx context.Context, sessionID string, lat, lon float64) (Outcome, error)
}

// ChannelResolver maps short codes to redirect decisions.
type ChannelResolver interface {
	Resolve(ctx context.Context, code string) Resolution
	HandleLinkScan(ctx context.Context, channel *models.Channel, userAgent, referer, ipAddress string)
}

// Auditor appends privileged-action records; implementations never surface
// failures to callers.
type Auditor interface {
	Append(ctx context.Context, actorID, action string, targetType, targetID *string, details interface{}, r *http.Request)
}
