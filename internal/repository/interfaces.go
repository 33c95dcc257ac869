package repository

import (
	"context"
	"errors"
	"time"

	"clinic-qr-tracker/internal/geo"
	"clinic-qr-tracker/internal/models"
)

// ErrNotFound is returned when a lookup matches no row, regardless of the
// backing store.
var ErrNotFound = errors.New("record not found")

// TenantRepository reads tenant accounts.
type TenantRepository interface {
	FindByTenantID(ctx context.Context, tenantID string) (*models.Tenant, error)
}

// SubscriptionRepository reads billing state. The tracking pipeline never
// writes subscriptions; billing callbacks own mutation.
type SubscriptionRepository interface {
	FindByTenant(ctx context.Context, tenantID string) (*models.TenantSubscription, error)
}

// ChannelRepository manages short-code channels.
type ChannelRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Channel, error)
	FindByChannelID(ctx context.Context, channelID string) (*models.Channel, error)
	ListByTenant(ctx context.Context, tenantID string) ([]models.Channel, error)
	Create(ctx context.Context, channel *models.Channel) error
	IncrementScanCount(ctx context.Context, channelID string) error
	UpdatePositions(ctx context.Context, tenantID string, orderedChannelIDs []string) error
}

// EventRepository appends visitor events. Rows are never updated or deleted.
type EventRepository interface {
	InsertAccessEvent(ctx context.Context, event *models.AccessEvent) error
	InsertCTAClick(ctx context.Context, event *models.CTAClickEvent) error
}

// CompletionFields carries the payload persisted by the one-shot completion
// write.
type CompletionFields struct {
	Answers     *string
	Score       *int
	Category    *string
	Gender      *string
	Age         *int
	CompletedAt time.Time
}

// SessionRepository manages diagnosis sessions.
type SessionRepository interface {
	FindBySessionID(ctx context.Context, sessionID string) (*models.DiagnosisSession, error)
	CreateSession(ctx context.Context, session *models.DiagnosisSession) error
	// MarkCompleted sets the completion fields iff the session is not yet
	// completed. Returns false when the row was already completed.
	MarkCompleted(ctx context.Context, sessionID string, fields CompletionFields) (bool, error)
	// UpdateLocation overwrites the session's location with rounded precise
	// coordinates and the reverse-geocoded address.
	UpdateLocation(ctx context.Context, sessionID string, lat, lon float64, loc geo.Location) error
}

// AuditRepository appends privileged-action records.
type AuditRepository interface {
	Insert(ctx context.Context, entry *models.AuditLogEntry) error
}

// OperatorRepository reads operator accounts and stores reset tokens.
type OperatorRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Operator, error)
	FindByOperatorID(ctx context.Context, operatorID string) (*models.Operator, error)
	CreateResetToken(ctx context.Context, token *models.PasswordResetToken) error
}
