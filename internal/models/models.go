package models

import "time"

// Subscription lifecycle states. "none" is what the resolver reports when a
// tenant has no subscription row at all.
const (
	SubscriptionStatusTrial    = "trial"
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusNone     = "none"
)

const (
	ChannelTypeDiagnosis = "diagnosis"
	ChannelTypeLink      = "link"
)

// Tenants (clinics)
type Tenant struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	TenantID  string `gorm:"type:varchar(36);uniqueIndex;not null"`
	Name      string `gorm:"type:varchar(255);not null"`
	IsDemo    bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Tenant) TableName() string {
	return "tenants"
}

// Tenant Subscriptions (mutated only by billing callbacks, read-only here)
type TenantSubscription struct {
	ID               uint       `gorm:"primaryKey;autoIncrement"`
	TenantID         string     `gorm:"type:varchar(36);uniqueIndex;not null"`
	Status           string     `gorm:"type:varchar(20);not null"`
	TrialEnd         *time.Time `gorm:"index"`
	CurrentPeriodEnd *time.Time
	CanceledAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (TenantSubscription) TableName() string {
	return "tenant_subscriptions"
}

// Operators (tenant staff accounts)
type Operator struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	OperatorID   string `gorm:"type:varchar(36);uniqueIndex;not null"`
	TenantID     string `gorm:"type:varchar(36);index;not null"`
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `gorm:"type:varchar(255);not null"`
	Name         string `gorm:"type:varchar(255)"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Operator) TableName() string {
	return "operators"
}

// Channels (QR codes / share links). Never deleted, only deactivated.
type Channel struct {
	ID             uint    `gorm:"primaryKey;autoIncrement"`
	ChannelID      string  `gorm:"type:varchar(36);uniqueIndex;not null"`
	TenantID       string  `gorm:"type:varchar(36);index;not null"`
	Code           string  `gorm:"type:varchar(16);uniqueIndex;not null"`
	Type           string  `gorm:"type:varchar(16);not null"`
	DiagnosisType  *string `gorm:"type:varchar(64)"`
	DestinationURL *string `gorm:"type:varchar(2048)"`
	IsActive       bool    `gorm:"not null;default:true"`
	ExpiresAt      *time.Time
	ScanCount      uint64 `gorm:"not null;default:0"`
	Position       int    `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Channel) TableName() string {
	return "channels"
}

// Access Events (append-only)
type AccessEvent struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	TenantID  *string   `gorm:"type:varchar(36);index:idx_access_tenant_time"`
	ChannelID *string   `gorm:"type:varchar(36);index"`
	EventType string    `gorm:"type:varchar(32);not null"`
	UserAgent string    `gorm:"type:varchar(512)"`
	Referer   string    `gorm:"type:varchar(512)"`
	Country   *string   `gorm:"type:varchar(64)"`
	Region    *string   `gorm:"type:varchar(64)"`
	City      *string   `gorm:"type:varchar(64)"`
	Timestamp time.Time `gorm:"index:idx_access_tenant_time;not null"`
	CreatedAt time.Time
}

func (AccessEvent) TableName() string {
	return "access_events"
}

// Diagnosis Sessions. CompletedAt is set exactly once; completion calls after
// that are no-ops.
type DiagnosisSession struct {
	ID            uint64  `gorm:"primaryKey;autoIncrement"`
	SessionID     string  `gorm:"type:varchar(36);uniqueIndex;not null"`
	TenantID      string  `gorm:"type:varchar(36);index;not null"`
	ChannelID     *string `gorm:"type:varchar(36);index"`
	DiagnosisType string  `gorm:"type:varchar(64);not null"`
	IsDemo        bool    `gorm:"not null;default:false"`
	Answers       *string `gorm:"type:text"`
	Score         *int
	Category      *string `gorm:"type:varchar(64)"`
	Gender        *string `gorm:"type:varchar(16)"`
	Age           *int
	CompletedAt   *time.Time
	Country       *string  `gorm:"type:varchar(64)"`
	Region        *string  `gorm:"type:varchar(64)"`
	City          *string  `gorm:"type:varchar(64)"`
	Town          *string  `gorm:"type:varchar(64)"`
	Latitude      *float64 // rounded to 2 decimals before storage
	Longitude     *float64 // rounded to 2 decimals before storage
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (DiagnosisSession) TableName() string {
	return "diagnosis_sessions"
}

// CTA Click Events (append-only). ChannelID is nil for clinic-profile-page
// clicks so reporting can split them from diagnosis-result clicks.
type CTAClickEvent struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	TenantID  *string   `gorm:"type:varchar(36);index"`
	ChannelID *string   `gorm:"type:varchar(36);index"`
	SessionID *string   `gorm:"type:varchar(36);index"`
	CTAType   string    `gorm:"type:varchar(32);not null"`
	Timestamp time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}

func (CTAClickEvent) TableName() string {
	return "cta_click_events"
}

// Audit Log (append-only, privileged operator actions)
type AuditLogEntry struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	ActorID    string    `gorm:"type:varchar(36);index;not null"`
	Action     string    `gorm:"type:varchar(64);not null"`
	TargetType *string   `gorm:"type:varchar(32)"`
	TargetID   *string   `gorm:"type:varchar(36)"`
	Details    *string   `gorm:"type:text"`
	IPAddress  string    `gorm:"type:varchar(45)"`
	CreatedAt  time.Time `gorm:"index"`
}

func (AuditLogEntry) TableName() string {
	return "audit_log_entries"
}

// Password Reset Tokens
type PasswordResetToken struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	OperatorID string    `gorm:"type:varchar(36);index;not null"`
	Token      string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	ExpiresAt  time.Time `gorm:"index;not null"`
	UsedAt     *time.Time
	CreatedAt  time.Time
}

func (PasswordResetToken) TableName() string {
	return "password_reset_tokens"
}
