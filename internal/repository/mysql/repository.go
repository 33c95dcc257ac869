package mysql

import (
	"context"
	"errors"

	"clinic-qr-tracker/internal/geo"
	"clinic-qr-tracker/internal/models"
	"clinic-qr-tracker/internal/repository"

	"gorm.io/gorm"
)

// Repository is the gorm-backed implementation of every repository interface.
// Lookups that feed writes stay on the primary so replica lag cannot skew
// gating or idempotency; list queries go to the read source.
type Repository struct {
	db   *gorm.DB
	read func() *gorm.DB
}

func NewRepository(db *gorm.DB, read func() *gorm.DB) *Repository {
	if read == nil {
		read = func() *gorm.DB { return db }
	}
	return &Repository{db: db, read: read}
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrNotFound
	}
	return err
}

func (r *Repository) FindByTenantID(ctx context.Context, tenantID string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&tenant).Error; err != nil {
		return nil, translate(err)
	}
	return &tenant, nil
}

func (r *Repository) FindByTenant(ctx context.Context, tenantID string) (*models.TenantSubscription, error) {
	var sub models.TenantSubscription
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&sub).Error; err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Channel, error) {
	var channel models.Channel
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&channel).Error; err != nil {
		return nil, translate(err)
	}
	return &channel, nil
}

func (r *Repository) FindByChannelID(ctx context.Context, channelID string) (*models.Channel, error) {
	var channel models.Channel
	if err := r.db.WithContext(ctx).Where("channel_id = ?", channelID).First(&channel).Error; err != nil {
		return nil, translate(err)
	}
	return &channel, nil
}

func (r *Repository) ListByTenant(ctx context.Context, tenantID string) ([]models.Channel, error) {
	var channels []models.Channel
	err := r.read().WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("position ASC, id ASC").
		Find(&channels).Error
	return channels, err
}

func (r *Repository) Create(ctx context.Context, channel *models.Channel) error {
	return r.db.WithContext(ctx).Create(channel).Error
}

func (r *Repository) IncrementScanCount(ctx context.Context, channelID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Channel{}).
		Where("channel_id = ?", channelID).
		UpdateColumn("scan_count", gorm.Expr("scan_count + ?", 1)).Error
}

func (r *Repository) UpdatePositions(ctx context.Context, tenantID string, orderedChannelIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for position, channelID := range orderedChannelIDs {
			err := tx.Model(&models.Channel{}).
				Where("tenant_id = ? AND channel_id = ?", tenantID, channelID).
				UpdateColumn("position", position).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) InsertAccessEvent(ctx context.Context, event *models.AccessEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *Repository) InsertCTAClick(ctx context.Context, event *models.CTAClickEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *Repository) FindBySessionID(ctx context.Context, sessionID string) (*models.DiagnosisSession, error) {
	var session models.DiagnosisSession
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

func (r *Repository) CreateSession(ctx context.Context, session *models.DiagnosisSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *Repository) MarkCompleted(ctx context.Context, sessionID string, fields repository.CompletionFields) (bool, error) {
	// The completed_at guard makes completion idempotent: a second call
	// matches zero rows and mutates nothing.
	res := r.db.WithContext(ctx).
		Model(&models.DiagnosisSession{}).
		Where("session_id = ? AND completed_at IS NULL", sessionID).
		Updates(map[string]interface{}{
			"answers":      fields.Answers,
			"score":        fields.Score,
			"category":     fields.Category,
			"gender":       fields.Gender,
			"age":          fields.Age,
			"completed_at": fields.CompletedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) UpdateLocation(ctx context.Context, sessionID string, lat, lon float64, loc geo.Location) error {
	return r.db.WithContext(ctx).
		Model(&models.DiagnosisSession{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"latitude":  lat,
			"longitude": lon,
			"country":   loc.Country,
			"region":    loc.Region,
			"city":      loc.City,
			"town":      loc.Town,
		}).Error
}

func (r *Repository) Insert(ctx context.Context, entry *models.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.Operator, error) {
	var operator models.Operator
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&operator).Error; err != nil {
		return nil, translate(err)
	}
	return &operator, nil
}

func (r *Repository) FindByOperatorID(ctx context.Context, operatorID string) (*models.Operator, error) {
	var operator models.Operator
	if err := r.db.WithContext(ctx).Where("operator_id = ?", operatorID).First(&operator).Error; err != nil {
		return nil, translate(err)
	}
	return &operator, nil
}

func (r *Repository) CreateResetToken(ctx context.Context, token *models.PasswordResetToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}
