package services

import (
	"context"

	"clinic-qr-tracker/internal/geo"
	"clinic-qr-tracker/internal/models"
	"clinic-qr-tracker/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockChannelRepository is a mock implementation of repository.ChannelRepository
type MockChannelRepository struct {
	mock.Mock
}

func (m *MockChannelRepository) FindByCode(ctx context.Context, code string) (*models.Channel, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Channel), args.Error(1)
}

func (m *MockChannelRepository) FindByChannelID(ctx context.Context, channelID string) (*models.Channel, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Channel), args.Error(1)
}

func (m *MockChannelRepository) ListByTenant(ctx context.Context, tenantID string) ([]models.Channel, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Channel), args.Error(1)
}

func (m *MockChannelRepository) Create(ctx context.Context, channel *models.Channel) error {
	args := m.Called(ctx, channel)
	return args.Error(0)
}

func (m *MockChannelRepository) IncrementScanCount(ctx context.Context, channelID string) error {
	args := m.Called(ctx, channelID)
	return args.Error(0)
}

func (m *MockChannelRepository) UpdatePositions(ctx context.Context, tenantID string, orderedChannelIDs []string) error {
	args := m.Called(ctx, tenantID, orderedChannelIDs)
	return args.Error(0)
}

// MockSessionRepository is a mock implementation of repository.SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) FindBySessionID(ctx context.Context, sessionID string) (*models.DiagnosisSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DiagnosisSession), args.Error(1)
}

func (m *MockSessionRepository) CreateSession(ctx context.Context, session *models.DiagnosisSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) MarkCompleted(ctx context.Context, sessionID string, fields repository.CompletionFields) (bool, error) {
	args := m.Called(ctx, sessionID, fields)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionRepository) UpdateLocation(ctx context.Context, sessionID string, lat, lon float64, loc geo.Location) error {
	args := m.Called(ctx, sessionID, lat, lon, loc)
	return args.Error(0)
}

// MockEventRepository is a mock implementation of repository.EventRepository
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) InsertAccessEvent(ctx context.Context, event *models.AccessEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) InsertCTAClick(ctx context.Context, event *models.CTAClickEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockSubscriptionRepository is a mock implementation of repository.SubscriptionRepository
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) FindByTenant(ctx context.Context, tenantID string) (*models.TenantSubscription, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TenantSubscription), args.Error(1)
}

// MockTenantRepository is a mock implementation of repository.TenantRepository
type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) FindByTenantID(ctx context.Context, tenantID string) (*models.Tenant, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

// MockAuditRepository is a mock implementation of repository.AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Insert(ctx context.Context, entry *models.AuditLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockSubscriptionResolver is a mock implementation of SubscriptionResolver
type MockSubscriptionResolver struct {
	mock.Mock
}

func (m *MockSubscriptionResolver) IsActive(ctx context.Context, tenantID string) (bool, string) {
	args := m.Called(ctx, tenantID)
	return args.Bool(0), args.String(1)
}

func (m *MockSubscriptionResolver) CanRecord(ctx context.Context, tenantID string) bool {
	args := m.Called(ctx, tenantID)
	return args.Bool(0)
}

func (m *MockSubscriptionResolver) IsDemo(ctx context.Context, tenantID string) bool {
	args := m.Called(ctx, tenantID)
	return args.Bool(0)
}

// MockRecorder is a mock implementation of EventRecorder
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordAccess(ctx context.Context, in AccessInput) Outcome {
	args := m.Called(ctx, in)
	return args.Get(0).(Outcome)
}

func (m *MockRecorder) RecordCTAClick(ctx context.Context, in CTAClickInput) Outcome {
	args := m.Called(ctx, in)
	return args.Get(0).(Outcome)
}

func (m *MockRecorder) CompleteDiagnosis(ctx context.Context, in CompleteInput) (Outcome, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(Outcome), args.Error(1)
}

func (m *MockRecorder) UpdatePreciseLocation(ctx context.Context, sessionID string, lat, lon float64) (Outcome, error) {
	args := m.Called(ctx, sessionID, lat, lon)
	return args.Get(0).(Outcome), args.Error(1)
}

// stubIPLocator returns a fixed location without any provider call.
type stubIPLocator struct {
	loc geo.Location
}

func (s stubIPLocator) Lookup(ctx context.Context, ip string) geo.Location {
	return s.loc
}

// stubGeocoder records the coordinates it was asked about.
type stubGeocoder struct {
	loc     geo.Location
	lastLat float64
	lastLon float64
	called  bool
}

func (s *stubGeocoder) Reverse(ctx context.Context, lat, lon float64) geo.Location {
	s.called = true
	s.lastLat = lat
	s.lastLon = lon
	return s.loc
}
