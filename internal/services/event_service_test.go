package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"clinic-qr-tracker/internal/geo"
	"clinic-qr-tracker/internal/models"
	"clinic-qr-tracker/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func diagnosisChannel() *models.Channel {
	return &models.Channel{
		ChannelID: "ch-1",
		TenantID:  "tenant-1",
		Code:      "abc123",
		Type:      models.ChannelTypeDiagnosis,
		IsActive:  true,
	}
}

func linkChannel() *models.Channel {
	dest := "https://clinic.example.com"
	return &models.Channel{
		ChannelID:      "ch-2",
		TenantID:       "tenant-1",
		Code:           "xyz789",
		Type:           models.ChannelTypeLink,
		DestinationURL: &dest,
		IsActive:       true,
	}
}

func newEventService(channels *MockChannelRepository, sessions *MockSessionRepository, events *MockEventRepository, subs *MockSubscriptionResolver, geocoder *stubGeocoder) *EventService {
	if geocoder == nil {
		geocoder = &stubGeocoder{}
	}
	service := NewEventService(channels, sessions, events, subs, stubIPLocator{}, geocoder, nil, zap.NewNop())
	service.now = func() time.Time { return testNow }
	return service
}

func TestRecordAccess_Recorded(t *testing.T) {
	channels := new(MockChannelRepository)
	events := new(MockEventRepository)
	subs := new(MockSubscriptionResolver)

	channels.On("FindByChannelID", mock.Anything, "ch-1").Return(diagnosisChannel(), nil)
	subs.On("CanRecord", mock.Anything, "tenant-1").Return(true)

	var captured *models.AccessEvent
	events.On("InsertAccessEvent", mock.Anything, mock.AnythingOfType("*models.AccessEvent")).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*models.AccessEvent) }).
		Return(nil)

	country := "Japan"
	service := NewEventService(channels, new(MockSessionRepository), events, subs,
		stubIPLocator{loc: geo.Location{Country: &country}}, &stubGeocoder{}, nil, zap.NewNop())
	service.now = func() time.Time { return testNow }

	outcome := service.RecordAccess(context.Background(), AccessInput{
		ChannelID: strp("ch-1"),
		EventType: "qr_scan",
		UserAgent: "Mozilla/5.0",
		IPAddress: "203.0.113.7",
	})

	assert.Equal(t, OutcomeRecorded, outcome)
	assert.True(t, outcome.Tracked())
	if assert.NotNil(t, captured) {
		assert.Equal(t, "qr_scan", captured.EventType)
		assert.Equal(t, "tenant-1", *captured.TenantID)
		assert.Equal(t, "Japan", *captured.Country)
	}
}

func TestRecordAccess_GatedSkipsWrite(t *testing.T) {
	channels := new(MockChannelRepository)
	events := new(MockEventRepository)
	subs := new(MockSubscriptionResolver)

	channels.On("FindByChannelID", mock.Anything, "ch-1").Return(diagnosisChannel(), nil)
	subs.On("CanRecord", mock.Anything, "tenant-1").Return(false)

	service := newEventService(channels, new(MockSessionRepository), events, subs, nil)

	outcome := service.RecordAccess(context.Background(), AccessInput{ChannelID: strp("ch-1"), EventType: "page_view"})

	assert.Equal(t, OutcomeSkippedGated, outcome)
	assert.False(t, outcome.Tracked())
	events.AssertNotCalled(t, "InsertAccessEvent", mock.Anything, mock.Anything)
}

func TestRecordAccess_UnresolvedChannelStillRecords(t *testing.T) {
	channels := new(MockChannelRepository)
	events := new(MockEventRepository)

	channels.On("FindByChannelID", mock.Anything, "ghost").Return(nil, repository.ErrNotFound)

	var captured *models.AccessEvent
	events.On("InsertAccessEvent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*models.AccessEvent) }).
		Return(nil)

	service := newEventService(channels, new(MockSessionRepository), events, new(MockSubscriptionResolver), nil)

	outcome := service.RecordAccess(context.Background(), AccessInput{ChannelID: strp("ghost"), EventType: "page_view"})

	assert.Equal(t, OutcomeRecorded, outcome)
	if assert.NotNil(t, captured) {
		assert.Nil(t, captured.TenantID)
		assert.Nil(t, captured.ChannelID)
	}
}

func TestRecordAccess_WriteFailureSwallowed(t *testing.T) {
	events := new(MockEventRepository)
	events.On("InsertAccessEvent", mock.Anything, mock.Anything).Return(errors.New("db down"))

	service := newEventService(new(MockChannelRepository), new(MockSessionRepository), events, new(MockSubscriptionResolver), nil)

	outcome := service.RecordAccess(context.Background(), AccessInput{EventType: "page_view"})
	assert.Equal(t, OutcomeFailedSilently, outcome)
}

func TestRecordCTAClick_ProfilePageKeepsNilChannel(t *testing.T) {
	events := new(MockEventRepository)
	subs := new(MockSubscriptionResolver)
	subs.On("CanRecord", mock.Anything, "tenant-1").Return(true)

	var captured *models.CTAClickEvent
	events.On("InsertCTAClick", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*models.CTAClickEvent) }).
		Return(nil)

	service := newEventService(new(MockChannelRepository), new(MockSessionRepository), events, subs, nil)

	outcome := service.RecordCTAClick(context.Background(), CTAClickInput{
		TenantID: strp("tenant-1"),
		CTAType:  "phone",
	})

	assert.Equal(t, OutcomeRecorded, outcome)
	if assert.NotNil(t, captured) {
		assert.Nil(t, captured.ChannelID)
		assert.Equal(t, "phone", captured.CTAType)
	}
}

func TestRecordCTAClick_Gated(t *testing.T) {
	events := new(MockEventRepository)
	subs := new(MockSubscriptionResolver)
	subs.On("CanRecord", mock.Anything, "tenant-1").Return(false)

	service := newEventService(new(MockChannelRepository), new(MockSessionRepository), events, subs, nil)

	outcome := service.RecordCTAClick(context.Background(), CTAClickInput{TenantID: strp("tenant-1"), CTAType: "phone"})

	assert.Equal(t, OutcomeSkippedGated, outcome)
	events.AssertNotCalled(t, "InsertCTAClick", mock.Anything, mock.Anything)
}

func TestCompleteDiagnosis_Idempotent(t *testing.T) {
	channels := new(MockChannelRepository)
	sessions := new(MockSessionRepository)
	subs := new(MockSubscriptionResolver)

	session := &models.DiagnosisSession{
		SessionID: "sess-1", TenantID: "tenant-1", ChannelID: strp("ch-1"), DiagnosisType: "skin",
	}
	channels.On("FindByChannelID", mock.Anything, "ch-1").Return(diagnosisChannel(), nil)
	sessions.On("FindBySessionID", mock.Anything, "sess-1").Return(session, nil)
	subs.On("CanRecord", mock.Anything, "tenant-1").Return(true)

	// First call matches the row, second call finds it already completed.
	sessions.On("MarkCompleted", mock.Anything, "sess-1", mock.Anything).Return(true, nil).Once()
	sessions.On("MarkCompleted", mock.Anything, "sess-1", mock.Anything).Return(false, nil).Once()

	service := newEventService(channels, sessions, new(MockEventRepository), subs, nil)

	outcome, err := service.CompleteDiagnosis(context.Background(), CompleteInput{
		SessionID: strp("sess-1"), Score: intp(80), Category: strp("high"),
	})
	assert.NoError(t, err)
	assert.Equal(t, OutcomeRecorded, outcome)

	// Replay with a different payload: success, no second mutation.
	outcome, err = service.CompleteDiagnosis(context.Background(), CompleteInput{
		SessionID: strp("sess-1"), Score: intp(5), Category: strp("low"),
	})
	assert.NoError(t, err)
	assert.Equal(t, OutcomeRecorded, outcome)
	sessions.AssertNumberOfCalls(t, "MarkCompleted", 2)
}

func TestCompleteDiagnosis_LinkSessionRejected(t *testing.T) {
	channels := new(MockChannelRepository)
	sessions := new(MockSessionRepository)

	session := &models.DiagnosisSession{
		SessionID: "sess-2", TenantID: "tenant-1", ChannelID: strp("ch-2"),
	}
	channels.On("FindByChannelID", mock.Anything, "ch-2").Return(linkChannel(), nil)
	sessions.On("FindBySessionID", mock.Anything, "sess-2").Return(session, nil)

	service := newEventService(channels, sessions, new(MockEventRepository), new(MockSubscriptionResolver), nil)

	_, err := service.CompleteDiagnosis(context.Background(), CompleteInput{SessionID: strp("sess-2"), Score: intp(50)})
	assert.ErrorIs(t, err, ErrLinkSessionCompletion)
	sessions.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything)
}

func TestCompleteDiagnosis_LinkChannelRejectedOnFirstWrite(t *testing.T) {
	channels := new(MockChannelRepository)
	channels.On("FindByChannelID", mock.Anything, "ch-2").Return(linkChannel(), nil)

	service := newEventService(channels, new(MockSessionRepository), new(MockEventRepository), new(MockSubscriptionResolver), nil)

	_, err := service.CompleteDiagnosis(context.Background(), CompleteInput{
		ChannelID: strp("ch-2"), DiagnosisType: strp("skin"),
	})
	assert.ErrorIs(t, err, ErrLinkSessionCompletion)
}

func TestCompleteDiagnosis_FirstWriteCreatesCompletedSession(t *testing.T) {
	channels := new(MockChannelRepository)
	sessions := new(MockSessionRepository)
	subs := new(MockSubscriptionResolver)

	channels.On("FindByChannelID", mock.Anything, "ch-1").Return(diagnosisChannel(), nil)
	subs.On("CanRecord", mock.Anything, "tenant-1").Return(true)
	subs.On("IsDemo", mock.Anything, "tenant-1").Return(false)

	var captured *models.DiagnosisSession
	sessions.On("CreateSession", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*models.DiagnosisSession) }).
		Return(nil)

	service := newEventService(channels, sessions, new(MockEventRepository), subs, nil)

	outcome, err := service.CompleteDiagnosis(context.Background(), CompleteInput{
		ChannelID: strp("ch-1"), DiagnosisType: strp("skin"), Score: intp(72),
	})

	assert.NoError(t, err)
	assert.Equal(t, OutcomeRecorded, outcome)
	if assert.NotNil(t, captured) {
		assert.Equal(t, "tenant-1", captured.TenantID)
		assert.Equal(t, "skin", captured.DiagnosisType)
		assert.NotNil(t, captured.CompletedAt)
		assert.NotEmpty(t, captured.SessionID)
	}
}

func TestCompleteDiagnosis_Gated(t *testing.T) {
	channels := new(MockChannelRepository)
	sessions := new(MockSessionRepository)
	subs := new(MockSubscriptionResolver)

	session := &models.DiagnosisSession{SessionID: "sess-1", TenantID: "tenant-1", DiagnosisType: "skin"}
	sessions.On("FindBySessionID", mock.Anything, "sess-1").Return(session, nil)
	subs.On("CanRecord", mock.Anything, "tenant-1").Return(false)

	service := newEventService(channels, sessions, new(MockEventRepository), subs, nil)

	outcome, err := service.CompleteDiagnosis(context.Background(), CompleteInput{SessionID: strp("sess-1")})
	assert.NoError(t, err)
	assert.Equal(t, OutcomeSkippedGated, outcome)
	sessions.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdatePreciseLocation_RoundsBeforePersistAndGeocode(t *testing.T) {
	sessions := new(MockSessionRepository)
	sessions.On("FindBySessionID", mock.Anything, "sess-1").
		Return(&models.DiagnosisSession{SessionID: "sess-1", TenantID: "tenant-1"}, nil)

	var gotLat, gotLon float64
	sessions.On("UpdateLocation", mock.Anything, "sess-1", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotLat = args.Get(2).(float64)
			gotLon = args.Get(3).(float64)
		}).
		Return(nil)

	geocoder := &stubGeocoder{}
	service := newEventService(new(MockChannelRepository), sessions, new(MockEventRepository), new(MockSubscriptionResolver), geocoder)

	outcome, err := service.UpdatePreciseLocation(context.Background(), "sess-1", 35.6895123, 139.6917456)

	assert.NoError(t, err)
	assert.Equal(t, OutcomeRecorded, outcome)
	assert.Equal(t, 35.69, gotLat)
	assert.Equal(t, 139.69, gotLon)
	// The provider also only ever sees rounded coordinates.
	assert.True(t, geocoder.called)
	assert.Equal(t, 35.69, geocoder.lastLat)
	assert.Equal(t, 139.69, geocoder.lastLon)
}

func TestUpdatePreciseLocation_UnknownSession(t *testing.T) {
	sessions := new(MockSessionRepository)
	sessions.On("FindBySessionID", mock.Anything, "ghost").Return(nil, repository.ErrNotFound)

	service := newEventService(new(MockChannelRepository), sessions, new(MockEventRepository), new(MockSubscriptionResolver), nil)

	_, err := service.UpdatePreciseLocation(context.Background(), "ghost", 35.69, 139.69)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestUpdatePreciseLocation_WriteFailureSwallowed(t *testing.T) {
	sessions := new(MockSessionRepository)
	sessions.On("FindBySessionID", mock.Anything, "sess-1").
		Return(&models.DiagnosisSession{SessionID: "sess-1"}, nil)
	sessions.On("UpdateLocation", mock.Anything, "sess-1", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("db down"))

	service := newEventService(new(MockChannelRepository), sessions, new(MockEventRepository), new(MockSubscriptionResolver), nil)

	outcome, err := service.UpdatePreciseLocation(context.Background(), "sess-1", 35.69, 139.69)
	assert.NoError(t, err)
	assert.Equal(t, OutcomeFailedSilently, outcome)
}
