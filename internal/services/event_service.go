package services

import (
	"context"
	"errors"
	"time"

	"clinic-qr-tracker/internal/geo"
	"clinic-qr-tracker/internal/models"
	"clinic-qr-tracker/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcome is the first-class result of a best-effort write. Callers respond
// success-shaped regardless; the outcome only drives the tracked indicator
// and tests.
type Outcome int

const (
	// OutcomeRecorded: the event was persisted (or an idempotent replay
	// matched an already-persisted write).
	OutcomeRecorded Outcome = iota
	// OutcomeSkippedGated: subscription gate closed, nothing written.
	OutcomeSkippedGated
	// OutcomeFailedSilently: persistence or enrichment input failed; logged
	// and swallowed.
	OutcomeFailedSilently
)

func (o Outcome) Tracked() bool {
	return o == OutcomeRecorded
}

func (o Outcome) String() string {
	switch o {
	case OutcomeRecorded:
		return "recorded"
	case OutcomeSkippedGated:
		return "skipped_gated"
	default:
		return "failed_silently"
	}
}

var (
	ErrSessionNotFound = errors.New("diagnosis session not found")
	ErrChannelNotFound = errors.New("channel not found")
	// ErrLinkSessionCompletion: a link-type channel never accepts
	// diagnosis-completion writes.
	ErrLinkSessionCompletion = errors.New("link channels do not accept diagnosis completion")
)

// AccessInput is the sanitized access-event variant.
type AccessInput struct {
	ChannelID *string
	EventType string
	UserAgent string
	Referer   string
	IPAddress string
}

// CTAClickInput is the sanitized CTA-click variant. ChannelID stays nil for
// clinic-profile-page clicks.
type CTAClickInput struct {
	ChannelID *string
	TenantID  *string
	SessionID *string
	CTAType   string
}

// CompleteInput is the sanitized diagnosis-completion variant. Either
// SessionID or ChannelID+DiagnosisType must be present; the handler enforces
// that before calling.
type CompleteInput struct {
	SessionID     *string
	ChannelID     *string
	DiagnosisType *string
	Answers       *string
	Score         *int
	Category      *string
	Gender        *string
	Age           *int
}

// EventService persists visitor events. Every write is best-effort: store and
// enrichment failures are logged and swallowed so the visitor flow never
// degrades.
type EventService struct {
	channels  repository.ChannelRepository
	sessions  repository.SessionRepository
	events    repository.EventRepository
	subs      SubscriptionResolver
	ipLocator IPLocator
	geocoder  AddressLocator
	stream    EventPublisher
	now       func() time.Time
	log       *zap.Logger
}

func NewEventService(
	channels repository.ChannelRepository,
	sessions repository.SessionRepository,
	events repository.EventRepository,
	subs SubscriptionResolver,
	ipLocator IPLocator,
	geocoder AddressLocator,
	stream EventPublisher,
	log *zap.Logger,
) *EventService {
	return &EventService{
		channels:  channels,
		sessions:  sessions,
		events:    events,
		subs:      subs,
		ipLocator: ipLocator,
		geocoder:  geocoder,
		stream:    stream,
		now:       time.Now,
		log:       log,
	}
}

// RecordAccess appends an AccessEvent enriched with coarse location. The
// tenant is resolved from the channel when one is given; an unresolvable
// channel still records an anonymous event.
func (s *EventService) RecordAccess(ctx context.Context, in AccessInput) Outcome {
	var tenantID, channelID *string

	if in.ChannelID != nil {
		channel, err := s.channels.FindByChannelID(ctx, *in.ChannelID)
		switch {
		case err == nil:
			if !s.subs.CanRecord(ctx, channel.TenantID) {
				return OutcomeSkippedGated
			}
			tenantID = &channel.TenantID
			channelID = &channel.ChannelID
		case errors.Is(err, repository.ErrNotFound):
			// Unresolved target: record with null tenant.
		default:
			s.log.Warn("Channel lookup failed during access record", zap.Error(err))
		}
	}

	loc := s.ipLocator.Lookup(ctx, in.IPAddress)

	event := &models.AccessEvent{
		TenantID:  tenantID,
		ChannelID: channelID,
		EventType: in.EventType,
		UserAgent: in.UserAgent,
		Referer:   in.Referer,
		Country:   loc.Country,
		Region:    loc.Region,
		City:      loc.City,
		Timestamp: s.now(),
	}

	if err := s.events.InsertAccessEvent(ctx, event); err != nil {
		s.log.Error("Access event write failed", zap.String("event_type", in.EventType), zap.Error(err))
		return OutcomeFailedSilently
	}

	s.publish("access", tenantID, channelID, in.EventType)
	return OutcomeRecorded
}

// RecordCTAClick appends a CTAClickEvent under the same gating rules.
func (s *EventService) RecordCTAClick(ctx context.Context, in CTAClickInput) Outcome {
	tenantID := in.TenantID
	channelID := in.ChannelID

	if in.ChannelID != nil {
		channel, err := s.channels.FindByChannelID(ctx, *in.ChannelID)
		switch {
		case err == nil:
			tenantID = &channel.TenantID
			channelID = &channel.ChannelID
		case errors.Is(err, repository.ErrNotFound):
			channelID = nil
		default:
			s.log.Warn("Channel lookup failed during CTA record", zap.Error(err))
		}
	}

	if tenantID != nil && !s.subs.CanRecord(ctx, *tenantID) {
		return OutcomeSkippedGated
	}

	event := &models.CTAClickEvent{
		TenantID:  tenantID,
		ChannelID: channelID,
		SessionID: in.SessionID,
		CTAType:   in.CTAType,
		Timestamp: s.now(),
	}

	if err := s.events.InsertCTAClick(ctx, event); err != nil {
		s.log.Error("CTA click write failed", zap.String("cta_type", in.CTAType), zap.Error(err))
		return OutcomeFailedSilently
	}

	s.publish("cta_click", tenantID, channelID, in.CTAType)
	return OutcomeRecorded
}

// CompleteDiagnosis sets a session's completion fields exactly once. Replays
// succeed without mutation. A session behind a link-type channel rejects
// completion with a validation error.
func (s *EventService) CompleteDiagnosis(ctx context.Context, in CompleteInput) (Outcome, error) {
	if in.SessionID != nil {
		return s.completeExisting(ctx, *in.SessionID, in)
	}
	return s.completeNew(ctx, in)
}

func (s *EventService) completeExisting(ctx context.Context, sessionID string, in CompleteInput) (Outcome, error) {
	session, err := s.sessions.FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return OutcomeFailedSilently, ErrSessionNotFound
		}
		s.log.Error("Session lookup failed", zap.String("session_id", sessionID), zap.Error(err))
		return OutcomeFailedSilently, nil
	}

	if session.ChannelID != nil {
		channel, err := s.channels.FindByChannelID(ctx, *session.ChannelID)
		if err == nil && channel.Type == models.ChannelTypeLink {
			return OutcomeFailedSilently, ErrLinkSessionCompletion
		}
	}

	if !s.subs.CanRecord(ctx, session.TenantID) {
		return OutcomeSkippedGated, nil
	}

	updated, err := s.sessions.MarkCompleted(ctx, sessionID, repository.CompletionFields{
		Answers:     in.Answers,
		Score:       in.Score,
		Category:    in.Category,
		Gender:      in.Gender,
		Age:         in.Age,
		CompletedAt: s.now(),
	})
	if err != nil {
		s.log.Error("Completion write failed", zap.String("session_id", sessionID), zap.Error(err))
		return OutcomeFailedSilently, nil
	}
	if !updated {
		// Already completed: idempotent success, first payload stands.
		return OutcomeRecorded, nil
	}

	s.publish("diagnosis_complete", &session.TenantID, session.ChannelID, session.DiagnosisType)
	return OutcomeRecorded, nil
}

func (s *EventService) completeNew(ctx context.Context, in CompleteInput) (Outcome, error) {
	channel, err := s.channels.FindByChannelID(ctx, *in.ChannelID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return OutcomeFailedSilently, ErrChannelNotFound
		}
		s.log.Error("Channel lookup failed during completion", zap.Error(err))
		return OutcomeFailedSilently, nil
	}

	if channel.Type == models.ChannelTypeLink {
		return OutcomeFailedSilently, ErrLinkSessionCompletion
	}

	if !s.subs.CanRecord(ctx, channel.TenantID) {
		return OutcomeSkippedGated, nil
	}

	completedAt := s.now()
	session := &models.DiagnosisSession{
		SessionID:     uuid.New().String(),
		TenantID:      channel.TenantID,
		ChannelID:     &channel.ChannelID,
		DiagnosisType: *in.DiagnosisType,
		IsDemo:        s.subs.IsDemo(ctx, channel.TenantID),
		Answers:       in.Answers,
		Score:         in.Score,
		Category:      in.Category,
		Gender:        in.Gender,
		Age:           in.Age,
		CompletedAt:   &completedAt,
	}

	if err := s.sessions.CreateSession(ctx, session); err != nil {
		s.log.Error("Session create failed", zap.Error(err))
		return OutcomeFailedSilently, nil
	}

	s.publish("diagnosis_complete", &channel.TenantID, &channel.ChannelID, *in.DiagnosisType)
	return OutcomeRecorded, nil
}

// UpdatePreciseLocation reverse-geocodes device coordinates and persists them
// rounded to 2 decimals. Precise data supersedes any earlier coarse fields.
// Coordinates are rounded before the provider call as well, so the unrounded
// value never leaves the request handler.
func (s *EventService) UpdatePreciseLocation(ctx context.Context, sessionID string, lat, lon float64) (Outcome, error) {
	if _, err := s.sessions.FindBySessionID(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return OutcomeFailedSilently, ErrSessionNotFound
		}
		s.log.Error("Session lookup failed", zap.String("session_id", sessionID), zap.Error(err))
		return OutcomeFailedSilently, nil
	}

	roundedLat := geo.RoundCoord(lat)
	roundedLon := geo.RoundCoord(lon)

	loc := s.geocoder.Reverse(ctx, roundedLat, roundedLon)

	if err := s.sessions.UpdateLocation(ctx, sessionID, roundedLat, roundedLon, loc); err != nil {
		s.log.Error("Location update failed", zap.String("session_id", sessionID), zap.Error(err))
		return OutcomeFailedSilently, nil
	}

	return OutcomeRecorded, nil
}

func (s *EventService) publish(eventType string, tenantID, channelID *string, detail string) {
	if s.stream == nil {
		return
	}
	s.stream.PublishEvent(map[string]interface{}{
		"type":       eventType,
		"tenant_id":  tenantID,
		"channel_id": channelID,
		"detail":     detail,
		"timestamp":  s.now().Unix(),
	})
}
