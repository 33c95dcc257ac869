package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"clinic-qr-tracker/internal/clientip"
	"clinic-qr-tracker/internal/sanitize"
	"clinic-qr-tracker/internal/services"

	"github.com/gin-gonic/gin"
)

// TrackHandler owns the visitor-facing ingestion endpoints. Every response is
// success-shaped; the tracked flag is the only hint that a write was skipped
// or failed.
type TrackHandler struct {
	recorder services.EventRecorder
}

func NewTrackHandler(recorder services.EventRecorder) *TrackHandler {
	return &TrackHandler{recorder: recorder}
}

// Payload fields are deliberately untyped: validity is the sanitizer's job,
// not the decoder's.
type accessRequest struct {
	ChannelID interface{} `json:"channelId"`
	EventType interface{} `json:"eventType"`
}

type ctaClickRequest struct {
	ChannelID interface{} `json:"channelId"`
	TenantID  interface{} `json:"tenantId"`
	SessionID interface{} `json:"sessionId"`
	CTAType   interface{} `json:"ctaType"`
}

type completeRequest struct {
	SessionID     interface{} `json:"sessionId"`
	ChannelID     interface{} `json:"channelId"`
	DiagnosisType interface{} `json:"diagnosisType"`
	Answers       interface{} `json:"answers"`
	Score         interface{} `json:"score"`
	Category      interface{} `json:"category"`
	Gender        interface{} `json:"gender"`
	Age           interface{} `json:"age"`
}

type locationRequest struct {
	SessionID interface{} `json:"sessionId"`
	Latitude  interface{} `json:"latitude"`
	Longitude interface{} `json:"longitude"`
}

func trackedResponse(c *gin.Context, outcome services.Outcome) {
	c.JSON(http.StatusOK, gin.H{"success": true, "tracked": outcome.Tracked()})
}

// RecordAccess handles page views and QR scans
// @Summary Record an access event
// @Tags tracking
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/track/access [post]
func (h *TrackHandler) RecordAccess(c *gin.Context) {
	var req accessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ua := sanitize.String(c.Request.UserAgent(), 512)
	referer := sanitize.String(c.Request.Referer(), 512)

	outcome := h.recorder.RecordAccess(c.Request.Context(), services.AccessInput{
		ChannelID: sanitize.String(req.ChannelID, 36),
		EventType: sanitize.EventType(req.EventType),
		UserAgent: deref(ua),
		Referer:   deref(referer),
		IPAddress: clientip.FromRequest(c.Request),
	})

	trackedResponse(c, outcome)
}

// RecordCTAClick handles CTA click events
// @Summary Record a CTA click
// @Tags tracking
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/track/cta [post]
func (h *TrackHandler) RecordCTAClick(c *gin.Context) {
	var req ctaClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctaType := sanitize.CTAType(req.CTAType)
	if ctaType == nil {
		// Unknown CTA types degrade to "not recorded", never to an error.
		trackedResponse(c, services.OutcomeFailedSilently)
		return
	}

	outcome := h.recorder.RecordCTAClick(c.Request.Context(), services.CTAClickInput{
		ChannelID: sanitize.String(req.ChannelID, 36),
		TenantID:  sanitize.String(req.TenantID, 36),
		SessionID: sanitize.String(req.SessionID, 36),
		CTAType:   *ctaType,
	})

	trackedResponse(c, outcome)
}

// CompleteDiagnosis handles the one-shot diagnosis completion write
// @Summary Complete a diagnosis session
// @Tags tracking
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/track/complete [post]
func (h *TrackHandler) CompleteDiagnosis(c *gin.Context) {
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	sessionID := sanitize.String(req.SessionID, 36)
	channelID := sanitize.String(req.ChannelID, 36)
	diagnosisType := sanitize.String(req.DiagnosisType, 64)

	// The only structural requirement on this endpoint: something to
	// identify the session by.
	if sessionID == nil && (channelID == nil || diagnosisType == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId or channelId+diagnosisType required"})
		return
	}

	outcome, err := h.recorder.CompleteDiagnosis(c.Request.Context(), services.CompleteInput{
		SessionID:     sessionID,
		ChannelID:     channelID,
		DiagnosisType: diagnosisType,
		Answers:       marshalAnswers(req.Answers),
		Score:         sanitize.Score(req.Score),
		Category:      sanitize.String(req.Category, 64),
		Gender:        sanitize.Gender(req.Gender),
		Age:           sanitize.Age(req.Age),
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLinkSessionCompletion):
			c.JSON(http.StatusBadRequest, gin.H{"error": "This channel does not accept diagnosis completion"})
		case errors.Is(err, services.ErrSessionNotFound), errors.Is(err, services.ErrChannelNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		}
		return
	}

	trackedResponse(c, outcome)
}

// UpdateLocation handles precise device-coordinate enrichment
// @Summary Update a session's precise location
// @Tags tracking
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/track/location [post]
func (h *TrackHandler) UpdateLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	sessionID := sanitize.String(req.SessionID, 36)
	if sessionID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId required"})
		return
	}

	lat := sanitize.Latitude(req.Latitude)
	lon := sanitize.Longitude(req.Longitude)
	if lat == nil || lon == nil {
		// Out-of-range coordinates persist nothing, and that is fine.
		trackedResponse(c, services.OutcomeFailedSilently)
		return
	}

	outcome, err := h.recorder.UpdatePreciseLocation(c.Request.Context(), *sessionID, *lat, *lon)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	trackedResponse(c, outcome)
}

func marshalAnswers(v interface{}) *string {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	s := string(data)
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
