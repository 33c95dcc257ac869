package handlers

import (
	"fmt"
	"net/http"
	"time"

	"clinic-qr-tracker/configs"
	"clinic-qr-tracker/internal/clientip"
	"clinic-qr-tracker/internal/services"

	"github.com/gin-gonic/gin"
)

// RedirectHandler serves the public short-code entry point. Its only
// observable outputs are redirect targets; it never returns JSON.
type RedirectHandler struct {
	resolver services.ChannelResolver
}

func NewRedirectHandler(resolver services.ChannelResolver) *RedirectHandler {
	return &RedirectHandler{resolver: resolver}
}

// Resolve handles GET /c/:code
// @Summary Resolve a short code to its destination
// @Tags channels
// @Success 302
// @Router /c/{code} [get]
func (h *RedirectHandler) Resolve(c *gin.Context) {
	res := h.resolver.Resolve(c.Request.Context(), c.Param("code"))

	switch res.State {
	case services.ResolutionExpired:
		c.Redirect(http.StatusFound, configs.AppConfig.ExpiredPageURL)

	case services.ResolutionDiagnosis:
		if res.Channel.DiagnosisType == nil {
			c.Redirect(http.StatusFound, configs.AppConfig.LandingPageURL)
			return
		}
		target := fmt.Sprintf(configs.AppConfig.DiagnosisPathFmt, *res.Channel.DiagnosisType, res.Channel.ChannelID)
		c.Redirect(http.StatusFound, target)

	case services.ResolutionLink:
		if res.Channel.DestinationURL == nil {
			c.Redirect(http.StatusFound, configs.AppConfig.LandingPageURL)
			return
		}
		h.resolver.HandleLinkScan(c.Request.Context(), res.Channel,
			c.Request.UserAgent(), c.Request.Referer(), clientip.FromRequest(c.Request))
		c.Redirect(http.StatusFound, *res.Channel.DestinationURL)

	default:
		// NotFound, Inactive and Gated all land on the same page so billing
		// state never leaks to the public.
		c.Redirect(http.StatusFound, configs.AppConfig.LandingPageURL)
	}
}

// ChannelHandler owns operator channel management.
type ChannelHandler struct {
	channels *services.ChannelService
	audit    services.Auditor
}

func NewChannelHandler(channels *services.ChannelService, audit services.Auditor) *ChannelHandler {
	return &ChannelHandler{channels: channels, audit: audit}
}

type createChannelRequest struct {
	Type           string     `json:"type" binding:"required"`
	DiagnosisType  *string    `json:"diagnosisType"`
	DestinationURL *string    `json:"destinationUrl"`
	ExpiresAt      *time.Time `json:"expiresAt"`
}

type reorderRequest struct {
	ChannelIDs []string `json:"channelIds" binding:"required"`
}

// List handles GET /api/channels
// @Summary List the tenant's channels
// @Tags channels
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/channels [get]
func (h *ChannelHandler) List(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	channels, err := h.channels.ListChannels(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list channels"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

// Create handles POST /api/channels
// @Summary Create a channel
// @Tags channels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/channels [post]
func (h *ChannelHandler) Create(c *gin.Context) {
	var req createChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	tenantID := c.GetString("tenant_id")

	channel, err := h.channels.CreateChannel(c.Request.Context(), tenantID, req.Type, req.DiagnosisType, req.DestinationURL, req.ExpiresAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	targetType := "channel"
	h.audit.Append(c.Request.Context(), c.GetString("operator_id"), "channel.create",
		&targetType, &channel.ChannelID, gin.H{"code": channel.Code, "type": channel.Type}, c.Request)

	c.JSON(http.StatusCreated, gin.H{"channel": channel})
}

// Reorder handles PUT /api/channels/reorder
// @Summary Reorder the tenant's channels
// @Tags channels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/channels/reorder [put]
func (h *ChannelHandler) Reorder(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	tenantID := c.GetString("tenant_id")

	if err := h.channels.ReorderChannels(c.Request.Context(), tenantID, req.ChannelIDs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reorder channels"})
		return
	}

	targetType := "channel"
	h.audit.Append(c.Request.Context(), c.GetString("operator_id"), "channel.reorder",
		&targetType, nil, gin.H{"order": req.ChannelIDs}, c.Request)

	c.JSON(http.StatusOK, gin.H{"success": true})
}
