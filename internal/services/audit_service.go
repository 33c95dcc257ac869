package services

import (
	"context"
	"encoding/json"
	"net/http"

	"clinic-qr-tracker/internal/clientip"
	"clinic-qr-tracker/internal/models"
	"clinic-qr-tracker/internal/repository"

	"go.uber.org/zap"
)

// AuditService appends privileged operator actions. Strictly additive, and
// never surfaces a failure: a broken audit store must not break the
// operation being audited.
type AuditService struct {
	audit repository.AuditRepository
	log   *zap.Logger
}

func NewAuditService(audit repository.AuditRepository, log *zap.Logger) *AuditService {
	return &AuditService{audit: audit, log: log}
}

func (s *AuditService) Append(ctx context.Context, actorID, action string, targetType, targetID *string, details interface{}, r *http.Request) {
	entry := &models.AuditLogEntry{
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
	}

	if r != nil {
		entry.IPAddress = clientip.FromRequest(r)
	}

	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			s.log.Warn("Audit detail marshal failed", zap.String("action", action), zap.Error(err))
		} else {
			detail := string(data)
			entry.Details = &detail
		}
	}

	if err := s.audit.Insert(ctx, entry); err != nil {
		s.log.Error("Audit log write failed",
			zap.String("actor_id", actorID),
			zap.String("action", action),
			zap.Error(err))
	}
}
