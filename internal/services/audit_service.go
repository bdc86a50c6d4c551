package services

import (
	"encoding/json"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"spendwise/internal/logger"
	"spendwise/internal/models"
)

// auditEntry is one row of the audit trail before its changes are encoded.
type auditEntry struct {
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	IPAddress    string
	Changes      map[string]interface{}
}

// recordAudit writes e on db. db may be a transaction, in which case the
// entry commits or rolls back with the surrounding work.
func recordAudit(db *gorm.DB, e auditEntry) error {
	var changes string
	if len(e.Changes) > 0 {
		data, err := json.Marshal(e.Changes)
		if err != nil {
			return err
		}
		changes = string(data)
	}

	return db.Create(&models.AuditLog{
		UserID:       e.UserID,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		IPAddress:    e.IPAddress,
		Changes:      changes,
	}).Error
}

// auditService records user-initiated actions outside of any transaction.
type auditService struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db, log: logger.Named("audit")}
}

// Log is best-effort: a failed write is logged and the caller carries on.
func (s *auditService) Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{}) {
	e := auditEntry{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      changes,
	}
	if err := recordAudit(s.db, e); err != nil {
		s.log.Errorw("Audit entry dropped",
			"error", err,
			"user_id", e.UserID,
			"action", e.Action,
			"resource", e.ResourceType+"/"+e.ResourceID,
		)
	}
}
