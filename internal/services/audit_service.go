package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/trustweave/portal/internal/models"
)

// AuditEntry describes a single audit event before persistence.
type AuditEntry struct {
	UserID    string
	Action    string
	Resource  string
	Result    string
	IPAddress string
	UserAgent string
	Metadata  map[string]any
}

// AuditService persists an append-only trail of security relevant actions.
type AuditService struct {
	db *gorm.DB
}

// NewAuditService constructs an AuditService.
func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db}, nil
}

// Record writes an audit log entry. Failures are returned to the caller but
// are typically logged rather than surfaced to end users.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) error {
	return s.RecordIn(ctx, s.db, entry)
}

// RecordIn writes an audit log entry through the caller's database handle,
// letting the entry join an open transaction.
func (s *AuditService) RecordIn(ctx context.Context, db *gorm.DB, entry AuditEntry) error {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return errors.New("audit service: action is required")
	}

	result := strings.TrimSpace(entry.Result)
	if result == "" {
		result = "success"
	}

	log := models.AuditLog{
		Action:    action,
		Resource:  strings.TrimSpace(entry.Resource),
		Result:    result,
		IPAddress: strings.TrimSpace(entry.IPAddress),
		UserAgent: strings.TrimSpace(entry.UserAgent),
	}

	if userID := strings.TrimSpace(entry.UserID); userID != "" {
		log.UserID = &userID
	}

	if len(entry.Metadata) > 0 {
		payload, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("audit service: marshal metadata: %w", err)
		}
		log.Metadata = payload
	}

	if err := db.WithContext(ctx).Create(&log).Error; err != nil {
		return fmt.Errorf("audit service: create entry: %w", err)
	}
	return nil
}

// List returns audit entries newest first, optionally filtered by action.
func (s *AuditService) List(ctx context.Context, action string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := s.db.WithContext(ctx).Model(&models.AuditLog{}).Order("created_at DESC").Limit(limit)
	if action = strings.TrimSpace(action); action != "" {
		query = query.Where("action = ?", action)
	}

	var entries []models.AuditLog
	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("audit service: list entries: %w", err)
	}
	return entries, nil
}

// PurgeOlderThan deletes audit entries created before the cutoff.
func (s *AuditService) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("audit service: purge entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}
