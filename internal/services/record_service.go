package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/trustweave/portal/internal/models"
	"github.com/trustweave/portal/internal/status"
	apperrors "github.com/trustweave/portal/pkg/errors"
	"github.com/trustweave/portal/pkg/metrics"
)

// Event types published when verification records change.
const (
	EventRecordCreated = "record.created"
	EventRecordUpdated = "record.updated"
)

// RecordEvent is broadcast to connected dashboard clients on record changes.
type RecordEvent struct {
	Type   string     `json:"type"`
	Record RecordView `json:"record"`
}

// EventPublisher pushes record events to interested subscribers.
type EventPublisher interface {
	Publish(event RecordEvent)
}

// RecordView is the API representation of a verification record.
type RecordView struct {
	ID           string        `json:"id"`
	UserID       string        `json:"userId"`
	Email        string        `json:"email,omitempty"`
	Status       status.Status `json:"status"`
	DocumentHash string        `json:"documentHash"`
	WalletAddress string       `json:"walletAddress,omitempty"`
	Submitter    SubmitterInfo `json:"submitter"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// RecordService owns persistence and business rules for verification records.
type RecordService struct {
	db     *gorm.DB
	audit  *AuditService
	events EventPublisher
}

// NewRecordService constructs a RecordService.
func NewRecordService(db *gorm.DB, audit *AuditService, events EventPublisher) (*RecordService, error) {
	if db == nil {
		return nil, errors.New("record service: db is required")
	}
	return &RecordService{db: db, audit: audit, events: events}, nil
}

// ListAll returns every verification record, newest first, for the admin dashboard.
func (s *RecordService) ListAll(ctx context.Context) ([]RecordView, error) {
	var records []models.VerificationRecord
	err := s.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("record service: list records: %w", err)
	}
	return viewsOf(records), nil
}

// ListByUser returns a user's own records, newest first.
func (s *RecordService) ListByUser(ctx context.Context, userID string) ([]RecordView, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.ErrBadRequest
	}

	var records []models.VerificationRecord
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("record service: list user records: %w", err)
	}
	return viewsOf(records), nil
}

// Get loads a single record by id.
func (s *RecordService) Get(ctx context.Context, id string) (*models.VerificationRecord, error) {
	var record models.VerificationRecord
	err := s.db.WithContext(ctx).Preload("User").Take(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("record service: load record: %w", err)
	}
	return &record, nil
}

// GetView loads a single record as its API representation.
func (s *RecordService) GetView(ctx context.Context, id string) (RecordView, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return RecordView{}, err
	}
	return viewOf(record), nil
}

// Create persists a new record and announces it to subscribers.
func (s *RecordService) Create(ctx context.Context, record *models.VerificationRecord) error {
	if record == nil {
		return errors.New("record service: record is required")
	}
	if !record.Status.Valid() {
		record.Status = status.Pending
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("record service: create record: %w", err)
	}

	s.publish(ctx, EventRecordCreated, record)
	return nil
}

// DecisionMeta carries request context for an admin status decision.
type DecisionMeta struct {
	AdminID   string
	IPAddress string
	UserAgent string
}

// UpdateStatus applies an admin decision to a record. Only the terminal
// statuses are accepted; a record already carrying the requested status is
// returned unchanged.
func (s *RecordService) UpdateStatus(ctx context.Context, id string, next status.Status, meta DecisionMeta) (*models.VerificationRecord, error) {
	if !next.Terminal() {
		return nil, apperrors.ErrInvalidStatus
	}

	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if record.Status == next {
		return record, nil
	}

	previous := record.Status

	// The decision and its audit row commit together or not at all.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(record).Update("status", next).Error; err != nil {
			return fmt.Errorf("record service: update status: %w", err)
		}
		if s.audit == nil {
			return nil
		}
		if err := s.audit.RecordIn(ctx, tx, AuditEntry{
			UserID:    meta.AdminID,
			Action:    "records.status_update",
			Resource:  record.ID,
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
			Metadata: map[string]any{
				"from": string(previous),
				"to":   string(next),
			},
		}); err != nil {
			return fmt.Errorf("record service: audit decision: %w", err)
		}
		return nil
	})
	if err != nil {
		record.Status = previous
		return nil, err
	}
	record.Status = next

	metrics.StatusUpdates.WithLabelValues(string(next)).Inc()

	s.publish(ctx, EventRecordUpdated, record)
	return record, nil
}

// LatestStatusByEmail returns the newest record status for a submitter email,
// or nil when the submitter has no records. It backs the ledger's status
// lookups so stored decisions always win over the derived fallback.
func (s *RecordService) LatestStatusByEmail(ctx context.Context, email string) (*status.Status, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}

	var record models.VerificationRecord
	err := s.db.WithContext(ctx).
		Joins("JOIN users ON users.id = verification_records.user_id").
		Where("users.email = ?", email).
		Order("verification_records.created_at DESC").
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("record service: latest status: %w", err)
	}

	st := record.Status
	return &st, nil
}

func (s *RecordService) publish(ctx context.Context, eventType string, record *models.VerificationRecord) {
	if s.events == nil {
		return
	}
	s.events.Publish(RecordEvent{Type: eventType, Record: viewOf(record)})
}

func viewsOf(records []models.VerificationRecord) []RecordView {
	views := make([]RecordView, 0, len(records))
	for i := range records {
		views = append(views, viewOf(&records[i]))
	}
	return views
}

func viewOf(record *models.VerificationRecord) RecordView {
	view := RecordView{
		ID:            record.ID,
		UserID:        record.UserID,
		Status:        record.Status,
		DocumentHash:  record.DocumentHash,
		WalletAddress: record.WalletAddress,
		Submitter:     RecoverSubmitterInfo(record),
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
	if record.User != nil {
		view.Email = record.User.Email
	}
	return view
}
