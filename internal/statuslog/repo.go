package statuslog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partnerly/dispatch-backend/pkg/db/models"
	"github.com/partnerly/dispatch-backend/pkg/enums"
)

// Repository appends immutable audit records of status changes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, requestID uuid.UUID, status enums.RequestStatus, actorID uuid.UUID, notes *string) error
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.StatusLogEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a status log repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Append(ctx context.Context, requestID uuid.UUID, status enums.RequestStatus, actorID uuid.UUID, notes *string) error {
	entry := models.StatusLogEntry{
		RequestID:   requestID,
		Status:      status,
		ActorUserID: actorID,
		Notes:       notes,
	}
	return r.db.WithContext(ctx).Create(&entry).Error
}

func (r *repository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.StatusLogEntry, error) {
	var entries []models.StatusLogEntry
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
