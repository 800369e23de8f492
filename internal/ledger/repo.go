package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partnerly/dispatch-backend/pkg/db/models"
	"github.com/partnerly/dispatch-backend/pkg/enums"
)

// Repository persists assignment episodes. An episode is opened with
// response=pending when a request is assigned and resolved exactly once.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Open(ctx context.Context, entry *models.Assignment) (*models.Assignment, error)
	OpenByRequest(ctx context.Context, requestID uuid.UUID) (*models.Assignment, error)
	ResolveOpen(ctx context.Context, requestID uuid.UUID, partnerID *uuid.UUID, response enums.AssignmentResponse, reason *string, respondedAt time.Time) (int64, error)
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.Assignment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a ledger repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Open(ctx context.Context, entry *models.Assignment) (*models.Assignment, error) {
	entry.Response = enums.AssignmentResponsePending
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *repository) OpenByRequest(ctx context.Context, requestID uuid.UUID) (*models.Assignment, error) {
	var entry models.Assignment
	err := r.db.WithContext(ctx).
		Where("request_id = ? AND response = ?", requestID, enums.AssignmentResponsePending).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// ResolveOpen closes the open episode with a guarded update. The WHERE clause
// re-checks response=pending (and the partner when supplied) so only one
// resolver can win; the returned row count tells the caller whether it did.
func (r *repository) ResolveOpen(ctx context.Context, requestID uuid.UUID, partnerID *uuid.UUID, response enums.AssignmentResponse, reason *string, respondedAt time.Time) (int64, error) {
	if !response.IsResolved() {
		return 0, errors.New("response must resolve the episode")
	}
	query := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("request_id = ? AND response = ?", requestID, enums.AssignmentResponsePending)
	if partnerID != nil {
		query = query.Where("partner_id = ?", *partnerID)
	}
	res := query.Updates(map[string]any{
		"response":         response,
		"responded_at":     respondedAt,
		"rejection_reason": reason,
	})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]models.Assignment, error) {
	var entries []models.Assignment
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("assigned_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
