package requests

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partnerly/dispatch-backend/pkg/db/models"
	"github.com/partnerly/dispatch-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a requests repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.Request) (*models.Request, error) {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	var request models.Request
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) FindByNumber(ctx context.Context, number int64) (*models.Request, error) {
	var request models.Request
	err := r.db.WithContext(ctx).
		Where("request_number = ? AND deleted_at IS NULL", number).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]models.Request, error) {
	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := r.db.WithContext(ctx).
		Where("deleted_at IS NULL").
		Order("created_at DESC").
		Limit(limit).
		Offset(params.Offset)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	var rows []models.Request
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindExpiredAssigned is the sweep's hot query, backed by the partial index
// on (sla_deadline) WHERE status='assigned'.
func (r *repository) FindExpiredAssigned(ctx context.Context, now time.Time) ([]models.Request, error) {
	var rows []models.Request
	err := r.db.WithContext(ctx).
		Where("status = ? AND sla_deadline < ?", enums.RequestStatusAssigned, now).
		Order("sla_deadline ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateGuarded(ctx context.Context, id uuid.UUID, guards map[string]any, updates map[string]any) (int64, error) {
	if len(updates) == 0 {
		return 0, errors.New("updates required")
	}
	query := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("id = ?", id)
	for column, value := range guards {
		query = query.Where(column+" = ?", value)
	}
	res := query.Updates(updates)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
