package settings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partnerly/dispatch-backend/pkg/db/models"
	"github.com/partnerly/dispatch-backend/pkg/enums"
)

// Repository reads scoped configuration rows.
type Repository interface {
	FindGlobal(ctx context.Context, key enums.SettingKey) (*models.Setting, error)
	FindForPartner(ctx context.Context, partnerID uuid.UUID, key enums.SettingKey) (*models.Setting, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindGlobal(ctx context.Context, key enums.SettingKey) (*models.Setting, error) {
	var setting models.Setting
	err := r.db.WithContext(ctx).
		Where("scope = ? AND key = ?", enums.SettingScopeGlobal, key).
		First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}

func (r *repository) FindForPartner(ctx context.Context, partnerID uuid.UUID, key enums.SettingKey) (*models.Setting, error) {
	var setting models.Setting
	err := r.db.WithContext(ctx).
		Where("scope = ? AND partner_id = ? AND key = ?", enums.SettingScopePartner, partnerID, key).
		First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}
