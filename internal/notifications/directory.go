package notifications

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partnerly/dispatch-backend/pkg/db/models"
)

// Directory resolves recipients referenced by domain events.
type Directory interface {
	FindCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	FindPartner(ctx context.Context, id uuid.UUID) (*models.Partner, error)
}

type directory struct {
	db *gorm.DB
}

// NewDirectory builds a recipient directory bound to the provided DB.
func NewDirectory(db *gorm.DB) Directory {
	return &directory{db: db}
}

func (d *directory) FindCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (d *directory) FindPartner(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	var partner models.Partner
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&partner).Error; err != nil {
		return nil, err
	}
	return &partner, nil
}
