package requests

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partnerly/dispatch-backend/pkg/db/models"
)

// Repository defines persistence operations for request rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.Request) (*models.Request, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Request, error)
	FindByNumber(ctx context.Context, number int64) (*models.Request, error)
	List(ctx context.Context, params ListParams) ([]models.Request, error)
	FindExpiredAssigned(ctx context.Context, now time.Time) ([]models.Request, error)
	// UpdateGuarded applies updates only to the row still matching every
	// guard column and reports how many rows changed.
	UpdateGuarded(ctx context.Context, id uuid.UUID, guards map[string]any, updates map[string]any) (int64, error)
}
