package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/partnerly/dispatch-backend/pkg/enums"
)

// StatusLogEntry is the append-only audit record of one committed transition.
type StatusLogEntry struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RequestID   uuid.UUID           `gorm:"column:request_id;type:uuid;not null;index"`
	Status      enums.RequestStatus `gorm:"column:status;type:request_status;not null"`
	ActorUserID uuid.UUID           `gorm:"column:actor_user_id;type:uuid;not null"`
	Notes       *string             `gorm:"column:notes"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
}
