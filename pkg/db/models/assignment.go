package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/partnerly/dispatch-backend/pkg/enums"
)

// Assignment is one ledger row per assignment attempt. Rows are created when
// a request is assigned and mutated only once, to record the resolution.
type Assignment struct {
	ID               uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RequestID        uuid.UUID                `gorm:"column:request_id;type:uuid;not null;index"`
	PartnerID        uuid.UUID                `gorm:"column:partner_id;type:uuid;not null"`
	BranchID         uuid.UUID                `gorm:"column:branch_id;type:uuid;not null"`
	AssignedByUserID uuid.UUID                `gorm:"column:assigned_by_user_id;type:uuid;not null"`
	AssignedAt       time.Time                `gorm:"column:assigned_at;autoCreateTime"`
	RespondedAt      *time.Time               `gorm:"column:responded_at"`
	Response         enums.AssignmentResponse `gorm:"column:response;type:assignment_response;not null;default:'pending'"`
	RejectionReason  *string                  `gorm:"column:rejection_reason"`
	CreatedAt        time.Time                `gorm:"column:created_at;autoCreateTime"`
}
