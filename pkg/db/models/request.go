package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/partnerly/dispatch-backend/pkg/enums"
)

// SystemActorID is the reserved identity attributed to automated transitions
// in the audit trail.
var SystemActorID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// Request is the unit of work being dispatched to service partners.
//
// PartnerID, BranchID, AssignedAt and SLADeadline are non-null exactly while
// the request is in status assigned; every transition leaving that status
// clears or freezes them in the same statement that flips the status.
type Request struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RequestNumber  int64               `gorm:"column:request_number;not null;uniqueIndex"`
	CustomerID     uuid.UUID           `gorm:"column:customer_id;type:uuid;not null"`
	ServiceName    string              `gorm:"column:service_name;type:text;not null"`
	CategoryName   string              `gorm:"column:category_name;type:text;not null"`
	PickupOption   string              `gorm:"column:pickup_option;type:text;not null"`
	Status         enums.RequestStatus `gorm:"column:status;type:request_status;not null;default:'submitted'"`
	PartnerID      *uuid.UUID          `gorm:"column:partner_id;type:uuid"`
	BranchID       *uuid.UUID          `gorm:"column:branch_id;type:uuid"`
	AssignedByID   *uuid.UUID          `gorm:"column:assigned_by_user_id;type:uuid"`
	AssignedAt     *time.Time          `gorm:"column:assigned_at"`
	SLADeadline    *time.Time          `gorm:"column:sla_deadline"`
	ConfirmedAt    *time.Time          `gorm:"column:confirmed_at"`
	RejectedAt     *time.Time          `gorm:"column:rejected_at"`
	InProgressAt   *time.Time          `gorm:"column:in_progress_at"`
	CompletedAt    *time.Time          `gorm:"column:completed_at"`
	ClosedAt       *time.Time          `gorm:"column:closed_at"`
	ClosedByUserID *uuid.UUID          `gorm:"column:closed_by_user_id;type:uuid"`
	Rating         *int                `gorm:"column:rating"`
	Feedback       *string             `gorm:"column:feedback"`
	Notes          *string             `gorm:"column:notes"`
	DeletedAt      *time.Time          `gorm:"column:deleted_at"`
	Assignments    []Assignment        `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"`
	StatusLog      []StatusLogEntry    `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
