package requests

import (
	"time"

	"github.com/google/uuid"

	"github.com/partnerly/dispatch-backend/pkg/db/models"
	"github.com/partnerly/dispatch-backend/pkg/enums"
)

// SubmitInput creates a new request at the top of the lifecycle.
type SubmitInput struct {
	CustomerID   uuid.UUID
	ServiceName  string
	CategoryName string
	PickupOption string
	Notes        *string
}

// AssignInput dispatches a request to a partner branch.
type AssignInput struct {
	RequestID  uuid.UUID
	PartnerID  uuid.UUID
	BranchID   uuid.UUID
	AssignerID uuid.UUID
	ActorRole  string
}

// AcceptInput records a partner confirming its open assignment.
type AcceptInput struct {
	RequestID   uuid.UUID
	PartnerID   uuid.UUID
	ActorUserID uuid.UUID
}

// RejectInput records a partner declining its open assignment.
type RejectInput struct {
	RequestID   uuid.UUID
	PartnerID   uuid.UUID
	ActorUserID uuid.UUID
	Reason      string
}

// AdvanceInput moves a confirmed request through the fulfillment phases.
// Rating and Feedback are only accepted on the closing transition.
type AdvanceInput struct {
	RequestID uuid.UUID
	NewStatus enums.RequestStatus
	ActorID   uuid.UUID
	Notes     *string
	Rating    *int
	Feedback  *string
}

// ExpireInput is the sweep's timeout transition for one candidate. The
// observed deadline guards against a deadline that moved under the sweep.
type ExpireInput struct {
	RequestID        uuid.UUID
	ObservedDeadline time.Time
	TimeoutMinutes   int
}

// ListParams filter request listings.
type ListParams struct {
	Status *enums.RequestStatus
	Limit  int
	Offset int
}

// History bundles the audit surfaces of one request.
type History struct {
	Request     *models.Request
	StatusLog   []models.StatusLogEntry
	Assignments []models.Assignment
}
