package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/partnerly/dispatch-backend/pkg/enums"
)

// RequestSubmittedEvent signals a newly created request entering the queue.
type RequestSubmittedEvent struct {
	RequestID     uuid.UUID `json:"requestId"`
	RequestNumber int64     `json:"requestNumber"`
	CustomerID    uuid.UUID `json:"customerId"`
}

// RequestAssignedEvent is emitted when a request is dispatched to a partner.
type RequestAssignedEvent struct {
	RequestID     uuid.UUID `json:"requestId"`
	RequestNumber int64     `json:"requestNumber"`
	PartnerID     uuid.UUID `json:"partnerId"`
	BranchID      uuid.UUID `json:"branchId"`
	AssignedBy    uuid.UUID `json:"assignedBy"`
	SLADeadline   time.Time `json:"slaDeadline"`
}

// RequestDecisionEvent is emitted when a partner accepts or rejects an
// assignment.
type RequestDecisionEvent struct {
	RequestID     uuid.UUID                `json:"requestId"`
	RequestNumber int64                    `json:"requestNumber"`
	PartnerID     uuid.UUID                `json:"partnerId"`
	BranchID      uuid.UUID                `json:"branchId"`
	Response      enums.AssignmentResponse `json:"response"`
	Status        enums.RequestStatus      `json:"status"`
	Reason        string                   `json:"reason,omitempty"`
}

// RequestAdvancedEvent reports a lifecycle move past confirmation.
type RequestAdvancedEvent struct {
	RequestID     uuid.UUID           `json:"requestId"`
	RequestNumber int64               `json:"requestNumber"`
	Status        enums.RequestStatus `json:"status"`
	ActorID       uuid.UUID           `json:"actorId"`
	Notes         string              `json:"notes,omitempty"`
}

// RequestSLAExpiredEvent describes an assignment revoked by the SLA sweep.
type RequestSLAExpiredEvent struct {
	RequestID      uuid.UUID `json:"requestId"`
	RequestNumber  int64     `json:"requestNumber"`
	PartnerID      uuid.UUID `json:"partnerId"`
	BranchID       uuid.UUID `json:"branchId"`
	SLADeadline    time.Time `json:"slaDeadline"`
	TimeoutMinutes int       `json:"timeoutMinutes"`
	ExpiredAt      time.Time `json:"expiredAt"`
}
