package enums

import "fmt"

// RequestStatus describes the lifecycle position of a service request.
type RequestStatus string

const (
	RequestStatusSubmitted  RequestStatus = "submitted"
	RequestStatusAssigned   RequestStatus = "assigned"
	RequestStatusUnassigned RequestStatus = "unassigned"
	RequestStatusConfirmed  RequestStatus = "confirmed"
	RequestStatusRejected   RequestStatus = "rejected"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusCompleted  RequestStatus = "completed"
	RequestStatusClosed     RequestStatus = "closed"
)

var validRequestStatuses = []RequestStatus{
	RequestStatusSubmitted,
	RequestStatusAssigned,
	RequestStatusUnassigned,
	RequestStatusConfirmed,
	RequestStatusRejected,
	RequestStatusInProgress,
	RequestStatusCompleted,
	RequestStatusClosed,
}

// advancePredecessors maps each advance target to the statuses allowed to
// move into it. Assignment-related transitions (assign/accept/reject/expire)
// have their own guarded operations and are deliberately absent here.
var advancePredecessors = map[RequestStatus][]RequestStatus{
	RequestStatusInProgress: {RequestStatusConfirmed},
	RequestStatusCompleted:  {RequestStatusInProgress},
	RequestStatusClosed:     {RequestStatusCompleted},
}

// String implements fmt.Stringer.
func (s RequestStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known RequestStatus.
func (s RequestStatus) IsValid() bool {
	for _, candidate := range validRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsAssignable reports whether a request in this status may receive a new
// assignment.
func (s RequestStatus) IsAssignable() bool {
	switch s {
	case RequestStatusSubmitted, RequestStatusUnassigned, RequestStatusRejected:
		return true
	default:
		return false
	}
}

// IsAdvanceTarget reports whether the status is reachable through the
// generic advance operation.
func (s RequestStatus) IsAdvanceTarget() bool {
	_, ok := advancePredecessors[s]
	return ok
}

// CanAdvanceTo reports whether the generic advance operation may move a
// request from the current status to target.
func (s RequestStatus) CanAdvanceTo(target RequestStatus) bool {
	for _, allowed := range advancePredecessors[target] {
		if allowed == s {
			return true
		}
	}
	return false
}

// ParseRequestStatus converts the raw string to RequestStatus.
func ParseRequestStatus(value string) (RequestStatus, error) {
	for _, candidate := range validRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid request status %q", value)
}
