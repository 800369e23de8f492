package enums

import "fmt"

// AssignmentResponse records the outcome of one assignment episode.
type AssignmentResponse string

const (
	AssignmentResponsePending   AssignmentResponse = "pending"
	AssignmentResponseConfirmed AssignmentResponse = "confirmed"
	AssignmentResponseRejected  AssignmentResponse = "rejected"
	AssignmentResponseTimeout   AssignmentResponse = "timeout"
)

var validAssignmentResponses = []AssignmentResponse{
	AssignmentResponsePending,
	AssignmentResponseConfirmed,
	AssignmentResponseRejected,
	AssignmentResponseTimeout,
}

// IsValid reports whether the value is a known AssignmentResponse.
func (r AssignmentResponse) IsValid() bool {
	for _, candidate := range validAssignmentResponses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsResolved reports whether the response closes the episode.
func (r AssignmentResponse) IsResolved() bool {
	return r != AssignmentResponsePending && r.IsValid()
}

// ParseAssignmentResponse converts the raw string to AssignmentResponse.
func ParseAssignmentResponse(value string) (AssignmentResponse, error) {
	for _, candidate := range validAssignmentResponses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment response %q", value)
}
