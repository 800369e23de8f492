package enums

import "fmt"

// NotificationType classifies in-app notification rows.
type NotificationType string

const (
	NotificationTypeDispatch NotificationType = "dispatch"
	NotificationTypeSLA      NotificationType = "sla"
)

// NotificationTemplate selects the mail template rendered for a transition.
type NotificationTemplate string

const (
	TemplateAssigned      NotificationTemplate = "assigned"
	TemplateAccepted      NotificationTemplate = "accepted"
	TemplateRejected      NotificationTemplate = "rejected"
	TemplateConfirmed     NotificationTemplate = "confirmed"
	TemplateInProgress    NotificationTemplate = "in_progress"
	TemplateCompleted     NotificationTemplate = "completed"
	TemplateClosed        NotificationTemplate = "closed"
	TemplateSLATimeout    NotificationTemplate = "sla_timeout"
	TemplateStatusChanged NotificationTemplate = "status_changed"
)

var validNotificationTemplates = []NotificationTemplate{
	TemplateAssigned,
	TemplateAccepted,
	TemplateRejected,
	TemplateConfirmed,
	TemplateInProgress,
	TemplateCompleted,
	TemplateClosed,
	TemplateSLATimeout,
	TemplateStatusChanged,
}

// IsValid reports whether the value is a known NotificationTemplate.
func (t NotificationTemplate) IsValid() bool {
	for _, candidate := range validNotificationTemplates {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseNotificationTemplate converts the raw string to NotificationTemplate.
func ParseNotificationTemplate(value string) (NotificationTemplate, error) {
	for _, candidate := range validNotificationTemplates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification template %q", value)
}

// TemplateForStatus maps a resulting status to the template used when no
// more specific transition template applies.
func TemplateForStatus(status RequestStatus) NotificationTemplate {
	switch status {
	case RequestStatusAssigned:
		return TemplateAssigned
	case RequestStatusConfirmed:
		return TemplateConfirmed
	case RequestStatusRejected:
		return TemplateRejected
	case RequestStatusInProgress:
		return TemplateInProgress
	case RequestStatusCompleted:
		return TemplateCompleted
	case RequestStatusClosed:
		return TemplateClosed
	case RequestStatusUnassigned:
		return TemplateSLATimeout
	default:
		return TemplateStatusChanged
	}
}
