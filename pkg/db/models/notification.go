package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/partnerly/dispatch-backend/pkg/enums"
)

// Notification records one attempted recipient send so operators can follow
// up on delivery failures by hand.
type Notification struct {
	ID        uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RequestID uuid.UUID                  `gorm:"column:request_id;type:uuid;not null;index"`
	Type      enums.NotificationType     `gorm:"column:type;type:notification_type;not null"`
	Template  enums.NotificationTemplate `gorm:"column:template;type:text;not null"`
	Recipient string                     `gorm:"column:recipient;type:text;not null"`
	Locale    enums.Locale               `gorm:"column:locale;type:text;not null"`
	Subject   string                     `gorm:"column:subject;type:text;not null"`
	Delivered bool                       `gorm:"column:delivered;not null;default:false"`
	Error     *string                    `gorm:"column:error"`
	SentAt    *time.Time                 `gorm:"column:sent_at"`
	CreatedAt time.Time                  `gorm:"column:created_at;autoCreateTime"`
}
