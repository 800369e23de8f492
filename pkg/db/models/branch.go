package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/partnerly/dispatch-backend/pkg/enums"
)

// Branch is one physical location of a partner.
type Branch struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PartnerID    uuid.UUID `gorm:"column:partner_id;type:uuid;not null;index"`
	NameEn       string    `gorm:"column:name_en;type:text;not null"`
	NameAr       string    `gorm:"column:name_ar;type:text;not null"`
	ContactEmail *string   `gorm:"column:contact_email;type:text"`
	Phone        *string   `gorm:"column:phone;type:text"`
	Active       bool      `gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Name returns the display name for the given locale.
func (b Branch) Name(locale enums.Locale) string {
	if locale == enums.LocaleArabic && b.NameAr != "" {
		return b.NameAr
	}
	return b.NameEn
}
