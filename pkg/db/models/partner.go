package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/partnerly/dispatch-backend/pkg/enums"
)

// Partner is a third-party service provider that requests are dispatched to.
type Partner struct {
	ID           uuid.UUID    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	NameEn       string       `gorm:"column:name_en;type:text;not null"`
	NameAr       string       `gorm:"column:name_ar;type:text;not null"`
	ContactEmail string       `gorm:"column:contact_email;type:text;not null"`
	Locale       enums.Locale `gorm:"column:locale;type:text;not null;default:'en'"`
	Active       bool         `gorm:"column:active;not null;default:true"`
	Branches     []Branch     `gorm:"foreignKey:PartnerID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}

// Name returns the display name for the given locale.
func (p Partner) Name(locale enums.Locale) string {
	if locale == enums.LocaleArabic && p.NameAr != "" {
		return p.NameAr
	}
	return p.NameEn
}
