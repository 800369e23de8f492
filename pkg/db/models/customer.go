package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/partnerly/dispatch-backend/pkg/enums"
)

// Customer is the end user a request is dispatched on behalf of.
//
// SyntheticEmail marks placeholder addresses minted for phone-only signups;
// notification sends skip those recipients without counting them as failures.
type Customer struct {
	ID             uuid.UUID    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string       `gorm:"column:name;type:text;not null"`
	Email          string       `gorm:"column:email;type:text;not null;uniqueIndex"`
	SyntheticEmail bool         `gorm:"column:synthetic_email;not null;default:false"`
	Phone          *string      `gorm:"column:phone;type:text"`
	Locale         enums.Locale `gorm:"column:locale;type:text;not null;default:'en'"`
	CreatedAt      time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}
