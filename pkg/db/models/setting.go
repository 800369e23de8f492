package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/partnerly/dispatch-backend/pkg/enums"
)

// Setting is a scoped configuration row. Partner-scoped rows shadow the
// global row for the same key.
type Setting struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Scope     enums.SettingScope `gorm:"column:scope;type:setting_scope;not null;default:'global';uniqueIndex:idx_settings_scope_partner_key"`
	PartnerID *uuid.UUID         `gorm:"column:partner_id;type:uuid;uniqueIndex:idx_settings_scope_partner_key"`
	Key       enums.SettingKey   `gorm:"column:key;type:text;not null;uniqueIndex:idx_settings_scope_partner_key"`
	Value     string             `gorm:"column:value;type:text;not null"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
