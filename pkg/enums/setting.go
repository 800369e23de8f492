package enums

import "fmt"

// SettingScope narrows a configuration row to global or partner scope.
type SettingScope string

const (
	SettingScopeGlobal  SettingScope = "global"
	SettingScopePartner SettingScope = "partner"
)

var validSettingScopes = []SettingScope{
	SettingScopeGlobal,
	SettingScopePartner,
}

// IsValid reports whether the value is a known SettingScope.
func (s SettingScope) IsValid() bool {
	for _, candidate := range validSettingScopes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSettingScope converts the raw string to SettingScope.
func ParseSettingScope(value string) (SettingScope, error) {
	for _, candidate := range validSettingScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid setting scope %q", value)
}

// SettingKey names a configuration entry consumed by this service.
type SettingKey string

const (
	SettingSLATimeoutMinutes SettingKey = "sla_timeout_minutes"
	SettingSLARecipients     SettingKey = "sla_notification_recipients"
)
