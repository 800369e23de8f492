package enums

// Locale identifies a supported rendering language for notifications.
type Locale string

const (
	LocaleEnglish Locale = "en"
	LocaleArabic  Locale = "ar"
)

// SupportedLocales lists every locale notifications are rendered in.
var SupportedLocales = []Locale{LocaleEnglish, LocaleArabic}

// IsValid reports whether the value is a known Locale.
func (l Locale) IsValid() bool {
	for _, candidate := range SupportedLocales {
		if candidate == l {
			return true
		}
	}
	return false
}

// Or returns the locale itself when valid, falling back otherwise.
func (l Locale) Or(fallback Locale) Locale {
	if l.IsValid() {
		return l
	}
	return fallback
}
